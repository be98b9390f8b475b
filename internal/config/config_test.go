package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Tutortoise/facetract/detections"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.DetectorConfig(); got != detections.DefaultConfig() {
		t.Errorf("DetectorConfig() = %+v, want defaults", got)
	}
	if cfg.Addr != "127.0.0.1:8080" || cfg.MaxConcurrent != 4 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("FACETRACT_ADDR", "0.0.0.0:9000")
	t.Setenv("FACETRACT_MAX_CONCURRENT", "8")
	t.Setenv("FACETRACT_ACQUIRE_TIMEOUT", "250ms")
	t.Setenv("FACETRACT_MIN_SIZE", "20")
	t.Setenv("FACETRACT_THRESHOLDS", "0.5, 0.6, 0.8")
	t.Setenv("DEBUG", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != "0.0.0.0:9000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d", cfg.MaxConcurrent)
	}
	if cfg.AcquireTimeout != 250*time.Millisecond {
		t.Errorf("AcquireTimeout = %v", cfg.AcquireTimeout)
	}
	if !cfg.Debug {
		t.Error("Debug not set")
	}
	want := detections.Config{MinSize: 20, Factor: detections.DefaultFactor, Thresholds: [3]float32{0.5, 0.6, 0.8}}
	if got := cfg.DetectorConfig(); got != want {
		t.Errorf("DetectorConfig() = %+v, want %+v", got, want)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FACETRACT_FACTOR=0.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FACETRACT_FACTOR") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Factor != 0.5 {
		t.Fatalf("Factor = %v, want 0.5", cfg.Factor)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"FACETRACT_MAX_CONCURRENT", "many", "FACETRACT_MAX_CONCURRENT"},
		{"FACETRACT_MAX_CONCURRENT", "0", "MaxConcurrent"},
		{"FACETRACT_FACTOR", "1.5", "Factor"},
		{"FACETRACT_THRESHOLDS", "0.5,0.6", "want 3 values"},
		{"FACETRACT_THRESHOLDS", "0.5,0.6,2", "Thresholds"},
		{"FACETRACT_ADDR", "no-port", "Addr"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			if err == nil {
				t.Fatal("Load accepted invalid config")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseThresholds(t *testing.T) {
	got, err := ParseThresholds("0.6,0.7,0.7")
	if err != nil {
		t.Fatalf("ParseThresholds: %v", err)
	}
	if got != detections.DefaultThresholds {
		t.Fatalf("ParseThresholds = %v", got)
	}
	if _, err := ParseThresholds("a,b,c"); err == nil {
		t.Fatal("ParseThresholds accepted non-numbers")
	}
}

func TestDetectorOptions(t *testing.T) {
	cfg := Default()
	if got := len(cfg.DetectorOptions()); got != 1 {
		t.Fatalf("default options = %d, want 1", got)
	}

	cfg.RuntimeLibrary = "/opt/onnxruntime/lib/libonnxruntime.so"
	cfg.Threads = 2
	if got := len(cfg.DetectorOptions()); got != 3 {
		t.Fatalf("options = %d, want 3", got)
	}
}

func TestParseRuntimeLogLevel(t *testing.T) {
	if ParseRuntimeLogLevel("WARN") != detections.LogLevelWarning {
		t.Error("WARN not mapped to warning")
	}
	if ParseRuntimeLogLevel("bogus") != detections.LogLevelFatal {
		t.Error("unknown level not mapped to fatal")
	}
}
