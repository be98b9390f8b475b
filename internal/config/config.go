package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/Tutortoise/facetract/detections"
)

// Config is the HTTP service configuration, read from the environment.
type Config struct {
	Addr           string        `validate:"required,hostname_port"`
	MaxConcurrent  int           `validate:"min=1"`
	AcquireTimeout time.Duration `validate:"gt=0"`
	ReadTimeout    time.Duration `validate:"gt=0"`
	WriteTimeout   time.Duration `validate:"gt=0"`
	MaxBodyBytes   int64         `validate:"gt=0"`

	LogLevel string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFile  string
	Debug    bool

	RuntimeLibrary  string
	RuntimeLogLevel string `validate:"oneof=verbose info warning error fatal"`
	Threads         int    `validate:"min=0"`

	MinSize    float32    `validate:"gt=0"`
	Factor     float32    `validate:"gt=0,lt=1"`
	Thresholds [3]float32 `validate:"dive,gte=0,lte=1"`
}

func Default() Config {
	dc := detections.DefaultConfig()
	return Config{
		Addr:            "127.0.0.1:8080",
		MaxConcurrent:   4,
		AcquireTimeout:  5 * time.Second,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    60 * time.Second,
		MaxBodyBytes:    10 << 20,
		LogLevel:        "info",
		RuntimeLogLevel: "error",
		MinSize:         dc.MinSize,
		Factor:          dc.Factor,
		Thresholds:      dc.Thresholds,
	}
}

func NewValidator() *validator.Validate {
	return validator.New()
}

// Load reads an optional .env file, overlays the environment on Default and
// validates the result. Variables already set in the environment win over
// the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := Default()
	p := &parser{}

	p.envString("FACETRACT_ADDR", &cfg.Addr)
	p.envInt("FACETRACT_MAX_CONCURRENT", &cfg.MaxConcurrent)
	p.envDuration("FACETRACT_ACQUIRE_TIMEOUT", &cfg.AcquireTimeout)
	p.envDuration("FACETRACT_READ_TIMEOUT", &cfg.ReadTimeout)
	p.envDuration("FACETRACT_WRITE_TIMEOUT", &cfg.WriteTimeout)
	p.envInt64("FACETRACT_MAX_BODY_BYTES", &cfg.MaxBodyBytes)
	p.envString("FACETRACT_LOG_LEVEL", &cfg.LogLevel)
	p.envString("FACETRACT_LOG_FILE", &cfg.LogFile)
	p.envBool("DEBUG", &cfg.Debug)
	p.envString("ONNXRUNTIME_SHARED_LIBRARY_PATH", &cfg.RuntimeLibrary)
	p.envString("FACETRACT_RUNTIME_LOG_LEVEL", &cfg.RuntimeLogLevel)
	p.envInt("FACETRACT_THREADS", &cfg.Threads)
	p.envFloat("FACETRACT_MIN_SIZE", &cfg.MinSize)
	p.envFloat("FACETRACT_FACTOR", &cfg.Factor)
	if v, ok := os.LookupEnv("FACETRACT_THRESHOLDS"); ok && p.err == nil {
		cfg.Thresholds, p.err = ParseThresholds(v)
	}
	if p.err != nil {
		return nil, p.err
	}

	if err := NewValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// DetectorConfig returns the cascade settings.
func (c *Config) DetectorConfig() detections.Config {
	return detections.Config{
		MinSize:    c.MinSize,
		Factor:     c.Factor,
		Thresholds: c.Thresholds,
	}
}

// DetectorOptions returns the runtime options for detections.Load.
func (c *Config) DetectorOptions() []detections.Option {
	opts := []detections.Option{detections.WithLogLevel(ParseRuntimeLogLevel(c.RuntimeLogLevel))}
	if c.RuntimeLibrary != "" {
		opts = append(opts, detections.WithSharedLibraryPath(c.RuntimeLibrary))
	}
	if c.Threads > 0 {
		opts = append(opts, detections.WithThreads(c.Threads, c.Threads))
	}
	return opts
}

// ParseThresholds reads three comma separated stage thresholds.
func ParseThresholds(s string) ([detections.Stages]float32, error) {
	var out [detections.Stages]float32

	parts := strings.Split(s, ",")
	if len(parts) != detections.Stages {
		return out, fmt.Errorf("thresholds %q: want %d values, got %d", s, detections.Stages, len(parts))
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return out, fmt.Errorf("thresholds %q: %w", s, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// ParseRuntimeLogLevel maps a level name to the runtime log level. Unknown
// names fall back to fatal only.
func ParseRuntimeLogLevel(s string) detections.LogLevel {
	switch strings.ToLower(s) {
	case "verbose":
		return detections.LogLevelVerbose
	case "info":
		return detections.LogLevelInfo
	case "warning", "warn":
		return detections.LogLevelWarning
	case "error":
		return detections.LogLevelError
	default:
		return detections.LogLevelFatal
	}
}

// parser keeps the first error so call sites stay flat.
type parser struct {
	err error
}

func (p *parser) lookup(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := os.LookupEnv(key)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func (p *parser) fail(key, v string, err error) {
	p.err = fmt.Errorf("parse %s=%q: %w", key, v, err)
}

func (p *parser) envString(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}

func (p *parser) envInt(key string, dst *int) {
	if v, ok := p.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (p *parser) envInt64(key string, dst *int64) {
	if v, ok := p.lookup(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (p *parser) envFloat(key string, dst *float32) {
	if v, ok := p.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = float32(f)
	}
}

func (p *parser) envBool(key string, dst *bool) {
	if v, ok := p.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (p *parser) envDuration(key string, dst *time.Duration) {
	if v, ok := p.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = d
	}
}
