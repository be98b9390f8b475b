//go:build !tensorflow

package detections

import (
	"errors"
	"strings"
	"testing"
)

func TestOrtLogLevel(t *testing.T) {
	for _, level := range []LogLevel{LogLevelVerbose, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelFatal} {
		if ortLogLevel(level) == nil {
			t.Errorf("ortLogLevel(%v) = nil", level)
		}
	}
}

func TestLoadForgetsFailedLibraryPath(t *testing.T) {
	const badLib = "/nonexistent/bad-lib.so"

	_, err := Load(DefaultConfig(), WithModel([]byte("not a model")), WithSharedLibraryPath(badLib))
	if err == nil {
		t.Fatal("Load accepted a malformed model")
	}

	_, err = Load(DefaultConfig(), WithModel([]byte("not a model")))
	if err == nil {
		t.Fatal("Load accepted a malformed model")
	}
	if strings.Contains(err.Error(), badLib) {
		t.Fatalf("second Load still used %s: %v", badLib, err)
	}
	if !errors.Is(err, ErrMalformedModel) && !errors.Is(err, ErrRuntime) {
		t.Fatalf("Load error = %v, want ErrMalformedModel or ErrRuntime", err)
	}
}
