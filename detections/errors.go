package detections

import (
	"errors"
	"fmt"
)

// Load failures. Load wraps these so callers can match with errors.Is.
var (
	ErrModelMissing    = errors.New("model not bundled")
	ErrMalformedModel  = errors.New("malformed model")
	ErrEndpointMissing = errors.New("graph endpoint missing")
	ErrStageMismatch   = errors.New("threshold count does not match model stages")
	ErrRuntime         = errors.New("inference runtime unavailable")
)

// EngineError is returned by Detect for any failure inside the inference
// engine: endpoint lookup, tensor shape or type mismatch, execution faults.
type EngineError struct {
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *EngineError) Unwrap() error { return e.Cause }
