package detections

// LogLevel is the minimum severity the inference runtime writes to its log.
type LogLevel int

const (
	LogLevelVerbose LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
	LogLevelFatal
)

type options struct {
	libraryPath    string
	logLevel       LogLevel
	intraOpThreads int
	interOpThreads int
	model          []byte
	engine         engine
}

func defaultOptions() options {
	return options{logLevel: LogLevelWarning}
}

// Option configures how a Detector loads its graph.
type Option func(*options)

// WithSharedLibraryPath points the runtime at its shared library. It only
// has an effect on the first Load of the process.
func WithSharedLibraryPath(path string) Option {
	return func(o *options) {
		o.libraryPath = path
	}
}

// WithLogLevel sets the runtime log verbosity when the runtime is
// initialized.
func WithLogLevel(level LogLevel) Option {
	return func(o *options) {
		o.logLevel = level
	}
}

// WithThreads limits the threads each session uses. Zero keeps the runtime
// default.
func WithThreads(intraOp, interOp int) Option {
	return func(o *options) {
		o.intraOpThreads = intraOp
		o.interOpThreads = interOp
	}
}

// WithModel replaces the bundled graph with model.
func WithModel(model []byte) Option {
	return func(o *options) {
		o.model = model
	}
}
