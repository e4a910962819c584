package model

// DefaultLogMacro is the log macro used by the generated code unless
// configured otherwise.
const DefaultLogMacro = "log_packet_detailed"

// Config is the generation configuration. It is passed by value into every
// component that needs it and never changed after construction.
type Config struct {
	// Verbose enables debug logging of the generation pass.
	Verbose bool

	// GenStats enables delta statistics.
	GenStats bool

	// LogMacro names the logging hook of the generated code. Empty disables
	// packet logging.
	LogMacro string

	// FoldBool folds boolean fields into the presence bitvector.
	FoldBool bool

	// Constants resolves symbolic array sizes. Treat as read only.
	Constants map[string]int
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		LogMacro:  DefaultLogMacro,
		FoldBool:  true,
		Constants: map[string]int{},
	}
}
