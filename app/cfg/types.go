package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	FeedsDir string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
