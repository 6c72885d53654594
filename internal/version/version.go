package version

// Build metadata, stamped via -ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
)
