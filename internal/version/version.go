package version

// Set at build time with -ldflags "-X github.com/rowjay/bucket-browser/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
