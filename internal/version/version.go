package version

// Overridden at build time with -ldflags "-X github.com/fbz-tec/dbxport/internal/version.AppVersion=..."
var (
	AppVersion = "dev"
	BuildTime  = "unknown"
	GitCommit  = "none"
)
