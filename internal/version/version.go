package version

// Build-time variable (set via ldflags)
var Version = "0.1.0"

// GetVersion returns the current version
func GetVersion() string {
	return Version
}
