package version

// version is stamped at build time via -ldflags "-X ...version.version=".
var version = "dev"

// String returns the build version.
func String() string { return version }
