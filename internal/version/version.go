// Package version carries build metadata injected at link time:
//
//	go build -ldflags "-X github.com/tollgate-data/gantryflow/internal/version.Version=v1.2.0 \
//	  -X github.com/tollgate-data/gantryflow/internal/version.GitSHA=$(git rev-parse --short HEAD)"
package version

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String formats the version with its commit, e.g. "v1.2.0 (a1b2c3d)".
func String() string {
	return Version + " (" + GitSHA + ")"
}
