// Package version holds build information for the shopai binary, set with
// -ldflags:
//
//	go build -ldflags="-X github.com/billshop/shopai-go/internal/version.Version=v0.4.0 \
//	                    -X github.com/billshop/shopai-go/internal/version.Commit=abc1234 \
//	                    -X github.com/billshop/shopai-go/internal/version.BuildDate=2026-01-01"
//
// Unset values fall back to "dev" and "unknown".
package version

import "fmt"

// Version is the semantic version of the binary. Defaults to "dev".
var Version = "dev"

// Commit is the short git SHA. Defaults to "unknown".
var Commit = "unknown"

// BuildDate is the UTC build date in RFC3339. Defaults to "unknown".
var BuildDate = "unknown"

// String renders all three values on one line, as printed by the version
// command and the health endpoint.
func String() string {
	return fmt.Sprintf("shopai %s (commit %s, built %s)", Version, Commit, BuildDate)
}
