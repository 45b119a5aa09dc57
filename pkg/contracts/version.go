package contracts

import (
	"fmt"
	"runtime"
)

// Version identifies the release. BuildTime and GitCommit carry their
// defaults until a release build stamps them:
//
//	go build -ldflags "-X engineatlas/pkg/contracts.BuildTime=... -X engineatlas/pkg/contracts.GitCommit=..."
const Version = "1.0.0"

const (
	// SchemaVersion names the canonical dataset layout: the column set
	// and engineered features a cleaned table is guaranteed to carry.
	SchemaVersion = "v1"

	// APIVersion names the HTTP and WebSocket wire contracts.
	APIVersion = "v1"
)

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Schema    string `json:"schema_version"`
	API       string `json:"api_version"`
}

// CurrentBuild returns the descriptor for this binary.
func CurrentBuild() BuildInfo {
	return BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Schema:    SchemaVersion,
		API:       APIVersion,
	}
}

// String renders the one-line form printed for --version.
func (b BuildInfo) String() string {
	return fmt.Sprintf("Engine Atlas v%s (built %s, commit %s, %s, %s)",
		b.Version, b.BuildTime, b.GitCommit, b.GoVersion, b.Platform)
}
