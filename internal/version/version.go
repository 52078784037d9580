// Package version reports build information for gointv
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time via -ldflags "-X gointv/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo contains build information
type BuildInfo struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	Arch       string `json:"arch"`
	CGOEnabled bool   `json:"cgo_enabled"`
}

// GetBuildInfo merges the linker-set values with the module's VCS stamp
func GetBuildInfo() BuildInfo {
	bi := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if GitCommit == "unknown" {
					bi.GitCommit = setting.Value
				}
			case "vcs.time":
				if BuildTime == "unknown" {
					bi.BuildTime = setting.Value
				}
			case "CGO_ENABLED":
				bi.CGOEnabled = setting.Value == "1"
			}
		}
	}
	return bi
}

// GetVersion returns a short version string. Development builds carry the
// abbreviated commit.
func GetVersion() string {
	bi := GetBuildInfo()
	if bi.Version == "dev" && bi.GitCommit != "unknown" && len(bi.GitCommit) >= 7 {
		return "dev-" + bi.GitCommit[:7]
	}
	return bi.Version
}

// PrintBuildInfo prints formatted build information
func PrintBuildInfo() {
	bi := GetBuildInfo()

	fmt.Printf("gointv - Intellivision display chip emulator\n")
	fmt.Printf("Version:     %s\n", GetVersion())
	fmt.Printf("Git Commit:  %s\n", bi.GitCommit)
	fmt.Printf("Build Time:  %s\n", bi.BuildTime)
	fmt.Printf("Go Version:  %s\n", bi.GoVersion)
	fmt.Printf("Platform:    %s/%s\n", bi.Platform, bi.Arch)
	fmt.Printf("CGO Enabled: %t\n", bi.CGOEnabled)
}
