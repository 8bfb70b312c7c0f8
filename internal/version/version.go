package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const devVersion = "0.1.0-dev"

// Set with -ldflags "-X github.com/openmined/snipsync/internal/version.Version=..."
var (
	AppName   = "SnipSync"
	Version   = devVersion
	Revision  = "HEAD"
	BuildDate = ""
)

// fillFromBuild fills whatever ldflags left at its placeholder value.
func fillFromBuild(mainVersion string, settings map[string]string) {
	if (Version == devVersion || Version == "") && mainVersion != "" && mainVersion != "(devel)" {
		Version = strings.TrimPrefix(mainVersion, "v")
	}

	if Revision == "HEAD" || Revision == "" {
		if rev := settings["vcs.revision"]; rev != "" {
			if settings["vcs.modified"] == "true" {
				rev += "-dirty"
			}
			Revision = rev
		}
	}

	if BuildDate == "" {
		BuildDate = settings["vcs.time"]
	}
}

func readBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	fillFromBuild(info.Main.Version, settings)
}

// Short returns `0.1.0 (5e23a4)`
func Short() string {
	return fmt.Sprintf("%s (%s)", Version, Revision)
}

// Detailed returns `0.1.0 (5e23a4; go1.24.0; darwin/arm64; 2025-01-01T00:00:00Z)`
func Detailed() string {
	return fmt.Sprintf("%s (%s; %s; %s/%s; %s)", Version, Revision, runtime.Version(), runtime.GOOS, runtime.GOARCH, BuildDate)
}

func DetailedWithApp() string {
	return AppName + " " + Detailed()
}

func init() {
	readBuildInfo()
	if BuildDate == "" {
		BuildDate = time.Now().UTC().Format(time.RFC3339)
	}
}
