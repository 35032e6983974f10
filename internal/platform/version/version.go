package version

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Name identifies the bridge towards Twitch, Postgres and the host.
const Name = "evntboard-twitch-bridge"

// Set via -ldflags "-X github.com/EvntBoard/plugin-twitch/internal/platform/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

var vcs = sync.OnceValue(func() Info {
	var info Info
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.time":
			info.BuildTime = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
})

// Get reports the ldflags values, falling back to the VCS stamp the Go
// toolchain embeds when they were not set.
func Get() Info {
	info := Info{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}

	stamped := vcs()
	if info.Commit == "unknown" && stamped.Commit != "" {
		info.Commit = stamped.Commit
		info.Modified = stamped.Modified
	}
	if info.BuildTime == "unknown" && stamped.BuildTime != "" {
		info.BuildTime = stamped.BuildTime
	}
	return info
}

// UserAgent is sent on outbound Helix requests.
func UserAgent() string {
	return Name + "/" + Version
}
