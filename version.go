package modtl

import "runtime/debug"

// Version information. Override at build time with
//
//	go build -ldflags "-X github.com/ZaguanLabs/modtl.GitCommit=$(git rev-parse HEAD)"
const (
	Name        = "modtl"
	Description = "Placeholder-safe LLM translation for game-mod localization files"
	Version     = "0.3.0"
	Repository  = "https://github.com/ZaguanLabs/modtl"
	License     = "MIT"
)

// Build information, normally set via ldflags.
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// FullVersion returns the version with the short commit appended when known.
// Without ldflags it falls back to the VCS revision embedded by the Go
// toolchain.
func FullVersion() string {
	commit := GitCommit
	if commit == "unknown" || commit == "" {
		commit = vcsRevision()
	}
	if commit == "" {
		return Version
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return Version + "+" + commit
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// UserAgent returns the User-Agent sent to providers.
func UserAgent() string {
	return Name + "/" + Version
}
