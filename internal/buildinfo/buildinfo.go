package buildinfo

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// Injectées à la compilation via -ldflags :
//
//	-X github.com/Guilhem-Bonnet/Stepik-Downloader/internal/buildinfo.Version=v0.1.0
//	-X github.com/Guilhem-Bonnet/Stepik-Downloader/internal/buildinfo.Commit=abcdef
//	-X github.com/Guilhem-Bonnet/Stepik-Downloader/internal/buildinfo.Date=2026-01-18
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"goVersion"`
}

// Current complète le commit depuis les métadonnées VCS du binaire
// quand il n'a pas été injecté.
func Current() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date, GoVersion: runtime.Version()}
	if info.Commit != "" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Commit = s.Value
			case "vcs.time":
				if info.Date == "" {
					info.Date = s.Value
				}
			}
		}
	}
	return info
}

func (i Info) String() string {
	var b strings.Builder
	b.WriteString("stepik-dl ")
	b.WriteString(i.Version)
	if i.Commit != "" {
		commit := i.Commit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		b.WriteString(" (" + commit + ")")
	}
	if i.Date != "" {
		b.WriteString(" " + i.Date)
	}
	b.WriteString(" " + i.GoVersion)
	return b.String()
}
