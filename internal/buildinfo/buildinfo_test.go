package buildinfo

import "testing"

func TestInfoString(t *testing.T) {
	i := Info{Version: "v1.2.0", Commit: "0123456789abcdef", Date: "2026-01-18", GoVersion: "go1.22.0"}
	if got := i.String(); got != "stepik-dl v1.2.0 (0123456789ab) 2026-01-18 go1.22.0" {
		t.Fatalf("got %q", got)
	}
	if got := (Info{Version: "dev", GoVersion: "go1.22.0"}).String(); got != "stepik-dl dev go1.22.0" {
		t.Fatalf("got %q", got)
	}
}
