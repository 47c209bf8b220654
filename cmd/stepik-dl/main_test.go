package main

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
)

func clearStepikEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if k, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, "STEPIK_") {
			t.Setenv(k, "")
		}
	}
}

func TestParseArgs_LongAndShortFlags(t *testing.T) {
	clearStepikEnv(t)
	var stderr bytes.Buffer

	cfg, _, err := parseArgs([]string{"-c", "id", "--client_secret", "secret", "-i", "401", "-w", "2", "-q", "1080", "-o", "out", "-p", "http://proxy:3128"}, &stderr)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if cfg.ClientID != "id" || cfg.ClientSecret != "secret" || cfg.CourseID != 401 || cfg.WeekID != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Quality != "1080" || cfg.OutputDir != "out" || cfg.Proxy != "http://proxy:3128" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestParseArgs_MissingRequiredIsUsageError(t *testing.T) {
	clearStepikEnv(t)
	var stderr bytes.Buffer
	_, _, err := parseArgs([]string{"--client_id", "id"}, &stderr)
	if !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if code := realMain([]string{"--client_id", "id"}, &stderr); code != exitUsage {
		t.Fatalf("expected exit code %d, got %d", exitUsage, code)
	}
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	clearStepikEnv(t)
	var stderr bytes.Buffer
	if code := realMain([]string{"--nope"}, &stderr); code != exitUsage {
		t.Fatalf("expected exit code %d, got %d", exitUsage, code)
	}
}

func TestParseArgs_Help(t *testing.T) {
	var stderr bytes.Buffer
	_, _, err := parseArgs([]string{"-h"}, &stderr)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected ErrHelp, got %v", err)
	}
	if !strings.Contains(stderr.String(), "client_id") {
		t.Fatalf("usage should list flags, got %q", stderr.String())
	}
}

func TestParseArgs_ConfigFileThenFlags(t *testing.T) {
	clearStepikEnv(t)
	t.Setenv("STEPIK_CLIENT_SECRET", "from-env")
	path := filepath.Join(t.TempDir(), "stepik.yaml")
	content := "client_id: from-file\ncourse_id: 7\nquality: \"360\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var stderr bytes.Buffer
	cfg, _, err := parseArgs([]string{"--config", path, "-q", "1080"}, &stderr)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if cfg.ClientID != "from-file" || cfg.ClientSecret != "from-env" || cfg.CourseID != 7 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Quality != "1080" {
		t.Fatalf("flag must override file, got quality %q", cfg.Quality)
	}
}

func TestParseArgs_VersionSkipsValidation(t *testing.T) {
	clearStepikEnv(t)
	var stderr bytes.Buffer
	_, opts, err := parseArgs([]string{"--version"}, &stderr)
	if err != nil || !opts.showVersion {
		t.Fatalf("expected version request, got opts=%+v err=%v", opts, err)
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(nil) != exitOK {
		t.Fatalf("nil error must exit 0")
	}
	if exitCode(&ports.AuthError{Err: errors.New("401")}) != exitFailure {
		t.Fatalf("auth error must exit 1")
	}
}
