package app

import (
	"fmt"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
)

var ErrNotFound = ports.ErrNotFound

type (
	AuthError         = ports.AuthError
	TransientAPIError = ports.TransientAPIError
)

// DownloadError: la vidéo est abandonnée après épuisement des tentatives.
// Les autres vidéos de la semaine continuent.
type DownloadError struct {
	Path     string
	URL      string
	Attempts int
	Err      error
}

func (e *DownloadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("download %s failed after %d attempt(s): %v", e.Path, e.Attempts, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ConcatenationError: l'outil de concaténation a échoué.
// Les vidéos sources restent sur disque.
type ConcatenationError struct {
	Output string
	Err    error
}

func (e *ConcatenationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return "concatenation of " + e.Output + " failed"
	}
	return "concatenation of " + e.Output + " failed: " + e.Err.Error()
}

func (e *ConcatenationError) Unwrap() error { return e.Err }

// WeekError rattache une erreur à la semaine qui l'a produite.
type WeekError struct {
	Week int
	Err  error
}

func (e *WeekError) Error() string {
	return fmt.Sprintf("week %d: %v", e.Week, e.Err)
}

func (e *WeekError) Unwrap() error { return e.Err }
