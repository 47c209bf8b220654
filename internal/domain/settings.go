package domain

import "runtime"

// WeekErrorPolicy décide du sort du run quand une semaine échoue.
type WeekErrorPolicy string

const (
	WeekErrorSkip  WeekErrorPolicy = "skip"
	WeekErrorAbort WeekErrorPolicy = "abort"
)

func (p WeekErrorPolicy) Valid() bool {
	return p == WeekErrorSkip || p == WeekErrorAbort
}

// Settings regroupe les réglages ajustables à chaud via l'API de statut.
type Settings struct {
	MaxConcurrentDownloads int `json:"maxConcurrentDownloads"`
}

// DefaultConcurrency vaut min(8, 2×GOMAXPROCS).
func DefaultConcurrency() int {
	n := 2 * runtime.GOMAXPROCS(0)
	if n > 8 {
		n = 8
	}
	if n <= 0 {
		n = 1
	}
	return n
}

func DefaultSettings() Settings {
	return Settings{MaxConcurrentDownloads: DefaultConcurrency()}
}
