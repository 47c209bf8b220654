package domain

import (
	"errors"
	"fmt"
)

// Quality est un palier de résolution demandé par l'utilisateur.
type Quality string

const (
	Quality360  Quality = "360"
	Quality720  Quality = "720"
	Quality1080 Quality = "1080"

	DefaultQuality = Quality720
)

var ErrNoVideoURL = errors.New("video has no url")

func Qualities() []Quality {
	return []Quality{Quality360, Quality720, Quality1080}
}

func ParseQuality(s string) (Quality, error) {
	for _, q := range Qualities() {
		if string(q) == s {
			return q, nil
		}
	}
	return "", fmt.Errorf("unsupported quality %q (want 360, 720 or 1080)", s)
}

// Choice est l'URL retenue pour une vidéo.
type Choice struct {
	URL          string
	Quality      string
	UsedFallback bool
}

// ChooseQuality sélectionne l'URL dont le label vaut requested.
// Sinon, la première URL dans l'ordre renvoyé par l'API est utilisée
// et UsedFallback vaut true.
func ChooseQuality(v Video, requested Quality) (Choice, error) {
	if len(v.URLs) == 0 {
		return Choice{}, fmt.Errorf("step %d: %w", v.StepID, ErrNoVideoURL)
	}
	for _, u := range v.URLs {
		if u.Quality == string(requested) {
			return Choice{URL: u.URL, Quality: u.Quality}, nil
		}
	}
	first := v.URLs[0]
	return Choice{URL: first.URL, Quality: first.Quality, UsedFallback: true}, nil
}
