// Package retry fournit une politique de nouvelles tentatives unique,
// partagée par le client API et le téléchargeur.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy décrit combien de fois et à quel rythme réessayer.
// Retryable décide si une erreur mérite une nouvelle tentative; nil = toujours.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          float64
	Retryable       func(error) bool
}

// Notify est appelée avant chaque attente, avec le numéro de la tentative échouée.
type Notify func(attempt int, err error, wait time.Duration)

// API: 5 tentatives, backoff exponentiel 500ms -> 8s.
func API() Policy {
	return Policy{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
		Multiplier:      2,
		Jitter:          0.2,
	}
}

// Download: 3 tentatives, pause fixe d'une seconde.
func Download() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     time.Second,
		Multiplier:      1,
	}
}

func (p Policy) WithMaxAttempts(n int) Policy {
	if n > 0 {
		p.MaxAttempts = n
	}
	return p
}

func (p Policy) WithRetryable(fn func(error) bool) Policy {
	p.Retryable = fn
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Millisecond
	}
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do exécute op jusqu'au succès, une erreur non retryable, l'épuisement
// des tentatives ou l'annulation du contexte. Renvoie le nombre de
// tentatives effectuées et la dernière erreur.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error, notify Notify) (int, error) {
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		if notify != nil {
			notify(attempt, err, wait)
		}
	})
	return attempt, err
}
