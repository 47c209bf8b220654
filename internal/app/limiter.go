package app

import (
	"context"
	"sync"
)

// DynamicLimiter borne le nombre de téléchargements simultanés.
// Le plafond peut être modifié à chaud via SetLimit (API de statut);
// Acquire respecte le contexte, une interruption débloque donc les attentes.
type DynamicLimiter struct {
	mu       sync.Mutex
	limit    int
	inFlight int
	wake     chan struct{}
}

func NewDynamicLimiter(limit int) *DynamicLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &DynamicLimiter{limit: limit, wake: make(chan struct{})}
}

// LimiterStats est une photo de l'état du limiteur.
type LimiterStats struct {
	Limit    int `json:"limit"`
	InFlight int `json:"inFlight"`
}

func (l *DynamicLimiter) Stats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LimiterStats{Limit: l.limit, InFlight: l.inFlight}
}

func (l *DynamicLimiter) Limit() int { return l.Stats().Limit }

func (l *DynamicLimiter) InFlight() int { return l.Stats().InFlight }

func (l *DynamicLimiter) SetLimit(limit int) {
	if limit <= 0 {
		limit = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit == limit {
		return
	}
	l.limit = limit
	l.broadcastLocked()
}

func (l *DynamicLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.inFlight < l.limit {
			l.inFlight++
			l.mu.Unlock()
			return nil
		}
		wake := l.wake
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

func (l *DynamicLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight > 0 {
		l.inFlight--
	}
	l.broadcastLocked()
}

// Go lance fn dans une goroutine dès qu'une place se libère.
// Renvoie l'erreur du contexte si aucune place n'a pu être obtenue;
// fn n'est alors pas exécutée.
func (l *DynamicLimiter) Go(ctx context.Context, wg *sync.WaitGroup, fn func()) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer l.Release()
		fn()
	}()
	return nil
}

// broadcastLocked réveille tous les waiters (fermeture puis recréation du channel).
func (l *DynamicLimiter) broadcastLocked() {
	close(l.wake)
	l.wake = make(chan struct{})
}
