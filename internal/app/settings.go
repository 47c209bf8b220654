package app

import (
	"context"
	"sync"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
)

// SettingsService garde les réglages du run en mémoire.
// Put applique immédiatement le plafond de téléchargements au limiteur.
type SettingsService struct {
	mu       sync.Mutex
	settings domain.Settings
	limiter  *DynamicLimiter
}

func NewSettingsService(initial domain.Settings, limiter *DynamicLimiter) *SettingsService {
	if initial.MaxConcurrentDownloads <= 0 {
		initial.MaxConcurrentDownloads = domain.DefaultSettings().MaxConcurrentDownloads
	}
	if limiter != nil {
		limiter.SetLimit(initial.MaxConcurrentDownloads)
	}
	return &SettingsService{settings: initial, limiter: limiter}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *SettingsService) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if settings.MaxConcurrentDownloads <= 0 {
		settings.MaxConcurrentDownloads = domain.DefaultSettings().MaxConcurrentDownloads
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.SetLimit(settings.MaxConcurrentDownloads)
	}
	return settings, nil
}
