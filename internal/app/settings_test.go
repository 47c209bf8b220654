package app

import (
	"context"
	"testing"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
)

func TestSettingsService_PutAppliesLimit(t *testing.T) {
	l := NewDynamicLimiter(1)
	svc := NewSettingsService(domain.Settings{MaxConcurrentDownloads: 3}, l)
	if l.Limit() != 3 {
		t.Fatalf("expected initial limit 3, got %d", l.Limit())
	}

	got, err := svc.Put(context.Background(), domain.Settings{MaxConcurrentDownloads: 6})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got.MaxConcurrentDownloads != 6 || l.Limit() != 6 {
		t.Fatalf("expected 6, got settings=%d limiter=%d", got.MaxConcurrentDownloads, l.Limit())
	}

	cur, _ := svc.Get(context.Background())
	if cur.MaxConcurrentDownloads != 6 {
		t.Fatalf("Get: expected 6, got %d", cur.MaxConcurrentDownloads)
	}
}

func TestSettingsService_PutDefaultsInvalidValue(t *testing.T) {
	l := NewDynamicLimiter(2)
	svc := NewSettingsService(domain.Settings{MaxConcurrentDownloads: 2}, l)

	got, err := svc.Put(context.Background(), domain.Settings{MaxConcurrentDownloads: 0})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	want := domain.DefaultConcurrency()
	if got.MaxConcurrentDownloads != want || l.Limit() != want {
		t.Fatalf("expected default %d, got settings=%d limiter=%d", want, got.MaxConcurrentDownloads, l.Limit())
	}
}
