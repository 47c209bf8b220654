package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
)

type recordingBus struct {
	mu     sync.Mutex
	events []ports.Event
}

func (b *recordingBus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ports.Event{Topic: topic, Payload: payload})
}

func (b *recordingBus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event)
	close(ch)
	return ch, func() {}
}

func (b *recordingBus) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Topic)
	}
	return out
}

func TestProgressTracker_ConcurrentReports(t *testing.T) {
	tr := NewProgressTracker(nil)
	tr.Start("a", "1. A.mp4", 0)
	tr.SetTotal("a", 1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				tr.Report("a", 10)
			}
		}()
	}
	wg.Wait()

	p, ok := tr.Get("a")
	if !ok || p.Bytes != 1000 || p.Percent() != 100 {
		t.Fatalf("unexpected progress: %+v", p)
	}

	tr.Reset("a")
	if p, _ := tr.Get("a"); p.Bytes != 0 || p.State != domain.TaskInProgress {
		t.Fatalf("Reset: unexpected progress %+v", p)
	}

	// id inconnu: ignoré
	tr.Report("missing", 5)
	if _, ok := tr.Get("missing"); ok {
		t.Fatalf("unknown task must not be created by Report")
	}
}

func TestProgressTracker_SnapshotAndEvents(t *testing.T) {
	bus := &recordingBus{}
	tr := NewProgressTracker(bus)

	tr.Start("a", "a.mp4", 10)
	tr.Report("a", 10)
	tr.SetRemaining("a", time.Second)
	tr.Done("a")

	tr.Start("b", "b.mp4", 0)
	tr.Fail("b", errors.New("boom"))

	tr.Skip("c", "c.mp4")
	tr.Start("d", "d.mp4", 0)

	snap := tr.Snapshot()
	if snap.Done != 1 || snap.Failed != 1 || snap.Skipped != 1 || snap.Active != 1 || snap.Bytes != 10 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if len(snap.Tasks) != 4 || snap.Tasks[0].ID != "a" || snap.Tasks[3].ID != "d" {
		t.Fatalf("snapshot must keep registration order: %+v", snap.Tasks)
	}

	want := []string{
		ports.TopicDownloadStarted, ports.TopicDownloadProgress, ports.TopicDownloadDone,
		ports.TopicDownloadStarted, ports.TopicDownloadFailed,
		ports.TopicDownloadDone,
		ports.TopicDownloadStarted,
	}
	got := bus.topics()
	if len(got) != len(want) {
		t.Fatalf("topics: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("topics: got %v want %v", got, want)
		}
	}

	var failed TaskProgress
	if err := json.Unmarshal(bus.events[4].Payload, &failed); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if failed.ID != "b" || failed.Error != "boom" || failed.State != domain.TaskFailed {
		t.Fatalf("unexpected failed payload: %+v", failed)
	}
}

func TestTaskProgress_PercentUnknownTotal(t *testing.T) {
	if pct := (TaskProgress{Bytes: 10}).Percent(); pct != -1 {
		t.Fatalf("expected -1, got %v", pct)
	}
}
