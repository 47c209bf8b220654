package app

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
)

// TaskProgress est l'état d'avancement d'un téléchargement.
type TaskProgress struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	State     domain.TaskState `json:"state"`
	Bytes     int64            `json:"bytes"`
	Total     int64            `json:"total"`
	Remaining time.Duration    `json:"remainingNs,omitempty"`
	Skipped   bool             `json:"skipped,omitempty"`
	Error     string           `json:"error,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Percent vaut -1 quand la taille totale est inconnue.
func (p TaskProgress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Bytes) / float64(p.Total) * 100
}

type ProgressSnapshot struct {
	Tasks      []TaskProgress `json:"tasks"`
	Active     int            `json:"active"`
	Done       int            `json:"done"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Bytes      int64          `json:"bytes"`
	CapturedAt time.Time      `json:"capturedAt"`
}

// ProgressTracker agrège l'avancement de tous les téléchargements.
// Les workers n'écrivent jamais sur la console: ils rapportent ici.
type ProgressTracker struct {
	mu    sync.Mutex
	tasks map[string]*TaskProgress
	order []string
	bus   ports.EventBus
	now   func() time.Time
}

func NewProgressTracker(bus ports.EventBus) *ProgressTracker {
	return &ProgressTracker{
		tasks: make(map[string]*TaskProgress),
		bus:   bus,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (t *ProgressTracker) Start(id, name string, total int64) {
	t.mu.Lock()
	p, ok := t.tasks[id]
	if !ok {
		p = &TaskProgress{ID: id}
		t.tasks[id] = p
		t.order = append(t.order, id)
	}
	p.Name = name
	p.State = domain.TaskInProgress
	p.Bytes = 0
	p.Total = total
	p.Remaining = 0
	p.Error = ""
	p.UpdatedAt = t.now()
	cp := *p
	t.mu.Unlock()

	publishProgress(t.bus, ports.TopicDownloadStarted, cp)
}

// SetTotal renseigne la taille annoncée par le serveur (Content-Length).
func (t *ProgressTracker) SetTotal(id string, total int64) {
	t.update(id, func(p *TaskProgress) { p.Total = total })
}

// Report ajoute delta octets reçus pour la tâche id.
func (t *ProgressTracker) Report(id string, delta int64) {
	t.update(id, func(p *TaskProgress) { p.Bytes += delta })
}

// Reset remet le compteur à zéro avant une nouvelle tentative.
func (t *ProgressTracker) Reset(id string) {
	t.update(id, func(p *TaskProgress) {
		p.Bytes = 0
		p.Remaining = 0
		p.State = domain.TaskInProgress
	})
}

// SetRemaining enregistre l'estimation de temps restant et publie un
// événement download.progress.
func (t *ProgressTracker) SetRemaining(id string, d time.Duration) {
	if cp, ok := t.update(id, func(p *TaskProgress) { p.Remaining = d }); ok {
		publishProgress(t.bus, ports.TopicDownloadProgress, cp)
	}
}

// Skip enregistre une tâche terminée sans transfert (fichier déjà présent).
func (t *ProgressTracker) Skip(id, name string) {
	t.mu.Lock()
	p, ok := t.tasks[id]
	if !ok {
		p = &TaskProgress{ID: id}
		t.tasks[id] = p
		t.order = append(t.order, id)
	}
	p.Name = name
	p.State = domain.TaskDone
	p.Skipped = true
	p.UpdatedAt = t.now()
	cp := *p
	t.mu.Unlock()

	publishProgress(t.bus, ports.TopicDownloadDone, cp)
}

func (t *ProgressTracker) Done(id string) {
	cp, ok := t.update(id, func(p *TaskProgress) {
		p.State = domain.TaskDone
		p.Remaining = 0
		if p.Total <= 0 {
			p.Total = p.Bytes
		}
	})
	if ok {
		publishProgress(t.bus, ports.TopicDownloadDone, cp)
	}
}

func (t *ProgressTracker) Fail(id string, err error) {
	cp, ok := t.update(id, func(p *TaskProgress) {
		p.State = domain.TaskFailed
		p.Remaining = 0
		if err != nil {
			p.Error = err.Error()
		}
	})
	if ok {
		publishProgress(t.bus, ports.TopicDownloadFailed, cp)
	}
}

func (t *ProgressTracker) Get(id string) (TaskProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.tasks[id]
	if !ok {
		return TaskProgress{}, false
	}
	return *p, true
}

// Snapshot renvoie une copie cohérente, dans l'ordre d'enregistrement.
func (t *ProgressTracker) Snapshot() ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := ProgressSnapshot{Tasks: make([]TaskProgress, 0, len(t.order)), CapturedAt: t.now()}
	for _, id := range t.order {
		p := *t.tasks[id]
		snap.Tasks = append(snap.Tasks, p)
		snap.Bytes += p.Bytes
		switch {
		case p.State == domain.TaskDone && p.Skipped:
			snap.Skipped++
		case p.State == domain.TaskDone:
			snap.Done++
		case p.State == domain.TaskFailed:
			snap.Failed++
		case p.State == domain.TaskInProgress:
			snap.Active++
		}
	}
	return snap
}

func (t *ProgressTracker) update(id string, fn func(p *TaskProgress)) (TaskProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.tasks[id]
	if !ok {
		return TaskProgress{}, false
	}
	fn(p)
	p.UpdatedAt = t.now()
	return *p, true
}

func publishProgress(bus ports.EventBus, topic string, p TaskProgress) {
	publishJSON(bus, topic, p)
}

// publishJSON publie au mieux: un bus absent ou une erreur d'encodage
// ne doit jamais interrompre un téléchargement.
func publishJSON(bus ports.EventBus, topic string, v any) {
	if bus == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	bus.Publish(topic, b)
}

// ConsoleReporter affiche périodiquement les téléchargements en cours via le logger.
type ConsoleReporter struct {
	tracker  *ProgressTracker
	logger   zerolog.Logger
	interval time.Duration
}

func NewConsoleReporter(tracker *ProgressTracker, logger zerolog.Logger, interval time.Duration) *ConsoleReporter {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ConsoleReporter{tracker: tracker, logger: logger, interval: interval}
}

// Run bloque jusqu'à l'annulation du contexte.
func (r *ConsoleReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *ConsoleReporter) report() {
	snap := r.tracker.Snapshot()
	if snap.Active == 0 {
		return
	}
	active := make([]TaskProgress, 0, snap.Active)
	for _, p := range snap.Tasks {
		if p.State == domain.TaskInProgress {
			active = append(active, p)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Name < active[j].Name })

	for _, p := range active {
		evt := r.logger.Info().Str("file", p.Name).Int64("bytes", p.Bytes)
		if pct := p.Percent(); pct >= 0 {
			evt = evt.Str("percent", formatPercent(pct))
		}
		if p.Remaining > 0 {
			evt = evt.Dur("eta", p.Remaining.Round(time.Second))
		}
		evt.Msg("downloading")
	}
	r.logger.Debug().
		Int("active", snap.Active).
		Int("done", snap.Done).
		Int("skipped", snap.Skipped).
		Int("failed", snap.Failed).
		Msg("progress")
}

func formatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 1, 64) + "%"
}
