package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/machinebox/progress"
	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/retry"
)

const (
	DefaultChunkSize = 8 << 10
	partSuffix       = ".part"
)

type SchedulerOptions struct {
	ChunkSize int
	Retry     retry.Policy
	// ProgressInterval rythme les estimations de temps restant.
	ProgressInterval time.Duration
}

func DefaultSchedulerOptions() SchedulerOptions {
	return SchedulerOptions{
		ChunkSize:        DefaultChunkSize,
		Retry:            retry.Download(),
		ProgressInterval: time.Second,
	}
}

// Report résume un appel à Schedule.
type Report struct {
	Downloaded int
	Skipped    int
	Failed     []*DownloadError
	// Canceled compte les tâches jamais terminées (interruption).
	Canceled int
}

// Complete vaut true quand chaque tâche a son fichier sur disque.
func (r Report) Complete() bool {
	return len(r.Failed) == 0 && r.Canceled == 0
}

// Scheduler télécharge un lot de tâches en parallèle, borné par le limiteur.
// Une tâche en échec n'affecte pas les autres.
type Scheduler struct {
	client  *http.Client
	limiter *DynamicLimiter
	tracker *ProgressTracker
	policy  retry.Policy
	chunk   int
	tick    time.Duration
	logger  zerolog.Logger
}

func NewScheduler(client *http.Client, limiter *DynamicLimiter, tracker *ProgressTracker, logger zerolog.Logger, opts SchedulerOptions) *Scheduler {
	def := DefaultSchedulerOptions()
	if client == nil {
		client = http.DefaultClient
	}
	if limiter == nil {
		limiter = NewDynamicLimiter(domain.DefaultConcurrency())
	}
	if tracker == nil {
		tracker = NewProgressTracker(nil)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = def.Retry
	}
	if opts.Retry.Retryable == nil {
		opts.Retry = opts.Retry.WithRetryable(isRetryableDownload)
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = def.ProgressInterval
	}
	return &Scheduler{
		client:  client,
		limiter: limiter,
		tracker: tracker,
		policy:  opts.Retry,
		chunk:   opts.ChunkSize,
		tick:    opts.ProgressInterval,
		logger:  logger,
	}
}

// Schedule exécute toutes les tâches et attend leur fin.
// Les fichiers déjà présents sont marqués terminés sans requête.
// Après annulation du contexte, plus aucun téléchargement ne démarre.
func (s *Scheduler) Schedule(ctx context.Context, tasks []*domain.DownloadTask) Report {
	var wg sync.WaitGroup
	for _, t := range tasks {
		if fileExists(t.Path) {
			t.Skipped = true
			_ = t.Transition(domain.TaskDone)
			s.tracker.Skip(t.ID, filepath.Base(t.Path))
			s.logger.Info().Str("file", t.Path).Msg("already downloaded, skipping")
			continue
		}
		if ctx.Err() != nil {
			break
		}
		task := t
		if err := s.limiter.Go(ctx, &wg, func() { s.download(ctx, task) }); err != nil {
			break
		}
	}
	wg.Wait()
	return summarize(tasks)
}

func summarize(tasks []*domain.DownloadTask) Report {
	var r Report
	for _, t := range tasks {
		switch t.State {
		case domain.TaskDone:
			if t.Skipped {
				r.Skipped++
			} else {
				r.Downloaded++
			}
		case domain.TaskFailed:
			var de *DownloadError
			if errors.As(t.Err, &de) {
				r.Failed = append(r.Failed, de)
			} else {
				r.Failed = append(r.Failed, &DownloadError{Path: t.Path, URL: t.URL, Err: t.Err})
			}
		default:
			r.Canceled++
		}
	}
	return r
}

func (s *Scheduler) download(ctx context.Context, t *domain.DownloadTask) {
	name := filepath.Base(t.Path)
	log := s.logger.With().Str("task", t.ID).Str("file", name).Logger()

	s.tracker.Start(t.ID, name, 0)
	attempts, err := s.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		_ = t.Transition(domain.TaskInProgress)
		if attempt > 1 {
			s.tracker.Reset(t.ID)
		}
		return s.fetch(ctx, t)
	}, func(attempt int, err error, wait time.Duration) {
		_ = t.Transition(domain.TaskPending)
		log.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("download failed, retrying")
	})

	switch {
	case err == nil:
		_ = t.Transition(domain.TaskDone)
		s.tracker.Done(t.ID)
		log.Info().Int("attempts", attempts).Msg("downloaded")
	case ctx.Err() != nil:
		// interrompu: la tâche reste à faire au prochain lancement
		_ = t.Transition(domain.TaskPending)
		t.Err = ctx.Err()
		s.tracker.Fail(t.ID, ctx.Err())
		log.Warn().Msg("download interrupted")
	default:
		dlErr := &DownloadError{Path: t.Path, URL: t.URL, Attempts: attempts, Err: err}
		t.Err = dlErr
		_ = t.Transition(domain.TaskFailed)
		s.tracker.Fail(t.ID, dlErr)
		log.Error().Err(err).Int("attempts", attempts).Msg("download failed")
	}
}

// fetch effectue une tentative complète: requête, écriture dans <path>.part
// puis renommage. Le fichier partiel est supprimé en cas d'échec.
func (s *Scheduler) fetch(ctx context.Context, t *domain.DownloadTask) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return &invalidRequestError{err: err}
	}
	req.Header.Set("User-Agent", "stepik-dl")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return &ports.StatusError{URL: t.URL, Status: resp.StatusCode}
	}
	if resp.ContentLength > 0 {
		s.tracker.SetTotal(t.ID, resp.ContentLength)
	}

	if err := os.MkdirAll(filepath.Dir(t.Path), 0o755); err != nil {
		return err
	}
	part := t.Path + partSuffix
	f, err := os.Create(part)
	if err != nil {
		return err
	}

	n, err := s.copy(ctx, t.ID, f, resp.Body, resp.ContentLength)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && resp.ContentLength > 0 && n != resp.ContentLength {
		err = io.ErrUnexpectedEOF
	}
	if err == nil {
		err = os.Rename(part, t.Path)
	}
	if err != nil {
		_ = os.Remove(part)
		return err
	}
	return nil
}

// copy transfère src vers dst par blocs de ChunkSize en rapportant chaque bloc.
func (s *Scheduler) copy(ctx context.Context, id string, dst io.Writer, src io.Reader, size int64) (int64, error) {
	r := progress.NewReader(src)
	if size > 0 {
		tickCtx, stop := context.WithCancel(ctx)
		ticking := make(chan struct{})
		defer func() {
			stop()
			<-ticking
		}()
		go func() {
			defer close(ticking)
			for p := range progress.NewTicker(tickCtx, r, size, s.tick) {
				if d := p.Remaining(); d > 0 {
					s.tracker.SetRemaining(id, d)
				}
			}
		}()
	}

	buf := make([]byte, s.chunk)
	var written int64
	for {
		nr, rerr := r.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			s.tracker.Report(id, int64(nw))
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

type invalidRequestError struct {
	err error
}

func (e *invalidRequestError) Error() string { return "invalid download request: " + e.err.Error() }
func (e *invalidRequestError) Unwrap() error { return e.err }

// isRetryableDownload: erreurs réseau/IO et 429/5xx; les autres statuts HTTP échouent aussitôt.
func isRetryableDownload(err error) bool {
	var se *ports.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var ir *invalidRequestError
	return !errors.As(err, &ir)
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
