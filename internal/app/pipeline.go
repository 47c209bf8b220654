package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
)

// Request décrit un run: quel cours, quelle(s) semaine(s), où écrire.
type Request struct {
	CourseID int64
	// WeekID sélectionne une seule semaine (1-based); 0 = toutes.
	WeekID      int
	Quality     domain.Quality
	OutputDir   string
	OnWeekError domain.WeekErrorPolicy
}

func (r Request) withDefaults() Request {
	if r.Quality == "" {
		r.Quality = domain.DefaultQuality
	}
	if strings.TrimSpace(r.OutputDir) == "" {
		r.OutputDir = "."
	}
	if !r.OnWeekError.Valid() {
		r.OnWeekError = domain.WeekErrorSkip
	}
	return r
}

type WeekResult struct {
	Number       int    `json:"number"`
	Title        string `json:"title"`
	Videos       int    `json:"videos"`
	Downloaded   int    `json:"downloaded"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	Output       string `json:"output,omitempty"`
	Merged       bool   `json:"merged"`
	MergeSkipped bool   `json:"mergeSkipped,omitempty"`
	Error        string `json:"error,omitempty"`
	Err          error  `json:"-"`
}

type Summary struct {
	RunID       string       `json:"runId"`
	CourseID    int64        `json:"courseId"`
	CourseTitle string       `json:"courseTitle"`
	CourseDir   string       `json:"courseDir"`
	Weeks       []WeekResult `json:"weeks"`
}

// Totals cumule les compteurs de toutes les semaines.
func (s Summary) Totals() (downloaded, skipped, failed int) {
	for _, w := range s.Weeks {
		downloaded += w.Downloaded
		skipped += w.Skipped
		failed += w.Failed
	}
	return
}

func (s Summary) FailedWeeks() int {
	n := 0
	for _, w := range s.Weeks {
		if w.Err != nil {
			n++
		}
	}
	return n
}

func (s Summary) Outputs() []string {
	var out []string
	for _, w := range s.Weeks {
		if w.Merged {
			out = append(out, w.Output)
		}
	}
	return out
}

// Pipeline enchaîne résolution, téléchargement et assemblage, semaine par semaine.
// La résolution d'une semaine se termine avant que ses téléchargements ne démarrent.
type Pipeline struct {
	resolver  *CourseResolver
	scheduler *Scheduler
	assembler *Assembler
	bus       ports.EventBus
	logger    zerolog.Logger
}

func NewPipeline(resolver *CourseResolver, scheduler *Scheduler, assembler *Assembler, bus ports.EventBus, logger zerolog.Logger) *Pipeline {
	return &Pipeline{resolver: resolver, scheduler: scheduler, assembler: assembler, bus: bus, logger: logger}
}

// Run traite les semaines demandées dans l'ordre du cours.
// Erreur renvoyée: cours introuvable, contexte annulé, ou *WeekError
// quand une semaine échoue avec la politique abort.
func (p *Pipeline) Run(ctx context.Context, req Request) (Summary, error) {
	req = req.withDefaults()
	sum := Summary{RunID: xid.New().String(), CourseID: req.CourseID}
	log := p.logger.With().Str("run_id", sum.RunID).Int64("course", req.CourseID).Logger()

	course, err := p.resolver.Course(ctx, req.CourseID)
	if err != nil {
		return sum, err
	}
	sum.CourseTitle = course.Title

	weeks, err := p.resolver.ResolveWeeks(ctx, course)
	if err != nil {
		return sum, err
	}
	sum.CourseDir = filepath.Join(req.OutputDir, domain.CourseDirName(course))
	log.Info().Str("title", course.Title).Int("weeks", len(weeks)).Str("dir", sum.CourseDir).Msg("course resolved")

	if req.WeekID > 0 {
		if req.WeekID > len(weeks) {
			return sum, fmt.Errorf("week %d (course has %d): %w", req.WeekID, len(weeks), ErrNotFound)
		}
		weeks = weeks[req.WeekID-1 : req.WeekID]
	}

	for _, w := range weeks {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res := p.runWeek(ctx, log, sum.CourseDir, w, req.Quality)
		sum.Weeks = append(sum.Weeks, res)
		if res.Err == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if req.OnWeekError == domain.WeekErrorAbort {
			return sum, res.Err
		}
		log.Error().Err(res.Err).Int("week", w.Number).Msg("week failed, continuing with next week")
	}
	return sum, nil
}

func (p *Pipeline) runWeek(ctx context.Context, log zerolog.Logger, courseDir string, w domain.Week, quality domain.Quality) WeekResult {
	res := WeekResult{Number: w.Number, Title: w.Title()}
	log = log.With().Int("week", w.Number).Logger()
	log.Info().Str("title", w.Title()).Msg("processing week")
	publishJSON(p.bus, ports.TopicWeekStarted, res)

	videos, err := p.resolver.ResolveVideos(ctx, w.Section)
	if err != nil {
		return p.failWeek(res, err)
	}
	res.Videos = len(videos)
	if len(videos) == 0 {
		log.Warn().Msg("no video in this week")
		publishJSON(p.bus, ports.TopicWeekCompleted, res)
		return res
	}

	weekDir := filepath.Join(courseDir, domain.WeekDirName(w))
	names := make([]string, 0, len(videos))
	tasks := make([]*domain.DownloadTask, 0, len(videos))
	var unusable []error
	for i, v := range videos {
		name := domain.VideoFilename(i, len(videos), v)
		names = append(names, name)
		path := filepath.Join(weekDir, name)

		choice, err := domain.ChooseQuality(v, quality)
		if err != nil {
			log.Error().Err(err).Str("file", name).Msg("video has no downloadable url")
			unusable = append(unusable, &DownloadError{Path: path, Err: err})
			continue
		}
		if choice.UsedFallback {
			log.Warn().
				Int64("step", v.StepID).
				Str("requested", string(quality)).
				Str("used", choice.Quality).
				Msg("requested quality not available, using first url")
		}
		tasks = append(tasks, domain.NewDownloadTask(xid.New().String(), choice.URL, path))
	}

	report := p.scheduler.Schedule(ctx, tasks)
	res.Downloaded = report.Downloaded
	res.Skipped = report.Skipped
	res.Failed = len(report.Failed) + len(unusable)
	log.Info().
		Int("downloaded", res.Downloaded).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("week downloads finished")

	if err := ctx.Err(); err != nil {
		return p.failWeek(res, err)
	}

	manifest, err := p.assembler.WriteManifest(weekDir, names)
	if err != nil {
		return p.failWeek(res, fmt.Errorf("write manifest: %w", err))
	}

	if res.Failed > 0 || report.Canceled > 0 {
		errs := unusable
		for _, de := range report.Failed {
			errs = append(errs, de)
		}
		log.Warn().Msg("some downloads failed, merge skipped")
		return p.failWeek(res, fmt.Errorf("%d of %d video(s) missing, merge skipped: %w", res.Failed, len(videos), errors.Join(errs...)))
	}

	res.Output = filepath.Join(courseDir, domain.WeekOutputFilename(w))
	skipped, err := p.assembler.Concatenate(ctx, manifest, res.Output)
	if err != nil {
		return p.failWeek(res, err)
	}
	res.Merged = true
	res.MergeSkipped = skipped
	publishJSON(p.bus, ports.TopicWeekCompleted, res)
	return res
}

func (p *Pipeline) failWeek(res WeekResult, err error) WeekResult {
	res.Err = &WeekError{Week: res.Number, Err: err}
	res.Error = err.Error()
	publishJSON(p.bus, ports.TopicWeekFailed, res)
	return res
}
