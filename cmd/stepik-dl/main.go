package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/adapters/ffmpeg"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/adapters/stepikapi"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/app"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/buildinfo"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/config"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/retry"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stderr))
}

func realMain(args []string, stderr io.Writer) int {
	cfg, opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if opts.showVersion {
		fmt.Fprintln(os.Stdout, buildinfo.Current().String())
		return exitOK
	}

	logger := newLogger(cfg, stderr)
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return exitCode(run(ctx, cfg, logger))
}

func newLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var w io.Writer = out
	if cfg.LogFormat != config.LogFormatJSON {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("app", "stepik-dl").Logger()
}

// exitCode: 1 pour un échec d'authentification, de résolution du cours,
// une interruption ou un abandon (politique abort); 0 sinon.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	return exitFailure
}

func newTransport(proxy string) (*http.Transport, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = 30 * time.Second
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy: %w", err)
		}
		tr.Proxy = http.ProxyURL(u)
	}
	return tr, nil
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	logger.Info().
		Interface("build", buildinfo.Current()).
		Int64("course_id", cfg.CourseID).
		Int("week_id", cfg.WeekID).
		Str("quality", cfg.Quality).
		Str("output_dir", cfg.OutputDir).
		Int("concurrency", cfg.Concurrency).
		Msg("starting")

	tr, err := newTransport(cfg.Proxy)
	if err != nil {
		return err
	}
	// API: timeout global. Téléchargements: pas de timeout, bornés par le contexte.
	apiHTTP := &http.Client{Transport: tr, Timeout: 30 * time.Second}
	downloadHTTP := &http.Client{Transport: tr}

	bus := memorybus.New()
	defer bus.Close()
	tracker := app.NewProgressTracker(bus)
	limiter := app.NewDynamicLimiter(cfg.Concurrency)
	settings := app.NewSettingsService(domain.Settings{MaxConcurrentDownloads: cfg.Concurrency}, limiter)

	if cfg.Listen != "" {
		shutdown := startStatusServer(ctx, cfg.Listen, logger, settings, tracker, limiter, bus)
		defer shutdown()
	}

	concat := ffmpeg.New(cfg.FFmpeg, logger.With().Str("component", "ffmpeg").Logger())
	if err := concat.Available(); err != nil {
		logger.Warn().Err(err).Msg("weekly merge will fail until ffmpeg is installed")
	}

	client := stepikapi.New(stepikapi.Options{
		BaseURL:      cfg.APIBase,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		HTTPClient:   apiHTTP,
		Logger:       logger.With().Str("component", "stepik-api").Logger(),
	})
	if _, err := client.Authenticate(ctx); err != nil {
		logger.Error().Err(err).Msg("authentication failed")
		return err
	}

	scheduler := app.NewScheduler(downloadHTTP, limiter, tracker, logger.With().Str("component", "downloader").Logger(), app.SchedulerOptions{
		Retry: retry.Download().WithMaxAttempts(cfg.Retries),
	})
	pipeline := app.NewPipeline(
		app.NewCourseResolver(client, logger.With().Str("component", "resolver").Logger()),
		scheduler,
		app.NewAssembler(concat, logger.With().Str("component", "assembler").Logger()),
		bus,
		logger,
	)

	reporterCtx, stopReporter := context.WithCancel(ctx)
	defer stopReporter()
	go app.NewConsoleReporter(tracker, logger.With().Str("component", "progress").Logger(), 2*time.Second).Run(reporterCtx)

	sum, err := pipeline.Run(ctx, app.Request{
		CourseID:    cfg.CourseID,
		WeekID:      cfg.WeekID,
		Quality:     domain.Quality(cfg.Quality),
		OutputDir:   cfg.OutputDir,
		OnWeekError: domain.WeekErrorPolicy(cfg.OnWeekError),
	})
	logSummary(logger, sum)

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		logger.Warn().Msg("interrupted")
	default:
		logger.Error().Err(err).Msg("run failed")
	}
	return err
}

func logSummary(logger zerolog.Logger, sum app.Summary) {
	for _, w := range sum.Weeks {
		evt := logger.Info()
		if w.Err != nil {
			evt = logger.Warn().Err(w.Err)
		}
		evt.Int("week", w.Number).
			Str("title", w.Title).
			Int("videos", w.Videos).
			Int("downloaded", w.Downloaded).
			Int("skipped", w.Skipped).
			Int("failed", w.Failed).
			Str("output", w.Output).
			Msg("week summary")
	}
	downloaded, skipped, failed := sum.Totals()
	logger.Info().
		Str("run_id", sum.RunID).
		Str("course", sum.CourseTitle).
		Int("weeks", len(sum.Weeks)).
		Int("failed_weeks", sum.FailedWeeks()).
		Int("downloaded", downloaded).
		Int("skipped", skipped).
		Int("failed", failed).
		Strs("outputs", sum.Outputs()).
		Msg("done")
}

func startStatusServer(ctx context.Context, addr string, logger zerolog.Logger, settings *app.SettingsService, tracker *app.ProgressTracker, limiter *app.DynamicLimiter, bus *memorybus.Bus) func() {
	srvLogger := logger.With().Str("component", "status-api").Logger()
	srv := httpapi.NewServer(srvLogger, settings, tracker, limiter, bus)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		srvLogger.Info().Str("addr", addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvLogger.Error().Err(err).Msg("status server crashed")
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		// les flux SSE ne se terminent qu'à la fermeture du bus
		bus.Close()
		_ = httpServer.Shutdown(shutdownCtx)
	}
}
