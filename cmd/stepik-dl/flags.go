package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/config"
)

type options struct {
	configPath  string
	showVersion bool
}

var errUsage = errors.New("usage error")

// parseArgs applique, dans l'ordre: variables STEPIK_*, fichier --config, flags.
// Les flags sont lus deux fois: la première passe ne sert qu'à trouver --config.
func parseArgs(args []string, stderr io.Writer) (config.Config, options, error) {
	cfg := config.Default()
	var opts options
	if err := newFlagSet(&cfg, &opts, io.Discard).Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			newFlagSet(&cfg, &opts, stderr).Usage()
			return cfg, opts, err
		}
		newFlagSet(&cfg, &opts, stderr).Usage()
		return cfg, opts, fmt.Errorf("%w: %v", errUsage, err)
	}
	if opts.showVersion {
		return cfg, opts, nil
	}

	if opts.configPath != "" {
		cfg = config.Default()
		if err := cfg.LoadFile(opts.configPath); err != nil {
			return cfg, opts, fmt.Errorf("%w: %v", errUsage, err)
		}
		fs := newFlagSet(&cfg, &opts, stderr)
		if err := fs.Parse(args); err != nil {
			return cfg, opts, fmt.Errorf("%w: %v", errUsage, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, opts, fmt.Errorf("%w: %v", errUsage, err)
	}
	return cfg, opts, nil
}

func newFlagSet(cfg *config.Config, opts *options, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("stepik-dl", flag.ContinueOnError)
	fs.SetOutput(out)

	str := func(p *string, long, short, usage string) {
		fs.StringVar(p, long, *p, usage)
		if short != "" {
			fs.StringVar(p, short, *p, "alias de --"+long)
		}
	}
	str(&cfg.ClientID, "client_id", "c", "client id de l'application Stepik (obligatoire)")
	str(&cfg.ClientSecret, "client_secret", "s", "client secret de l'application Stepik (obligatoire)")
	fs.Int64Var(&cfg.CourseID, "course_id", cfg.CourseID, "id du cours (obligatoire)")
	fs.Int64Var(&cfg.CourseID, "i", cfg.CourseID, "alias de --course_id")
	fs.IntVar(&cfg.WeekID, "week_id", cfg.WeekID, "ne télécharger que cette semaine (à partir de 1)")
	fs.IntVar(&cfg.WeekID, "w", cfg.WeekID, "alias de --week_id")
	str(&cfg.Quality, "quality", "q", "qualité vidéo: 360, 720 ou 1080")
	str(&cfg.OutputDir, "output_dir", "o", "dossier de sortie")
	str(&cfg.Proxy, "proxy", "p", "URL de proxy HTTP(S)")

	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "téléchargements simultanés")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "tentatives par vidéo")
	str(&cfg.OnWeekError, "on_week_error", "", "semaine en échec: skip ou abort")
	str(&cfg.FFmpeg, "ffmpeg", "", "chemin de l'exécutable ffmpeg")
	str(&cfg.APIBase, "api_base", "", "URL de base de Stepik")
	str(&cfg.Listen, "listen", "", "adresse de l'API de statut (ex: 127.0.0.1:8080), vide = désactivée")
	str(&cfg.LogLevel, "log_level", "", "niveau de log: debug, info, warn, error")
	str(&cfg.LogFormat, "log_format", "", "format de log: console ou json")

	fs.StringVar(&opts.configPath, "config", opts.configPath, "fichier de configuration YAML")
	fs.BoolVar(&opts.showVersion, "version", opts.showVersion, "affiche la version et quitte")
	return fs
}
