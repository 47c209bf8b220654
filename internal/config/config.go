// Package config assemble la configuration d'un run: variables STEPIK_*,
// fichier YAML optionnel, puis flags de la ligne de commande.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
)

type Config struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CourseID     int64  `yaml:"course_id"`
	// WeekID vaut 0 quand toutes les semaines sont demandées.
	WeekID    int    `yaml:"week_id"`
	Quality   string `yaml:"quality"`
	OutputDir string `yaml:"output_dir"`

	Proxy       string `yaml:"proxy"`
	Concurrency int    `yaml:"concurrency"`
	Retries     int    `yaml:"retries"`
	OnWeekError string `yaml:"on_week_error"`
	FFmpeg      string `yaml:"ffmpeg"`
	APIBase     string `yaml:"api_base"`
	Listen      string `yaml:"listen"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

func Default() Config {
	return Config{
		ClientID:     envOr("STEPIK_CLIENT_ID", ""),
		ClientSecret: envOr("STEPIK_CLIENT_SECRET", ""),
		CourseID:     envInt64("STEPIK_COURSE_ID", 0),
		WeekID:       envInt("STEPIK_WEEK_ID", 0),
		Quality:      envOr("STEPIK_QUALITY", string(domain.DefaultQuality)),
		OutputDir:    envOr("STEPIK_OUTPUT_DIR", "."),
		Proxy:        envOr("STEPIK_PROXY", ""),
		Concurrency:  envInt("STEPIK_CONCURRENCY", domain.DefaultConcurrency()),
		Retries:      envInt("STEPIK_RETRIES", 3),
		OnWeekError:  envOr("STEPIK_ON_WEEK_ERROR", string(domain.WeekErrorSkip)),
		FFmpeg:       envOr("STEPIK_FFMPEG", "ffmpeg"),
		APIBase:      envOr("STEPIK_API_BASE", "https://stepik.org"),
		Listen:       envOr("STEPIK_LISTEN", ""),
		LogLevel:     envOr("STEPIK_LOG_LEVEL", "info"),
		LogFormat:    envOr("STEPIK_LOG_FORMAT", LogFormatConsole),
	}
}

// LoadFile applique les valeurs non vides du fichier YAML sur c.
// Les clés inconnues sont refusées.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var fc Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.merge(fc)
	return nil
}

func (c *Config) merge(o Config) {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setStr(&c.ClientID, o.ClientID)
	setStr(&c.ClientSecret, o.ClientSecret)
	setStr(&c.Quality, o.Quality)
	setStr(&c.OutputDir, o.OutputDir)
	setStr(&c.Proxy, o.Proxy)
	setStr(&c.OnWeekError, o.OnWeekError)
	setStr(&c.FFmpeg, o.FFmpeg)
	setStr(&c.APIBase, o.APIBase)
	setStr(&c.Listen, o.Listen)
	setStr(&c.LogLevel, o.LogLevel)
	setStr(&c.LogFormat, o.LogFormat)
	if o.CourseID != 0 {
		c.CourseID = o.CourseID
	}
	if o.WeekID != 0 {
		c.WeekID = o.WeekID
	}
	if o.Concurrency != 0 {
		c.Concurrency = o.Concurrency
	}
	if o.Retries != 0 {
		c.Retries = o.Retries
	}
}

// Validate renvoie toutes les erreurs d'un coup.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ClientID) == "" {
		errs = append(errs, errors.New("client_id is required"))
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		errs = append(errs, errors.New("client_secret is required"))
	}
	if c.CourseID <= 0 {
		errs = append(errs, errors.New("course_id is required"))
	}
	if c.WeekID < 0 {
		errs = append(errs, fmt.Errorf("week_id must be >= 1, got %d", c.WeekID))
	}
	if _, err := domain.ParseQuality(c.Quality); err != nil {
		errs = append(errs, err)
	}
	if !domain.WeekErrorPolicy(c.OnWeekError).Valid() {
		errs = append(errs, fmt.Errorf("on_week_error must be skip or abort, got %q", c.OnWeekError))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency))
	}
	if c.Retries < 1 {
		errs = append(errs, fmt.Errorf("retries must be >= 1, got %d", c.Retries))
	}
	if c.Proxy != "" {
		if u, err := url.Parse(c.Proxy); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid proxy url %q", c.Proxy))
		}
	}
	if u, err := url.Parse(c.APIBase); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid api_base %q", c.APIBase))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log_level %q", c.LogLevel))
	}
	if c.LogFormat != LogFormatConsole && c.LogFormat != LogFormatJSON {
		errs = append(errs, fmt.Errorf("log_format must be console or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Redacted masque le secret pour les logs.
func (c Config) Redacted() Config {
	if c.ClientSecret != "" {
		c.ClientSecret = "***"
	}
	return c
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return def
}
