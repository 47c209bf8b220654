// Package ffmpeg concatène les vidéos d'une semaine via l'exécutable ffmpeg.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
)

const (
	DefaultBinary = "ffmpeg"

	LogLevel     = "error"
	ConcatFormat = "concat"
	CodecCopy    = "copy"

	// stderr conservé dans les messages d'erreur
	maxStderr = 4 << 10
)

var _ ports.Concatenator = (*Runner)(nil)

// Runner lance ffmpeg avec le démultiplexeur concat, sans ré-encodage.
type Runner struct {
	binary string
	logger zerolog.Logger
}

func New(binary string, logger zerolog.Logger) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	return &Runner{binary: binary, logger: logger}
}

func (r *Runner) Binary() string { return r.binary }

// Available vérifie que l'exécutable est trouvable dans le PATH.
func (r *Runner) Available() error {
	if _, err := exec.LookPath(r.binary); err != nil {
		return fmt.Errorf("ffmpeg not found (%s): %w", r.binary, err)
	}
	return nil
}

// Concat assemble les fichiers listés dans manifestPath vers outputPath.
// Les chemins du manifeste sont relatifs à son répertoire.
func (r *Runner) Concat(ctx context.Context, manifestPath, outputPath string) error {
	args := buildConcatArgs(manifestPath, outputPath)
	cmd := exec.CommandContext(ctx, r.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &limitedBuffer{buf: &stderr, max: maxStderr}

	r.logger.Debug().Str("binary", r.binary).Strs("args", args).Msg("running ffmpeg")
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("ffmpeg: %w", err)
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	return nil
}

func buildConcatArgs(manifestPath, outputPath string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", LogLevel,
		"-f", ConcatFormat,
		"-safe", "0", // chemins arbitraires dans le manifeste
		"-i", manifestPath,
		"-c", CodecCopy,
		outputPath,
	}
}

type limitedBuffer struct {
	buf *bytes.Buffer
	max int
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	if room := l.max - l.buf.Len(); room > 0 {
		if len(p) > room {
			l.buf.Write(p[:room])
		} else {
			l.buf.Write(p)
		}
	}
	return len(p), nil
}
