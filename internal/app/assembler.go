package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
)

const ManifestName = "manifest.txt"

// Assembler écrit le manifeste d'une semaine et fusionne ses vidéos.
type Assembler struct {
	concat ports.Concatenator
	logger zerolog.Logger
}

func NewAssembler(concat ports.Concatenator, logger zerolog.Logger) *Assembler {
	return &Assembler{concat: concat, logger: logger}
}

// WriteManifest écrit une ligne `file '<name>'` par vidéo, dans l'ordre donné.
// Le fichier est réécrit à chaque appel.
func (a *Assembler) WriteManifest(weekDir string, names []string) (string, error) {
	if err := os.MkdirAll(weekDir, 0o755); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, name := range names {
		buf.WriteString("file '")
		buf.WriteString(quoteManifest(name))
		buf.WriteString("'\n")
	}
	path := filepath.Join(weekDir, ManifestName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Concatenate fusionne les vidéos du manifeste dans output.
// Une sortie déjà présente n'est pas régénérée; une sortie partielle est supprimée.
// Renvoie skipped=true quand output existait déjà.
func (a *Assembler) Concatenate(ctx context.Context, manifest, output string) (bool, error) {
	if fileExists(output) {
		a.logger.Info().Str("output", output).Msg("merged file already exists, skipping")
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return false, &ConcatenationError{Output: output, Err: err}
	}
	if err := a.concat.Concat(ctx, manifest, output); err != nil {
		_ = os.Remove(output)
		return false, &ConcatenationError{Output: output, Err: err}
	}
	if !fileExists(output) {
		return false, &ConcatenationError{Output: output, Err: os.ErrNotExist}
	}
	a.logger.Info().Str("output", output).Msg("week merged")
	return false, nil
}

// quoteManifest échappe les apostrophes selon la syntaxe du démultiplexeur concat.
func quoteManifest(name string) string {
	return strings.ReplaceAll(name, "'", `'\''`)
}
