package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
)

// CourseAPI expose les ressources de l'arborescence d'un cours.
// Chaque méthode renvoie les enregistrements dans l'ordre des ids demandés;
// les ids inconnus de l'API sont omis.
type CourseAPI interface {
	Courses(ctx context.Context, ids []int64) ([]domain.Course, error)
	Sections(ctx context.Context, ids []int64) ([]domain.Section, error)
	Units(ctx context.Context, ids []int64) ([]domain.Unit, error)
	Lessons(ctx context.Context, ids []int64) ([]domain.Lesson, error)
	Steps(ctx context.Context, ids []int64) ([]domain.Step, error)
}

// Concatenator fusionne sans ré-encodage les fichiers listés dans un manifest.
type Concatenator interface {
	Concat(ctx context.Context, manifestPath, outputPath string) error
}
