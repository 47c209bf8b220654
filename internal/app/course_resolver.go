package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
)

// CourseResolver parcourt l'arborescence course -> sections -> units -> lessons -> steps.
// Chaque résolution renvoie des valeurs explicites, sans état partagé.
type CourseResolver struct {
	api    ports.CourseAPI
	logger zerolog.Logger
}

func NewCourseResolver(api ports.CourseAPI, logger zerolog.Logger) *CourseResolver {
	return &CourseResolver{api: api, logger: logger}
}

func (r *CourseResolver) Course(ctx context.Context, id int64) (domain.Course, error) {
	courses, err := r.api.Courses(ctx, []int64{id})
	if err != nil {
		return domain.Course{}, fmt.Errorf("resolve course %d: %w", id, err)
	}
	if len(courses) == 0 {
		return domain.Course{}, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return courses[0], nil
}

// ResolveWeeks renvoie les sections dans l'ordre du cours, numérotées à partir de 1.
func (r *CourseResolver) ResolveWeeks(ctx context.Context, course domain.Course) ([]domain.Week, error) {
	sections, err := r.api.Sections(ctx, course.SectionIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve sections of course %d: %w", course.ID, err)
	}
	r.warnMissing("sections", len(course.SectionIDs), len(sections))

	weeks := make([]domain.Week, 0, len(sections))
	for i, s := range sections {
		weeks = append(weeks, domain.Week{Number: i + 1, Section: s})
	}
	return weeks, nil
}

// ResolveVideos renvoie les vidéos d'une section dans l'ordre des steps,
// leçons prises dans l'ordre des units.
func (r *CourseResolver) ResolveVideos(ctx context.Context, section domain.Section) ([]domain.Video, error) {
	units, err := r.api.Units(ctx, section.UnitIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve units of section %d: %w", section.ID, err)
	}
	r.warnMissing("units", len(section.UnitIDs), len(units))

	lessonIDs := make([]int64, 0, len(units))
	for _, u := range units {
		lessonIDs = append(lessonIDs, u.LessonID)
	}
	lessons, err := r.api.Lessons(ctx, lessonIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve lessons of section %d: %w", section.ID, err)
	}
	r.warnMissing("lessons", len(lessonIDs), len(lessons))

	var stepIDs []int64
	titles := make(map[int64]string, len(lessons))
	for _, l := range lessons {
		stepIDs = append(stepIDs, l.StepIDs...)
		for _, sid := range l.StepIDs {
			titles[sid] = l.Title
		}
	}
	steps, err := r.api.Steps(ctx, stepIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve steps of section %d: %w", section.ID, err)
	}
	r.warnMissing("steps", len(stepIDs), len(steps))

	videos := make([]domain.Video, 0, len(steps))
	for _, st := range steps {
		v, ok := domain.VideoFromStep(st, titles[st.ID])
		if !ok {
			kind := "empty"
			if st.Content != nil {
				kind = string(st.Content.Kind())
			}
			r.logger.Debug().Int64("step", st.ID).Str("kind", kind).Msg("skip non-video step")
			continue
		}
		videos = append(videos, v)
	}
	return videos, nil
}

func (r *CourseResolver) warnMissing(kind string, requested, got int) {
	if got < requested {
		r.logger.Warn().Str("kind", kind).Int("requested", requested).Int("returned", got).Msg("api returned fewer items than requested")
	}
}
