package stepikapi

import (
	"context"
	"time"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/domain"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
)

// Types de ressources exposés par /api/<kind>.
const (
	KindCourses  = "courses"
	KindSections = "sections"
	KindUnits    = "units"
	KindLessons  = "lessons"
	KindSteps    = "steps"
)

var _ ports.CourseAPI = (*Client)(nil)

type courseDTO struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Sections []int64 `json:"sections"`
}

type sectionDTO struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Position int     `json:"position"`
	Units    []int64 `json:"units"`
}

type unitDTO struct {
	ID     int64 `json:"id"`
	Lesson int64 `json:"lesson"`
}

type lessonDTO struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Steps []int64 `json:"steps"`
}

type stepDTO struct {
	ID       int64    `json:"id"`
	Lesson   int64    `json:"lesson"`
	Position int      `json:"position"`
	Block    blockDTO `json:"block"`
}

type blockDTO struct {
	Name  string    `json:"name"`
	Text  string    `json:"text"`
	Video *videoDTO `json:"video"`
}

type videoDTO struct {
	ID       int64         `json:"id"`
	Duration float64       `json:"duration"`
	URLs     []videoURLDTO `json:"urls"`
}

type videoURLDTO struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// content convertit le bloc en variante typée. Le tag "name" fait foi;
// un bloc "video" sans charge utile n'est pas une vidéo exploitable.
func (b blockDTO) content() domain.Content {
	switch domain.ContentKind(b.Name) {
	case domain.ContentVideo:
		if b.Video == nil {
			return domain.OtherContent{Name: b.Name}
		}
		urls := make([]domain.VideoURL, 0, len(b.Video.URLs))
		for _, u := range b.Video.URLs {
			urls = append(urls, domain.VideoURL{Quality: u.Quality, URL: u.URL})
		}
		return domain.VideoContent{
			VideoID:  b.Video.ID,
			Duration: time.Duration(b.Video.Duration * float64(time.Second)),
			URLs:     urls,
		}
	case domain.ContentText:
		return domain.TextContent{Text: b.Text}
	default:
		return domain.OtherContent{Name: b.Name}
	}
}

func (c *Client) Courses(ctx context.Context, ids []int64) ([]domain.Course, error) {
	dtos, err := fetch(ctx, c, KindCourses, ids, func(d courseDTO) int64 { return d.ID })
	if err != nil {
		return nil, err
	}
	out := make([]domain.Course, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, domain.Course{ID: d.ID, Title: d.Title, SectionIDs: d.Sections})
	}
	return out, nil
}

func (c *Client) Sections(ctx context.Context, ids []int64) ([]domain.Section, error) {
	dtos, err := fetch(ctx, c, KindSections, ids, func(d sectionDTO) int64 { return d.ID })
	if err != nil {
		return nil, err
	}
	out := make([]domain.Section, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, domain.Section{ID: d.ID, Title: d.Title, Position: d.Position, UnitIDs: d.Units})
	}
	return out, nil
}

func (c *Client) Units(ctx context.Context, ids []int64) ([]domain.Unit, error) {
	dtos, err := fetch(ctx, c, KindUnits, ids, func(d unitDTO) int64 { return d.ID })
	if err != nil {
		return nil, err
	}
	out := make([]domain.Unit, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, domain.Unit{ID: d.ID, LessonID: d.Lesson})
	}
	return out, nil
}

func (c *Client) Lessons(ctx context.Context, ids []int64) ([]domain.Lesson, error) {
	dtos, err := fetch(ctx, c, KindLessons, ids, func(d lessonDTO) int64 { return d.ID })
	if err != nil {
		return nil, err
	}
	out := make([]domain.Lesson, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, domain.Lesson{ID: d.ID, Title: d.Title, StepIDs: d.Steps})
	}
	return out, nil
}

func (c *Client) Steps(ctx context.Context, ids []int64) ([]domain.Step, error) {
	dtos, err := fetch(ctx, c, KindSteps, ids, func(d stepDTO) int64 { return d.ID })
	if err != nil {
		return nil, err
	}
	out := make([]domain.Step, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, domain.Step{ID: d.ID, LessonID: d.Lesson, Position: d.Position, Content: d.Block.content()})
	}
	return out, nil
}
