package domain

import "time"

// Course est la racine de l'arborescence Stepik.
type Course struct {
	ID         int64
	Title      string
	SectionIDs []int64
}

// Section correspond à une "semaine" du cours.
type Section struct {
	ID       int64
	Title    string
	Position int
	UnitIDs  []int64
}

// Week est une section numérotée (1-based) dans l'ordre du cours.
type Week struct {
	Number  int
	Section Section
}

// Title renvoie le titre de la section.
func (w Week) Title() string { return w.Section.Title }

// Unit n'est qu'une indirection vers une leçon.
type Unit struct {
	ID       int64
	LessonID int64
}

type Lesson struct {
	ID      int64
	Title   string
	StepIDs []int64
}

type Step struct {
	ID       int64
	LessonID int64
	Position int
	Content  Content
}

// ContentKind est le tag du bloc d'un step ("video", "text", ...).
type ContentKind string

const (
	ContentVideo ContentKind = "video"
	ContentText  ContentKind = "text"
)

// Content est le contenu polymorphe d'un step.
// Seul VideoContent intéresse le téléchargement.
type Content interface {
	Kind() ContentKind
}

type VideoContent struct {
	VideoID  int64
	Duration time.Duration
	URLs     []VideoURL
}

func (VideoContent) Kind() ContentKind { return ContentVideo }

type TextContent struct {
	Text string
}

func (TextContent) Kind() ContentKind { return ContentText }

// OtherContent couvre tous les autres types de blocs (quiz, code, ...).
type OtherContent struct {
	Name string
}

func (c OtherContent) Kind() ContentKind { return ContentKind(c.Name) }

// VideoURL est une variante encodée d'une vidéo.
type VideoURL struct {
	Quality string
	URL     string
}

// Video est un step vidéo, rattaché au titre de sa leçon.
type Video struct {
	StepID      int64
	LessonTitle string
	URLs        []VideoURL
}

// VideoFromStep renvoie la vidéo portée par le step, si son bloc est une vidéo.
func VideoFromStep(step Step, lessonTitle string) (Video, bool) {
	vc, ok := step.Content.(VideoContent)
	if !ok {
		return Video{}, false
	}
	return Video{StepID: step.ID, LessonTitle: lessonTitle, URLs: vc.URLs}, true
}
