package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var reIllegalFilenameChars = regexp.MustCompile(`[:"|/<>*?]+`)

// SanitizeFilename retire les caractères interdits dans un nom de fichier
// (: " | / < > * ?) ainsi que les espaces en bordure.
func SanitizeFilename(name string) string {
	return strings.TrimSpace(reIllegalFilenameChars.ReplaceAllString(name, ""))
}

// VideoFilename construit "NN. <titre de leçon>.mp4", NN étant complété
// par des zéros à la largeur du nombre total de vidéos.
func VideoFilename(index, total int, v Video) string {
	width := len(strconv.Itoa(total))
	title := SanitizeFilename(v.LessonTitle)
	if title == "" {
		title = fmt.Sprintf("Step %d", v.StepID)
	}
	return fmt.Sprintf("%0*d. %s.mp4", width, index+1, title)
}

// WeekOutputFilename renvoie "<n>. <titre de section>.mp4".
func WeekOutputFilename(w Week) string {
	title := SanitizeFilename(w.Title())
	if title == "" {
		return fmt.Sprintf("%d.mp4", w.Number)
	}
	return fmt.Sprintf("%d. %s.mp4", w.Number, title)
}

// WeekDirName renvoie le dossier de travail d'une semaine.
func WeekDirName(w Week) string {
	return fmt.Sprintf("week_%d", w.Number)
}

// CourseDirName renvoie le titre nettoyé du cours, ou son id s'il est vide.
func CourseDirName(c Course) string {
	if title := SanitizeFilename(c.Title); title != "" {
		return title
	}
	return strconv.FormatInt(c.ID, 10)
}
