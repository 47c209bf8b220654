package domain

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Week 1: Intro/Basics?", "Week 1 IntroBasics"},
		{`a"b|c<d>e*f`, "abcdef"},
		{"  plain  ", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVideoFilename_PadsToTotalWidth(t *testing.T) {
	v := Video{StepID: 9, LessonTitle: "Graphs: BFS?"}
	if got := VideoFilename(0, 12, v); got != "01. Graphs BFS.mp4" {
		t.Fatalf("got %q", got)
	}
	if got := VideoFilename(2, 5, v); got != "3. Graphs BFS.mp4" {
		t.Fatalf("got %q", got)
	}
	if got := VideoFilename(0, 1, Video{StepID: 9, LessonTitle: "???"}); got != "1. Step 9.mp4" {
		t.Fatalf("got %q", got)
	}
}

func TestWeekOutputFilename(t *testing.T) {
	w := Week{Number: 2, Section: Section{Title: "Week 2: Trees/Heaps"}}
	if got := WeekOutputFilename(w); got != "2. Week 2 TreesHeaps.mp4" {
		t.Fatalf("got %q", got)
	}
	if got := WeekDirName(w); got != "week_2" {
		t.Fatalf("got %q", got)
	}
}

func TestCourseDirName(t *testing.T) {
	if got := CourseDirName(Course{ID: 401, Title: "Algorithms: Theory & Practice"}); got != "Algorithms Theory & Practice" {
		t.Fatalf("got %q", got)
	}
	if got := CourseDirName(Course{ID: 401, Title: " ?? "}); got != "401" {
		t.Fatalf("got %q", got)
	}
}
