package domain

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to TaskState
		want     bool
	}{
		{TaskPending, TaskInProgress, true},
		{TaskPending, TaskDone, true},
		{TaskInProgress, TaskPending, true},
		{TaskInProgress, TaskFailed, true},
		{TaskDone, TaskInProgress, false},
		{TaskFailed, TaskDone, false},
		{TaskDone, TaskDone, true},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestDownloadTask_TransitionRejectsTerminal(t *testing.T) {
	task := NewDownloadTask("t1", "https://cdn/a.mp4", "/tmp/a.mp4")
	if err := task.Transition(TaskDone); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	err := task.Transition(TaskInProgress)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if task.State != TaskDone {
		t.Fatalf("state changed to %s", task.State)
	}
}
