package domain

import (
	"errors"
	"fmt"
)

type TaskState string

const (
	TaskPending    TaskState = "pending"
	TaskInProgress TaskState = "in-progress"
	TaskDone       TaskState = "done"
	TaskFailed     TaskState = "failed"
)

func (s TaskState) IsTerminal() bool {
	return s == TaskDone || s == TaskFailed
}

var ErrInvalidTransition = errors.New("invalid task state transition")

// CanTransition valide le cycle de vie d'une tâche.
// in-progress -> pending correspond à une nouvelle tentative.
func CanTransition(from, to TaskState) bool {
	if from == to {
		return true
	}
	switch from {
	case TaskPending:
		return to == TaskInProgress || to == TaskDone || to == TaskFailed
	case TaskInProgress:
		return to == TaskDone || to == TaskFailed || to == TaskPending
	case TaskDone, TaskFailed:
		return false
	default:
		return false
	}
}

// DownloadTask associe une URL à un chemin de destination.
// Seul State évolue après construction, et uniquement via Transition.
type DownloadTask struct {
	ID      string
	URL     string
	Path    string
	State   TaskState
	Skipped bool
	Err     error
}

func NewDownloadTask(id, url, path string) *DownloadTask {
	return &DownloadTask{ID: id, URL: url, Path: path, State: TaskPending}
}

func (t *DownloadTask) Transition(next TaskState) error {
	if !CanTransition(t.State, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.State, next)
	}
	t.State = next
	return nil
}
