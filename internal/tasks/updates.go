package tasks

import (
	"fmt"

	"github.com/desertthunder/persona/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Status checks made so far
	JobID   string // Job the update is about
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data (the job snapshot or the error)
}

// Operation phase enumeration
type Phase int

const (
	PhaseSubmitting Phase = iota
	PhasePolling
	PhaseRetrying
	PhaseCompleted
	PhaseFailed
	PhaseCancelled
	PhaseNotifications
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhasePolling:
		return "polling"
	case PhaseRetrying:
		return "retrying"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	case PhaseNotifications:
		return "notifications"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// full, the update is dropped
	}
}

func submittingUpdate(prompt string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseSubmitting,
		Message: "Submitting job...",
		Data:    prompt,
	}
}

func pollingUpdate(step int, job *models.Persona) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhasePolling,
		Step:    step,
		JobID:   job.ID,
		Message: fmt.Sprintf("[%d] Job %s is %s...", step, job.ID, job.Status),
		Data:    job,
	}
}

func retryingUpdate(step int, id string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseRetrying,
		Step:    step,
		JobID:   id,
		Message: fmt.Sprintf("[%d] Status check failed, retrying: %v", step, err),
		Data:    err,
	}
}

func completedUpdate(step int, job *models.Persona) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseCompleted,
		Step:    step,
		JobID:   job.ID,
		Message: fmt.Sprintf("✓ Job %s completed: %s", job.ID, job.ResultVideoURL),
		Data:    job,
	}
}

func failedUpdate(step int, id string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFailed,
		Step:    step,
		JobID:   id,
		Message: fmt.Sprintf("✗ Job %s failed: %v", id, err),
		Data:    err,
	}
}

func cancelledUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseCancelled,
		JobID:   id,
		Message: "Polling cancelled",
	}
}

func notificationsUpdate(unread int, items []models.Notification) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseNotifications,
		Message: fmt.Sprintf("%d unread notification(s)", unread),
		Data:    items,
	}
}
