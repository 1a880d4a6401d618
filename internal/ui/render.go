package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/tasks"
)

func Title(s string) string   { return styles.title.Render(s) }
func Success(s string) string { return styles.success.Render(s) }
func Error(s string) string   { return styles.error.Render(s) }
func Warning(s string) string { return styles.warning.Render(s) }
func Help(s string) string    { return styles.help.Render(s) }

// Status colours a job status: green when completed, red when failed, orange otherwise.
func Status(s models.JobStatus) string {
	label := string(s)
	if label == "" {
		label = "unknown"
	}
	switch s {
	case models.JobCompleted:
		return styles.success.Render(label)
	case models.JobFailed:
		return styles.error.Render(label)
	default:
		return styles.warning.Render(label)
	}
}

// Badge renders an unread counter, or nothing when n is zero.
func Badge(n int) string {
	if n <= 0 {
		return ""
	}
	if n > 99 {
		return styles.badge.Render("99+")
	}
	return styles.badge.Render(fmt.Sprint(n))
}

// Update renders a progress event as a single line.
func Update(u tasks.ProgressUpdate) string {
	switch u.Phase {
	case tasks.PhaseCompleted:
		return Success(u.Message)
	case tasks.PhaseFailed:
		return Error(u.Message)
	case tasks.PhaseRetrying, tasks.PhaseCancelled:
		return Warning(u.Message)
	case tasks.PhasePolling:
		if job, ok := u.Data.(*models.Persona); ok {
			return fmt.Sprintf("[%d] %s %s", u.Step, job.ID, Status(job.Status))
		}
		return u.Message
	default:
		return Help(u.Message)
	}
}

// Rule is the horizontal separator used around headers.
func Rule() string {
	return strings.Repeat("═", 39)
}
