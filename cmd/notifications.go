package main

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/shared"
	"github.com/desertthunder/persona/internal/tasks"
	"github.com/desertthunder/persona/internal/ui"
	"github.com/urfave/cli/v3"
)

// NotificationsList prints the latest notifications, marking them read with --read.
func (r *Runner) NotificationsList(ctx context.Context, cmd *cli.Command) error {
	feed := r.newFeed(0)
	if err := feed.Refresh(ctx); err != nil {
		return err
	}

	r.writePlainHeader("Notifications " + ui.Badge(feed.Unread()))
	items := feed.Items()
	if len(items) == 0 {
		return r.writePlain("%s\n", ui.Help("Nothing yet"))
	}
	for _, n := range items {
		r.writePlain("%s\n", notificationLine(n))
	}

	if cmd.Bool("read") {
		if err := feed.Open(ctx); err != nil {
			return err
		}
		r.writePlain("%s Marked all as read\n", ui.Success("✓"))
	}
	return nil
}

// NotificationsWatch prints the unread count every refresh until interrupted.
func (r *Runner) NotificationsWatch(ctx context.Context, cmd *cli.Command) error {
	feed := r.newFeed(cmd.Duration("interval"))

	updates := make(chan tasks.ProgressUpdate, 4)
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx, updates) }()

	last := -1
	for {
		select {
		case u := <-updates:
			if feed.Unread() != last {
				last = feed.Unread()
				r.writePlain("%s\n", ui.Update(u))
			}
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

func (r *Runner) newFeed(interval time.Duration) *tasks.NotificationFeed {
	if interval <= 0 {
		interval = r.config.Notifications.RefreshInterval.Duration
	}
	return tasks.NewNotificationFeed(r.notifications, interval, shared.WithLogger(r.logger, "component", "notifications"))
}

func notificationLine(n models.Notification) string {
	marker := "•"
	if !n.Read {
		marker = ui.Warning("●")
	}

	line := marker + " "
	switch {
	case n.Sender != "" && n.SubjectTitle != "":
		line += n.Sender + " " + describe(n.Type) + " " + n.SubjectTitle
	case n.Sender != "":
		line += n.Sender + " " + describe(n.Type)
	default:
		line += describe(n.Type)
	}
	if !n.CreatedAt.IsZero() {
		line += " " + ui.Help(n.CreatedAt.Local().Format("Jan 2 15:04"))
	}
	return line
}

func describe(kind string) string {
	switch kind {
	case "like":
		return "liked"
	case "comment":
		return "commented on"
	case "follow":
		return "followed you"
	case "remix":
		return "remixed"
	case "":
		return "notification"
	default:
		return kind
	}
}
