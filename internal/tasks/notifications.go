package tasks

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/persona/internal/models"
)

const DefaultNotificationInterval = 60 * time.Second

// NotificationAPI reads and acknowledges notifications. [services.NotificationService] implements it.
type NotificationAPI interface {
	List(ctx context.Context) ([]models.Notification, int, error)
	MarkRead(ctx context.Context) error
}

const unreadKey = "unread"

// NotificationFeed keeps the latest notifications and the unread badge count.
type NotificationFeed struct {
	api      NotificationAPI
	interval time.Duration
	after    func(time.Duration) <-chan time.Time
	logger   *log.Logger

	unread *Optimistic[string, int]

	mu    sync.RWMutex
	items []models.Notification
}

// NewNotificationFeed creates a feed refreshed every interval (60s when non-positive).
func NewNotificationFeed(api NotificationAPI, interval time.Duration, logger *log.Logger) *NotificationFeed {
	if interval <= 0 {
		interval = DefaultNotificationInterval
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &NotificationFeed{
		api:      api,
		interval: interval,
		after:    time.After,
		logger:   logger,
		unread:   NewOptimistic[string, int](),
	}
}

// Refresh fetches the latest notifications.
func (f *NotificationFeed) Refresh(ctx context.Context) error {
	items, unread, err := f.api.List(ctx)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.items = items
	f.mu.Unlock()
	f.unread.Set(unreadKey, unread)
	return nil
}

// Items returns the notifications from the last successful refresh.
func (f *NotificationFeed) Items() []models.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.items
}

// Unread returns the displayed unread count.
func (f *NotificationFeed) Unread() int {
	n, _ := f.unread.Get(unreadKey)
	return n
}

// Open clears the unread badge at once and marks everything read on the server.
// The badge is restored if the server call fails.
func (f *NotificationFeed) Open(ctx context.Context) error {
	if f.Unread() == 0 {
		return nil
	}
	_, err := f.unread.Mutate(ctx, unreadKey,
		func(int) int { return 0 },
		func(ctx context.Context) (*int, error) { return nil, f.api.MarkRead(ctx) },
	)
	if err != nil {
		return err
	}

	f.mu.Lock()
	read := make([]models.Notification, len(f.items))
	for i, n := range f.items {
		n.Read = true
		read[i] = n
	}
	f.items = read
	f.mu.Unlock()
	return nil
}

// Run refreshes immediately and then every interval until ctx ends.
// Each successful refresh is reported on updates without blocking; failures are logged and retried on the next tick.
func (f *NotificationFeed) Run(ctx context.Context, updates chan<- ProgressUpdate) error {
	for {
		if err := f.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("notification refresh failed", "error", err)
		} else {
			sendProgress(updates, notificationsUpdate(f.Unread(), f.Items()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.after(f.interval):
		}
	}
}
