package services

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/desertthunder/persona/internal/models"
)

// NotificationService wraps the /notifications endpoints.
type NotificationService struct {
	api *APIService
}

// NewNotificationService creates a [NotificationService] on top of api.
func NewNotificationService(api *APIService) *NotificationService {
	return &NotificationService{api: api}
}

// List returns the latest notifications and the unread count reported next to them.
func (s *NotificationService) List(ctx context.Context) ([]models.Notification, int, error) {
	var items []models.Notification
	resp, err := s.api.do(ctx, call{method: http.MethodGet, path: "/notifications"}, &items)
	if err != nil {
		return nil, 0, err
	}

	var counts struct {
		Unread *int `json:"unread"`
	}
	if err := json.Unmarshal(resp.Body, &counts); err == nil && counts.Unread != nil {
		return items, *counts.Unread, nil
	}

	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	return items, unread, nil
}

// MarkRead marks every notification as read.
func (s *NotificationService) MarkRead(ctx context.Context) error {
	_, err := s.api.do(ctx, call{method: http.MethodPut, path: "/notifications/read"}, nil)
	return err
}
