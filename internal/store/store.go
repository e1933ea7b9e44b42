package store

import (
	"context"

	"github.com/nhle/taskmaster/internal/model"
)

// Store is the local notification log. Every notification shown in the
// status bar is appended so it can be reviewed after it disappears.
type Store interface {
	CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error)
	RecentNotifications(ctx context.Context, limit int) ([]model.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkAllRead(ctx context.Context) error
	PruneNotifications(ctx context.Context, keep int) error
	Close() error
}
