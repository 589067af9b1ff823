// Package notify delivers user notifications over pluggable channels.
// Delivery is fire-and-forget: callers log failures and move on.
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/observability/metrics"
)

// Notification is one user-facing message.
type Notification struct {
	ID        int64
	UserID    int64
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}

// Notifier delivers one notification to a user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body string) error
}

// Channel is a named delivery mechanism.
type Channel interface {
	Notifier
	Name() string
}

// Multi fans a notification out to every channel. All channels are
// attempted; the first error is returned.
type Multi struct {
	channels []Channel
	logger   *zap.Logger
}

// NewMulti constructs a multi-channel notifier.
func NewMulti(logger *zap.Logger, channels ...Channel) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multi{channels: channels, logger: logger}
}

// Notify delivers to every channel.
func (m *Multi) Notify(ctx context.Context, userID int64, title, body string) error {
	if userID <= 0 {
		return errors.New("notify: invalid user id")
	}
	var firstErr error
	for _, channel := range m.channels {
		err := channel.Notify(ctx, userID, title, body)
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
			m.logger.Warn("notification channel failed",
				zap.String("channel", channel.Name()),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
		metrics.IncNotificationDelivered(channel.Name(), result)
	}
	return firstErr
}
