package publisher

import (
	"context"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/clinic-notifier/internal/model"
)

// LogSink writes outcomes to the application log.
type LogSink struct{}

func (LogSink) Write(_ context.Context, o model.DeliveryOutcome) error {
	event := zlog.Logger.Info().
		Str("id", o.NotificationID.String()).
		Str("channel", o.Channel.String()).
		Str("status", o.Status.String()).
		Int("attempt", o.AttemptCount).
		Time("occurred_at", o.OccurredAt)

	if o.CorrelationID != "" {
		event = event.Str("correlation_id", o.CorrelationID)
	}
	if o.LastError != nil {
		event = event.Str("error_kind", string(o.LastError.Kind)).Str("error", o.LastError.Message)
	}

	event.Msg("delivery outcome")
	return nil
}
