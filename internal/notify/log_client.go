package notify

import (
	"context"
	"log/slog"

	"github.com/mathquest/mathquest-api/internal/events"
)

// LogClient is a RosterClient that writes deliveries to the structured
// log. It is the default when no external roster endpoint is configured.
type LogClient struct {
	logger *slog.Logger
}

// NewLogClient creates a new LogClient.
func NewLogClient(logger *slog.Logger) *LogClient {
	return &LogClient{
		logger: logger.With(slog.String("component", "roster_log_client")),
	}
}

// Deliver implements RosterClient.
func (c *LogClient) Deliver(ctx context.Context, event *events.StudentEvent) error {
	var payload events.MasteryPayload
	if event.Type == events.TypeMasteryAchieved {
		if err := event.UnmarshalPayload(&payload); err != nil {
			return err
		}
	}

	c.logger.InfoContext(ctx, "roster notification",
		"event_id", event.ID,
		"event_type", event.Type,
		"student_id", event.StudentID,
		"message", payload.Message)
	return nil
}

// Ensure LogClient implements RosterClient.
var _ RosterClient = (*LogClient)(nil)
