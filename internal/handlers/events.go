package handlers

import (
	"context"
	"encoding/json"
	"time"

	"aniflixx/engage/internal/counters"
	"aniflixx/engage/pkg/kafka"
	"aniflixx/engage/pkg/logging"
)

// eventCounterOps maps an engagement event type to the counter field it
// touches and whether it increments or decrements.
var eventCounterOps = map[string]struct {
	field     string
	decrement bool
}{
	kafka.EventView:    {field: "views"},
	kafka.EventLike:    {field: "likes"},
	kafka.EventUnlike:  {field: "likes", decrement: true},
	kafka.EventComment: {field: "comments"},
	kafka.EventShare:   {field: "shares"},
	kafka.EventSave:    {field: "saves"},
}

// HandleEngagementEvent applies one engagement event from Kafka to the
// entity's counters and fans the new value out to WebSocket subscribers.
// Malformed and unknown events are dropped rather than retried so a poison
// message cannot stall the partition.
func (h *TallymanHandlers) HandleEngagementEvent(ctx context.Context, msg kafka.Message) error {
	start := time.Now()

	var event kafka.EngagementEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.WithError(err).WithFields(logging.Fields{
			"topic":     msg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Warn("Dropping malformed engagement event")
		return nil
	}

	op, ok := eventCounterOps[event.EventType]
	if !ok {
		h.logger.WithFields(logging.Fields{
			"event_type": event.EventType,
			"event_id":   event.EventID,
		}).Warn("Dropping engagement event with unknown type")
		return nil
	}

	if event.EntityID == "" {
		h.logger.WithFields(logging.Fields{
			"event_type": event.EventType,
			"event_id":   event.EventID,
		}).Warn("Dropping engagement event without entity_id")
		return nil
	}

	mutate := h.counters.Increment
	opName := "increment"
	if op.decrement {
		mutate = h.counters.Decrement
		opName = "decrement"
	}

	count, err := mutate(ctx, event.EntityID, op.field)
	if err != nil {
		// Persist failures are retryable; returning the error leaves the
		// offset uncommitted so the event is redelivered.
		h.recordCommand(counters.Kind, opName, "error", start)
		return err
	}

	h.recordCommand(counters.Kind, opName, "ok", start)
	h.broadcastCounter(event.EntityID, op.field, count)

	h.logger.WithFields(logging.Fields{
		"event_type": event.EventType,
		"entity_id":  event.EntityID,
		"source":     event.Source,
		"field":      op.field,
		"count":      count,
	}).Debug("Applied engagement event")

	return nil
}
