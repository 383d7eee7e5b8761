package handlers

import (
	"encoding/json"

	"aniflixx/engage/internal/actor"
	"aniflixx/engage/internal/counters"
	"aniflixx/engage/internal/presence"
	"aniflixx/engage/internal/websocket"
)

// EntityBroadcaster pushes per-entity updates to realtime subscribers.
// *websocket.Hub satisfies it.
type EntityBroadcaster interface {
	BroadcastEntityUpdate(msgType, entityID string, data map[string]interface{})
}

// NewStateChangeRelay returns a subscriber for snapshot changes published by
// peer replicas. selfOrigin is this replica's id: its own messages are
// dropped because the local mutation path already broadcast the change, so
// relaying them would deliver every update twice.
func NewStateChangeRelay(hub EntityBroadcaster, selfOrigin string) func(actor.StateChange) {
	return func(change actor.StateChange) {
		if change.Origin == selfOrigin {
			return
		}

		switch change.Kind {
		case counters.Kind:
			var counts map[string]int64
			if err := json.Unmarshal(change.Snapshot, &counts); err != nil {
				return
			}
			data := make(map[string]interface{}, len(counts))
			for field, count := range counts {
				data[field] = count
			}
			hub.BroadcastEntityUpdate(websocket.MessageEngagementUpdate, change.EntityID, data)
		case presence.Kind:
			var roster map[string]json.RawMessage
			if err := json.Unmarshal(change.Snapshot, &roster); err != nil {
				return
			}
			hub.BroadcastEntityUpdate(websocket.MessageViewerCount, change.EntityID, map[string]interface{}{
				"viewer_count": len(roster),
			})
		}
	}
}
