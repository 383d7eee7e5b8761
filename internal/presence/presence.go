// Package presence tracks live viewer sessions per stream with
// heartbeat-based expiry. Expiry is lazy: every command purges sessions whose
// last heartbeat is older than the liveness window before doing its own work,
// so counts are accurate at the moment of any call without a background
// sweeper.
package presence

import (
	"context"
	"sort"
	"time"

	"aniflixx/engage/internal/actor"
	"aniflixx/engage/pkg/logging"
)

// Kind namespaces presence snapshots in the actor store.
const Kind = "presence"

// DefaultLivenessWindow is the maximum heartbeat age before a session is
// considered gone.
const DefaultLivenessWindow = 30 * time.Second

// Session is one viewer's registration on a stream.
type Session struct {
	OwnerID         string    `json:"owner_id"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
}

// Roster maps session ids to sessions for one stream.
type Roster map[string]Session

func (r Roster) Clone() Roster {
	out := make(Roster, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SessionInfo is the read-side view of an active session.
type SessionInfo struct {
	SessionID       string    `json:"session_id"`
	OwnerID         string    `json:"owner_id"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
}

// Service exposes the presence command surface, one actor per stream id.
type Service struct {
	registry *actor.Registry[Roster]
	window   time.Duration
	now      func() time.Time
}

func NewService(store actor.Store, window time.Duration, logger logging.Logger) *Service {
	if window <= 0 {
		window = DefaultLivenessWindow
	}
	return &Service{
		registry: actor.NewRegistry(Kind, store, func() Roster { return Roster{} }, logger),
		window:   window,
		now:      time.Now,
	}
}

// Actors reports how many stream actors are live.
func (s *Service) Actors() int {
	return s.registry.Len()
}

// purge drops sessions whose heartbeat age exceeds the liveness window.
func (s *Service) purge(state Roster, now time.Time) bool {
	changed := false
	for id, sess := range state {
		if now.Sub(sess.LastHeartbeatAt) > s.window {
			delete(state, id)
			changed = true
		}
	}
	return changed
}

// Register inserts or overwrites a viewer session and returns the number of
// active sessions.
func (s *Service) Register(ctx context.Context, streamID, ownerID, sessionID string) (int, error) {
	res, err := s.registry.Execute(ctx, streamID, func(state Roster) (any, bool, error) {
		now := s.now()
		s.purge(state, now)
		state[sessionID] = Session{OwnerID: ownerID, LastHeartbeatAt: now}
		return len(state), true, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// Heartbeat refreshes a session's timestamp. Heartbeating a session that
// already expired or never registered is a no-op; the session does not
// reappear.
func (s *Service) Heartbeat(ctx context.Context, streamID, sessionID string) (int, error) {
	res, err := s.registry.Execute(ctx, streamID, func(state Roster) (any, bool, error) {
		now := s.now()
		changed := s.purge(state, now)
		if sess, ok := state[sessionID]; ok {
			sess.LastHeartbeatAt = now
			state[sessionID] = sess
			changed = true
		}
		return len(state), changed, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// Deregister removes a session unconditionally and returns the resulting
// count. Removing an absent session is not an error.
func (s *Service) Deregister(ctx context.Context, streamID, sessionID string) (int, error) {
	res, err := s.registry.Execute(ctx, streamID, func(state Roster) (any, bool, error) {
		changed := s.purge(state, s.now())
		if _, ok := state[sessionID]; ok {
			delete(state, sessionID)
			changed = true
		}
		return len(state), changed, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// Count purges expired sessions, then returns the active count and the
// remaining session details sorted by session id.
func (s *Service) Count(ctx context.Context, streamID string) (int, []SessionInfo, error) {
	res, err := s.registry.Execute(ctx, streamID, func(state Roster) (any, bool, error) {
		changed := s.purge(state, s.now())
		sessions := make([]SessionInfo, 0, len(state))
		for id, sess := range state {
			sessions = append(sessions, SessionInfo{
				SessionID:       id,
				OwnerID:         sess.OwnerID,
				LastHeartbeatAt: sess.LastHeartbeatAt,
			})
		}
		sort.Slice(sessions, func(i, j int) bool { return sessions[i].SessionID < sessions[j].SessionID })
		return sessions, changed, nil
	})
	if err != nil {
		return 0, nil, err
	}
	sessions := res.([]SessionInfo)
	return len(sessions), sessions, nil
}
