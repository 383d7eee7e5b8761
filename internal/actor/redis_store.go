package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	pkgredis "aniflixx/engage/pkg/redis"

	"aniflixx/engage/pkg/logging"
)

// StateChange is published on every snapshot save so sibling replicas can
// refresh their realtime fanout without polling. Origin identifies the
// publishing replica; subscribers drop their own messages since the local
// mutation path already broadcast the change.
type StateChange struct {
	Kind     string          `json:"kind"`
	EntityID string          `json:"entity_id"`
	Origin   string          `json:"origin"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// RedisStore persists actor snapshots in Redis and announces saves on a
// pub/sub channel. Writes retry with backoff before surfacing an error to
// the actor.
type RedisStore struct {
	client  goredis.UniversalClient
	pubsub  *pkgredis.TypedPubSub[StateChange]
	prefix  string
	channel string
	origin  string
	retry   retrypolicy.RetryPolicy[any]
	logger  logging.Logger
}

func NewRedisStore(client goredis.UniversalClient, prefix string, logger logging.Logger) *RedisStore {
	retry := retrypolicy.NewBuilder[any]().
		WithBackoff(50*time.Millisecond, time.Second).
		WithMaxRetries(2).
		WithJitterFactor(0.1).
		Build()

	return &RedisStore{
		client:  client,
		pubsub:  pkgredis.NewTypedPubSub[StateChange](client),
		prefix:  prefix,
		channel: fmt.Sprintf("%s:state_updates", prefix),
		origin:  uuid.NewString(),
		retry:   retry,
		logger:  logger,
	}
}

// Channel returns the pub/sub channel carrying StateChange messages.
func (s *RedisStore) Channel() string {
	return s.channel
}

// Origin returns this replica's id, stamped on every published StateChange.
func (s *RedisStore) Origin() string {
	return s.origin
}

func (s *RedisStore) key(kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, kind, id)
}

func (s *RedisStore) Load(ctx context.Context, kind, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(kind, id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, kind, id string, snapshot []byte) error {
	_, err := failsafe.With(s.retry).WithContext(ctx).Get(func() (any, error) {
		return nil, s.client.Set(ctx, s.key(kind, id), snapshot, 0).Err()
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	// Fanout is best-effort; the durable write above is the contract.
	change := StateChange{Kind: kind, EntityID: id, Origin: s.origin, Snapshot: snapshot}
	if err := s.pubsub.Publish(ctx, s.channel, change); err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{
			"kind":      kind,
			"entity_id": id,
		}).Warn("State change publish failed")
	}

	return nil
}
