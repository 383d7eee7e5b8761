// Package actor provides per-entity serialized state containers. Each entity
// id owns at most one live actor; every command addressed to that id runs on
// the actor's own goroutine, so read-modify-write sequences never interleave.
// Commands on different entity ids run fully independently.
//
// Successful mutations persist the full resulting state through a Store
// before the command returns. A failed persist rolls the in-memory state
// back, so memory and the durable snapshot never diverge.
package actor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"aniflixx/engage/pkg/logging"
)

// Store persists full actor state snapshots keyed by (kind, entity id).
type Store interface {
	// Load returns the stored snapshot, or (nil, nil) when none exists.
	Load(ctx context.Context, kind, id string) ([]byte, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, kind, id string, snapshot []byte) error
}

// State is implemented by actor state types. Clone must return a deep copy;
// it backs the rollback on persistence failure.
type State[S any] interface {
	Clone() S
}

// Command runs inside the actor goroutine with exclusive access to state.
// It mutates state in place and reports whether it did; only changed states
// are persisted.
type Command[S State[S]] func(state S) (result any, changed bool, err error)

type response struct {
	result any
	err    error
}

type envelope[S State[S]] struct {
	ctx   context.Context
	cmd   Command[S]
	reply chan response
}

// Actor owns one entity's state and executes commands one at a time in
// arrival order.
type Actor[S State[S]] struct {
	id      string
	kind    string
	state   S
	loaded  bool
	store   Store
	logger  logging.Logger
	mailbox chan envelope[S]
}

const mailboxSize = 64

// Execute runs cmd on the actor goroutine and returns its result. The send
// honors ctx; once accepted, the command runs to completion (commands are
// bounded: an in-memory mutation plus one snapshot write).
func (a *Actor[S]) Execute(ctx context.Context, cmd Command[S]) (any, error) {
	reply := make(chan response, 1)
	select {
	case a.mailbox <- envelope[S]{ctx: ctx, cmd: cmd, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r := <-reply
	return r.result, r.err
}

func (a *Actor[S]) run() {
	for env := range a.mailbox {
		env.reply <- a.handle(env)
	}
}

func (a *Actor[S]) handle(env envelope[S]) response {
	if !a.loaded {
		if err := a.restore(env.ctx); err != nil {
			// Leave loaded unset so the next command retries the restore.
			return response{err: err}
		}
	}

	prev := a.state.Clone()
	result, changed, err := env.cmd(a.state)
	if err != nil {
		a.state = prev
		return response{err: err}
	}

	if changed {
		snapshot, err := json.Marshal(a.state)
		if err == nil {
			err = a.store.Save(env.ctx, a.kind, a.id, snapshot)
		}
		if err != nil {
			a.state = prev
			a.logger.WithError(err).WithFields(logging.Fields{
				"kind":      a.kind,
				"entity_id": a.id,
			}).Error("Snapshot persist failed, state rolled back")
			return response{err: fmt.Errorf("persist %s/%s: %w", a.kind, a.id, err)}
		}
	}

	return response{result: result}
}

// restore loads the persisted snapshot on first use so actors survive
// process restarts. An unknown entity id is not an error: the actor keeps
// its fresh default state.
func (a *Actor[S]) restore(ctx context.Context) error {
	data, err := a.store.Load(ctx, a.kind, a.id)
	if err != nil {
		return fmt.Errorf("restore %s/%s: %w", a.kind, a.id, err)
	}
	if data != nil {
		if err := json.Unmarshal(data, &a.state); err != nil {
			return fmt.Errorf("restore %s/%s: decode snapshot: %w", a.kind, a.id, err)
		}
	}
	a.loaded = true
	return nil
}

// Registry maps entity ids to actor handles of one kind, creating actors
// lazily on first use.
type Registry[S State[S]] struct {
	kind     string
	store    Store
	newState func() S
	logger   logging.Logger

	mu     sync.Mutex
	actors map[string]*Actor[S]
}

// NewRegistry creates an actor registry. kind namespaces the persisted
// snapshots (e.g. "counters", "presence"); newState builds the default state
// for entities never seen before.
func NewRegistry[S State[S]](kind string, store Store, newState func() S, logger logging.Logger) *Registry[S] {
	return &Registry[S]{
		kind:     kind,
		store:    store,
		newState: newState,
		logger:   logger,
		actors:   make(map[string]*Actor[S]),
	}
}

// Execute routes cmd to the actor owning id, creating it if needed.
func (r *Registry[S]) Execute(ctx context.Context, id string, cmd Command[S]) (any, error) {
	return r.actor(id).Execute(ctx, cmd)
}

func (r *Registry[S]) actor(id string) *Actor[S] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.actors[id]; ok {
		return a
	}

	a := &Actor[S]{
		id:      id,
		kind:    r.kind,
		state:   r.newState(),
		store:   r.store,
		logger:  r.logger,
		mailbox: make(chan envelope[S], mailboxSize),
	}
	go a.run()
	r.actors[id] = a
	return a
}

// Len returns the number of live actors.
func (r *Registry[S]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actors)
}
