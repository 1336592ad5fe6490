// Package idempotency guards side-effecting requests behind a client
// supplied key stored in redis.
//
// A key moves none -> in_progress -> completed. A failed run releases the
// key so the client can retry with the same one.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrAlreadyInProgress is returned while another request holds the key.
	ErrAlreadyInProgress = errors.New("idempotency: operation already in progress")
	// ErrAlreadyCompleted is returned when the key already finished successfully.
	ErrAlreadyCompleted = errors.New("idempotency: operation already completed")
	// ErrInvalidState is returned when the stored value is not a known state.
	ErrInvalidState = errors.New("idempotency: invalid state")
	// ErrEmptyKey is returned for a blank key.
	ErrEmptyKey = errors.New("idempotency: empty key")
)

// State is the stored lifecycle state of a key.
type State string

const (
	StateNone       State = "none"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

func (s State) String() string {
	return string(s)
}

// Idempotency runs fn at most once to completion per key.
type Idempotency interface {
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

const (
	defaultPrefix       = "pkitotp:idem:"
	defaultLockDuration = time.Minute
	defaultStateTTL     = 24 * time.Hour
)

// StateTracker implements Idempotency on redis.
type StateTracker struct {
	client redis.UniversalClient
	prefix string
}

// New returns a StateTracker. An empty prefix selects the default.
func New(client redis.UniversalClient, prefix string) *StateTracker {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &StateTracker{client: client, prefix: prefix}
}

// Option tunes a single Exec call.
type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
}

// WithLockDuration bounds how long an in-progress marker survives a crash.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) {
		o.lockDuration = d
	}
}

// WithStateTTL sets how long a completed marker is remembered.
func WithStateTTL(d time.Duration) Option {
	return func(o *execOptions) {
		o.stateTTL = d
	}
}

// Acquire marks key in progress unless it already holds a state, which is
// returned instead. StateNone means the caller owns the key.
func (s *StateTracker) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	if key == "" {
		return StateNone, ErrEmptyKey
	}

	ok, err := s.client.SetNX(ctx, s.prefix+key, StateInProgress.String(), lockDuration).Result()
	if err != nil {
		return StateNone, fmt.Errorf("idempotency: acquire: %w", err)
	}
	if ok {
		return StateNone, nil
	}

	current, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; one more attempt decides it
		ok, err = s.client.SetNX(ctx, s.prefix+key, StateInProgress.String(), lockDuration).Result()
		if err != nil {
			return StateNone, fmt.Errorf("idempotency: acquire: %w", err)
		}
		if ok {
			return StateNone, nil
		}
		return StateInProgress, nil
	}
	if err != nil {
		return StateNone, fmt.Errorf("idempotency: read state: %w", err)
	}

	switch State(current) {
	case StateInProgress, StateCompleted:
		return State(current), nil
	default:
		return StateNone, fmt.Errorf("%w: %q", ErrInvalidState, current)
	}
}

// Complete records a successful run.
func (s *StateTracker) Complete(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, StateCompleted.String(), ttl).Err()
}

// Release forgets key so it can be retried.
func (s *StateTracker) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Exec runs fn if key is free. A failing fn releases the key and its error
// is returned as-is; release failures are joined onto it.
func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := &execOptions{lockDuration: defaultLockDuration, stateTTL: defaultStateTTL}
	for _, opt := range opts {
		opt(o)
	}
	if o.lockDuration <= 0 {
		o.lockDuration = defaultLockDuration
	}
	if o.stateTTL <= 0 {
		o.stateTTL = defaultStateTTL
	}

	state, err := s.Acquire(ctx, key, o.lockDuration)
	if err != nil {
		return err
	}

	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	}

	if err := fn(ctx); err != nil {
		if relErr := s.Release(context.WithoutCancel(ctx), key); relErr != nil {
			return errors.Join(err, relErr)
		}
		return err
	}

	return s.Complete(context.WithoutCancel(ctx), key, o.stateTTL)
}
