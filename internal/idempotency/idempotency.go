package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/finance-ledger/pkg/logger"
	"github.com/nimasrn/finance-ledger/pkg/redis"
)

var (
	ErrInProgress = errors.New("a request with the same idempotency key is in progress")
)

type Config struct {
	// how long a request may hold its key before another attempt may take it
	LockTTL time.Duration

	// how long a completed response is replayed
	ReplayTTL time.Duration

	LockKeyPrefix     string
	ResponseKeyPrefix string
}

func DefaultConfig() Config {
	return Config{
		LockTTL:           30 * time.Second,
		ReplayTTL:         24 * time.Hour,
		LockKeyPrefix:     "idem:lock:",
		ResponseKeyPrefix: "idem:resp:",
	}
}

// Response is what gets replayed for a repeated request.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type Store struct {
	redis  redis.RedisAdapter
	config Config
}

func NewStore(adapter redis.RedisAdapter, config Config) *Store {
	return &Store{
		redis:  adapter,
		config: config,
	}
}

// Attempt is an in-flight request holding its key.
type Attempt struct {
	key   string
	token []byte
}

// Begin returns the recorded response when key already completed. Otherwise
// it claims key for the caller, failing with ErrInProgress while another
// request holds it.
func (s *Store) Begin(ctx context.Context, key string) (*Response, *Attempt, error) {
	raw, err := s.redis.Get(ctx, s.config.ResponseKeyPrefix+key)
	switch {
	case err == nil:
		var resp Response
		if err = json.Unmarshal(raw, &resp); err != nil {
			return nil, nil, fmt.Errorf("decode recorded response: %w", err)
		}
		return &resp, nil, nil
	case !errors.Is(err, redis.NilError):
		return nil, nil, fmt.Errorf("read recorded response: %w", err)
	}

	token := []byte(uuid.NewString())
	acquired, err := s.redis.SetNX(ctx, s.config.LockKeyPrefix+key, token, s.config.LockTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if !acquired {
		return nil, nil, ErrInProgress
	}
	return nil, &Attempt{key: key, token: token}, nil
}

// Complete records resp for replay and frees the key.
func (s *Store) Complete(ctx context.Context, a *Attempt, resp Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err = s.redis.Set(ctx, s.config.ResponseKeyPrefix+a.key, raw, s.config.ReplayTTL); err != nil {
		s.Abandon(ctx, a)
		return fmt.Errorf("record response: %w", err)
	}
	s.Abandon(ctx, a)
	return nil
}

// Abandon frees the key without recording anything, so the request can be
// retried.
func (s *Store) Abandon(ctx context.Context, a *Attempt) {
	if _, err := s.redis.CompareAndDelete(ctx, s.config.LockKeyPrefix+a.key, a.token); err != nil {
		logger.Warn("failed to release idempotency key", "key", a.key, "error", err)
	}
}
