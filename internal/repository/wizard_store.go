package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"club-manager/backend/internal/model"
	"club-manager/backend/pkg/redis"
)

// ErrWizardNotFound 向导不存在或已过期
var ErrWizardNotFound = errors.New("预约向导不存在或已过期")

// WizardStore 预约向导状态存储
type WizardStore interface {
	// Save 写入向导，过期时间取 w.ExpiresAt
	Save(ctx context.Context, w *model.ReservationWizard) error
	Get(ctx context.Context, token string) (*model.ReservationWizard, error)
	Delete(ctx context.Context, token string) error
}

// ── Redis 实现 ──

const wizardKeyPrefix = "wizard:reservation:"

type redisWizardStore struct {
	rdb *redis.Client
}

// NewRedisWizardStore 基于 Redis 的向导存储，键随向导过期
func NewRedisWizardStore(rdb *redis.Client) WizardStore {
	return &redisWizardStore{rdb: rdb}
}

func (s *redisWizardStore) Save(ctx context.Context, w *model.ReservationWizard) error {
	ttl := time.Until(w.ExpiresAt)
	if ttl <= 0 {
		return ErrWizardNotFound
	}
	return s.rdb.SetJSON(ctx, wizardKeyPrefix+w.Token, w, ttl)
}

func (s *redisWizardStore) Get(ctx context.Context, token string) (*model.ReservationWizard, error) {
	var w model.ReservationWizard
	if err := s.rdb.GetJSON(ctx, wizardKeyPrefix+token, &w); err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, ErrWizardNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (s *redisWizardStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, wizardKeyPrefix+token)
}

// ── 进程内实现（未配置 Redis 时使用） ──

type memoryWizardStore struct {
	mu      sync.Mutex
	wizards map[string]model.ReservationWizard
	now     func() time.Time
}

// NewMemoryWizardStore 进程内向导存储，读取时清理过期项
func NewMemoryWizardStore() WizardStore {
	return &memoryWizardStore{
		wizards: make(map[string]model.ReservationWizard),
		now:     time.Now,
	}
}

func (s *memoryWizardStore) Save(_ context.Context, w *model.ReservationWizard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !w.ExpiresAt.After(s.now()) {
		return ErrWizardNotFound
	}
	s.wizards[w.Token] = *w
	return nil
}

func (s *memoryWizardStore) Get(_ context.Context, token string) (*model.ReservationWizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, w := range s.wizards {
		if !w.ExpiresAt.After(now) {
			delete(s.wizards, k)
		}
	}
	w, ok := s.wizards[token]
	if !ok {
		return nil, ErrWizardNotFound
	}
	return &w, nil
}

func (s *memoryWizardStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wizards, token)
	return nil
}
