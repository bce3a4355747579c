package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nanogate/imagegate/internal/models"
	"github.com/nanogate/imagegate/internal/repository"
	"github.com/nanogate/imagegate/internal/storage"
)

// AccountService fronts account reads with a short redis cache. Quota
// decisions always go through the repository; the cache only serves
// display lookups (profile, remaining-quota endpoints), so a slightly
// stale row is harmless and every charge invalidates it anyway.
type AccountService struct {
	repo  *repository.AccountRepository
	redis *storage.RedisClient
}

func NewAccountService(repo *repository.AccountRepository, redis *storage.RedisClient) *AccountService {
	return &AccountService{
		repo:  repo,
		redis: redis,
	}
}

func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	cacheKey := fmt.Sprintf("account:cache:%s", id)

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, cacheKey)
		if err == nil && cached != "" {
			var account models.Account
			if err := json.Unmarshal([]byte(cached), &account); err == nil {
				return &account, nil
			}
		}
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil || account == nil {
		return account, err
	}

	if s.redis != nil {
		accountJSON, _ := json.Marshal(account)
		s.redis.Set(ctx, cacheKey, accountJSON, 5*time.Minute)
	}

	return account, nil
}

func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	return s.repo.List(ctx)
}

func (s *AccountService) UpdateStatus(ctx context.Context, id uuid.UUID, isPro bool, quotaLimit int) error {
	if err := s.repo.UpdateStatus(ctx, id, isPro, quotaLimit); err != nil {
		return err
	}

	s.InvalidateCache(ctx, id)
	return nil
}

// Drops the cached row after anything changes the account
func (s *AccountService) InvalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redis == nil {
		return
	}

	cacheKey := fmt.Sprintf("account:cache:%s", id)
	s.redis.Del(ctx, cacheKey)
}
