package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/helixbio/gva-annotation-orchestrator/config"
)

var ErrUserNotFound = errors.New("user not found")

// UserProfile is the slice of the account service record the coordinators
// need: where to send notifications, and the subscription role that decides
// archival eligibility.
type UserProfile struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type AccountService struct {
	AccountServiceURL string
	PrivateKey        string
	cache             *RedisClient
}

func InitAccountService(cfg *config.EnvConfig, cache *RedisClient) *AccountService {
	url := cfg.ExternalService.AccountServiceURL
	if url == "" {
		panic("Account service URL is not configured")
	}

	return &AccountService{
		AccountServiceURL: url,
		PrivateKey:        cfg.PrivateKey,
		cache:             cache,
	}
}

func profileCacheKey(userID string) string {
	return "account:profile:" + userID
}

// GetUserProfile fetches a user's profile, serving from the cache when a
// recent copy exists. Role changes show up within the cache TTL, which is
// acceptable for notification addressing and archival eligibility.
func (s *AccountService) GetUserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	var cached UserProfile
	if s.cache != nil {
		if err := s.cache.Get(ctx, profileCacheKey(userID), &cached); err == nil {
			return &cached, nil
		}
	}

	url := fmt.Sprintf("%s/api/v1/accounts/%s", s.AccountServiceURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Private-Key", s.PrivateKey)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("account service returned %d: %s", resp.StatusCode, string(raw))
	}

	var profile UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, profileCacheKey(userID), profile, 5*time.Minute)
	}

	return &profile, nil
}

// InvalidateProfile drops the cached copy, used after a subscription upgrade
// so the new role is visible immediately.
func (s *AccountService) InvalidateProfile(ctx context.Context, userID string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, profileCacheKey(userID))
	}
}
