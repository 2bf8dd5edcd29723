package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrTokenRevoked is returned when a refresh token is valid but no longer stored.
var ErrTokenRevoked = errors.New("refresh token revoked")

type Service struct {
	jwt         *JWTManager
	redisClient redis.Cmdable
}

func NewService(jwt *JWTManager, redisClient redis.Cmdable) *Service {
	return &Service{
		jwt:         jwt,
		redisClient: redisClient,
	}
}

func refreshKey(userID, tokenID string) string {
	return fmt.Sprintf("refresh:%s:%s", userID, tokenID)
}

// GenerateTokens issues a token pair and records the refresh token id in Redis.
func (s *Service) GenerateTokens(ctx context.Context, userID, email string) (*TokenPair, error) {
	pair, tokenID, err := s.jwt.GenerateTokenPair(userID, email)
	if err != nil {
		return nil, err
	}

	if err := s.redisClient.Set(ctx, refreshKey(userID, tokenID), "1", s.jwt.RefreshExpiry()).Err(); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}
	return pair, nil
}

// ConsumeRefreshToken validates a refresh token and revokes it, returning its
// user id. A token can be consumed at most once.
func (s *Service) ConsumeRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", fmt.Errorf("invalid refresh token: %w", err)
	}

	deleted, err := s.redisClient.Del(ctx, refreshKey(claims.UserID, claims.TokenID)).Result()
	if err != nil {
		return "", fmt.Errorf("revoking refresh token: %w", err)
	}
	if deleted == 0 {
		return "", ErrTokenRevoked
	}
	return claims.UserID, nil
}

// Logout deletes every refresh token stored for the user.
func (s *Service) Logout(ctx context.Context, userID string) error {
	iter := s.redisClient.Scan(ctx, 0, refreshKey(userID, "*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := s.redisClient.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("deleting refresh token: %w", err)
		}
	}
	return iter.Err()
}

func (s *Service) ValidateAccessToken(token string) (*AccessClaims, error) {
	return s.jwt.ValidateAccessToken(token)
}
