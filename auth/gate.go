package auth

import (
	"context"
	"errors"
	"log/slog"

	"chat-relay/domain"
	apperrors "chat-relay/errors"
	"chat-relay/repositories"
)

// Gate resolves a per-message credential token to a user identity. It is
// called once per inbound event: a revoked or expired token loses its chat
// privileges on the very next message.
type Gate struct {
	tokens *TokenManager
	users  repositories.IUserRepository
	log    *slog.Logger
}

func NewGate(tokens *TokenManager, users repositories.IUserRepository, log *slog.Logger) *Gate {
	return &Gate{tokens: tokens, users: users, log: log}
}

// Authenticate returns the resolved user, or (nil, nil) when the token is
// missing, invalid, expired, or references an unknown account. Anonymous is a
// normal outcome; only collaborator faults surface as errors.
func (g *Gate) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claims, err := g.tokens.Validate(token)
	if err != nil {
		g.log.Debug("Token rejected", "error", err)
		return nil, nil
	}

	record, err := g.users.GetUserByID(claims.UserID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		g.log.Debug("Token subject no longer exists", "user_id", claims.UserID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &domain.User{
		ID:       record.ID,
		Username: record.Username,
		Roles:    record.Roles,
	}, nil
}
