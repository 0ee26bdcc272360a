package services

import (
	"testing"
	"time"

	"chat-relay/auth"
	apperrors "chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/repositories"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-for-auth-service", 24*time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, newTestTokenManager())

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		username := "alice42"
		password := "ComplexPass123!"
		expectedUserID := "user-uuid"

		// CreateUser receives a hashed password, never the plain one
		mockRepo.EXPECT().
			CreateUser(username, gomock.Not(password)).
			Return(expectedUserID, nil).
			Times(1)

		token, err := svc.Register(username, password)

		req.NoError(err)
		req.NotEmpty(token)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)

		// Repository should NEVER be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Times(0)

		token, err := svc.Register("alice42", "simple")

		req.Error(err)
		req.ErrorIs(err, apperrors.ErrInvalidPassword)
		req.Empty(token)
	})

	t.Run("should fail when username is already taken", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			CreateUser("duplicate1", gomock.Any()).
			Return("", apperrors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register("duplicate1", "ComplexPass123!")

		req.ErrorIs(err, apperrors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	tokens := newTestTokenManager()
	svc := NewAuthService(mockRepo, tokens)

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		username := "alice42"
		password := "Secret123456!"

		hashedPassword, err := auth.HashPassword(password)
		req.NoError(err)
		storedUser := repositories.User{
			ID:           "uuid-123",
			Username:     username,
			PasswordHash: hashedPassword,
			Roles:        []string{"user"},
		}

		mockRepo.EXPECT().
			GetUserByUsername(username).
			Return(storedUser, nil).
			Times(1)

		token, err := svc.Login(username, password)

		req.NoError(err)
		req.NotEmpty(token)

		claims, err := tokens.Validate(string(token))
		req.NoError(err)
		req.Equal(storedUser.ID, claims.UserID)
	})

	t.Run("should return invalid credentials when password does not match", func(t *testing.T) {
		req := require.New(t)
		username := "alice42"

		hashedPassword, err := auth.HashPassword("CorrectPassword123!")
		req.NoError(err)
		storedUser := repositories.User{
			Username:     username,
			PasswordHash: hashedPassword,
		}

		mockRepo.EXPECT().
			GetUserByUsername(username).
			Return(storedUser, nil).
			Times(1)

		_, err = svc.Login(username, "WrongPassword123!")

		req.ErrorIs(err, apperrors.ErrInvalidCredentials)
	})

	t.Run("should return invalid credentials when user is not found", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			GetUserByUsername("unknown").
			Return(repositories.User{}, apperrors.ErrUserNotFound).
			Times(1)

		_, err := svc.Login("unknown", "anyPassword")

		req.ErrorIs(err, apperrors.ErrInvalidCredentials)
	})
}
