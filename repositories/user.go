//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(username, hashedPassword string) (string, error)
	GetUserByUsername(username string) (User, error)
	GetUserByID(id string) (User, error)
}

// User is the repository-level representation of an account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// Records live under "user:id:{uuid}" with a "user:name:{username}" index
// pointing at the id. The index is what makes registration reject duplicates
// case-insensitively.
func userKey(id string) []byte       { return []byte("user:id:" + id) }
func usernameKey(name string) []byte { return []byte("user:name:" + strings.ToLower(name)) }

// CreateUser persists a new account and returns its generated ID. The
// password must already be hashed by the caller.
func (u UserRepository) CreateUser(username, hashedPassword string) (string, error) {
	newID := uuid.New().String()
	record := User{
		ID:           newID,
		Username:     username,
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(username)); err == nil {
			return apperrors.ErrUserAlreadyExists
		}
		if err := txn.Set(usernameKey(username), []byte(newID)); err != nil {
			return err
		}
		return txn.Set(userKey(newID), data)
	})

	return newID, err
}

func (u UserRepository) GetUserByUsername(username string) (User, error) {
	var id string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u.GetUserByID(id)
}

func (u UserRepository) GetUserByID(id string) (User, error) {
	var record User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return record, nil
}
