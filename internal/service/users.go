package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/rr4180885/myshop2/internal/domain"
	"github.com/rr4180885/myshop2/internal/store"
)

const (
	minPasswordLength = 8
	adminUsername     = "admin"
)

func (s *Service) CreateUser(ctx context.Context, username string, password string) (domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if len(username) < 3 || strings.ContainsAny(username, " \t\r\n") {
		return domain.User{}, &ValidationError{Field: "username", Message: "username must be at least 3 characters without spaces"}
	}
	hash, err := hashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	created, err := s.repo.CreateUser(ctx, domain.User{Username: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, &ValidationError{Field: "username", Message: "username already exists", err: err}
		}
		return domain.User{}, err
	}
	log.Printf("[service] user %s created", created.Username)
	return *created, nil
}

func (s *Service) SetPassword(ctx context.Context, username string, password string) error {
	user, err := s.repo.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	return s.repo.UpdateUserPassword(ctx, user.ID, hash)
}

// EnsureAdmin creates the admin account when it does not exist yet and
// reports whether it did.
func (s *Service) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	_, err := s.repo.GetUserByUsername(ctx, adminUsername)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	if _, err := s.CreateUser(ctx, adminUsername, password); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", &ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
