package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/chepyr/go-task-manager/internal/auth"
	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/models"
)

type TokenIssuer interface {
	Issue(user *models.User) (string, error)
}

type AuthService struct {
	users  db.UserRepositoryInterface
	tokens TokenIssuer
}

func NewAuthService(users db.UserRepositoryInterface, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginResult struct {
	AccessToken string            `json:"access_token"`
	User        models.PublicUser `json:"user"`
}

// Register stores a new user and returns its id. The role defaults to worker.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (string, error) {
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return "", newError(ErrValidation, "Missing fields")
	}
	role := models.RoleWorker
	if input.Role != "" {
		role = models.Role(input.Role)
	}
	if !role.Valid() {
		return "", newError(ErrValidation, "Invalid role")
	}

	_, err := s.users.GetByEmail(ctx, input.Email)
	if err == nil {
		return "", newError(ErrConflict, "User already exists")
	}
	if !errors.Is(err, db.ErrNotFound) {
		return "", fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return "", err
	}
	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			return "", newError(ErrConflict, "User already exists")
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	return user.ID, nil
}

// Login checks the credentials and issues an access token. An unknown email
// and a wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, newError(ErrValidation, "Missing email or password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, newError(ErrUnauthorized, "Bad email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, newError(ErrUnauthorized, "Bad email or password")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, User: user.Public()}, nil
}

func (s *AuthService) ListUsers(ctx context.Context, caller Caller) ([]models.PublicUser, error) {
	if err := Authorize(caller, ActionListUsers, nil); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	result := make([]models.PublicUser, 0, len(users))
	for _, user := range users {
		result = append(result, user.Public())
	}
	return result, nil
}
