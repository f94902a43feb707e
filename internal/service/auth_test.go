package service

import (
	"context"
	"errors"
	"testing"

	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		repo    *MockUserRepository
		wantErr error
		wantMsg string
		role    models.Role
	}{
		{
			name:  "defaults to worker",
			input: RegisterInput{Name: "A", Email: "a@x.com", Password: "p"},
			repo:  NewMockUserRepository(),
			role:  models.RoleWorker,
		},
		{
			name:  "admin role",
			input: RegisterInput{Name: "A", Email: "a@x.com", Password: "p", Role: "admin"},
			repo:  NewMockUserRepository(),
			role:  models.RoleAdmin,
		},
		{
			name:    "missing name",
			input:   RegisterInput{Email: "a@x.com", Password: "p"},
			repo:    NewMockUserRepository(),
			wantErr: ErrValidation,
			wantMsg: "Missing fields",
		},
		{
			name:    "missing email",
			input:   RegisterInput{Name: "A", Password: "p"},
			repo:    NewMockUserRepository(),
			wantErr: ErrValidation,
			wantMsg: "Missing fields",
		},
		{
			name:    "missing password",
			input:   RegisterInput{Name: "A", Email: "a@x.com"},
			repo:    NewMockUserRepository(),
			wantErr: ErrValidation,
			wantMsg: "Missing fields",
		},
		{
			name:    "unknown role",
			input:   RegisterInput{Name: "A", Email: "a@x.com", Password: "p", Role: "owner"},
			repo:    NewMockUserRepository(),
			wantErr: ErrValidation,
			wantMsg: "Invalid role",
		},
		{
			name:    "duplicate raced past the lookup",
			input:   RegisterInput{Name: "A", Email: "a@x.com", Password: "p"},
			repo:    &MockUserRepository{users: map[string]*models.User{}, createErr: db.ErrDuplicateEmail},
			wantErr: ErrConflict,
			wantMsg: "User already exists",
		},
		{
			name:  "store failure",
			input: RegisterInput{Name: "A", Email: "a@x.com", Password: "p"},
			repo:  &MockUserRepository{users: map[string]*models.User{}, getErr: errStore},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAuthService(tt.repo, stubTokens{})
			id, err := svc.Register(context.Background(), tt.input)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantMsg, err.Error())
			case tt.repo.getErr != nil:
				require.ErrorIs(t, err, errStore)
				var serr *Error
				assert.False(t, errors.As(err, &serr), "store failures must not look like client errors")
			default:
				require.NoError(t, err)
				assert.NotEmpty(t, id)
				stored := tt.repo.users[tt.input.Email]
				require.NotNil(t, stored)
				assert.Equal(t, tt.role, stored.Role)
				assert.NotEqual(t, tt.input.Password, stored.PasswordHash)
			}
		})
	}
}

func TestAuthService_RegisterTwice(t *testing.T) {
	svc := NewAuthService(NewMockUserRepository(), stubTokens{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "a@x.com", Password: "q"})
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "User already exists", err.Error())

	// exact match: a differently cased email is another user
	_, err = svc.Register(ctx, RegisterInput{Name: "C", Email: "A@x.com", Password: "q"})
	assert.NoError(t, err)
}

func TestAuthService_Login(t *testing.T) {
	repo := NewMockUserRepository()
	svc := NewAuthService(repo, stubTokens{})
	ctx := context.Background()

	id, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "p", Role: "admin"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, "a@x.com", "p")
	require.NoError(t, err)
	assert.Equal(t, "token-for-"+id, result.AccessToken)
	assert.Equal(t, models.PublicUser{ID: id, Name: "A", Email: "a@x.com", Role: models.RoleAdmin}, result.User)

	_, wrongPassword := svc.Login(ctx, "a@x.com", "wrong")
	_, unknownEmail := svc.Login(ctx, "nobody@x.com", "p")
	require.ErrorIs(t, wrongPassword, ErrUnauthorized)
	require.ErrorIs(t, unknownEmail, ErrUnauthorized)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, "Bad email or password", unknownEmail.Error())

	_, err = svc.Login(ctx, "", "p")
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Missing email or password", err.Error())
}

func TestAuthService_LoginTokenFailure(t *testing.T) {
	repo := NewMockUserRepository()
	ctx := context.Background()
	_, err := NewAuthService(repo, stubTokens{}).Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	signErr := errors.New("cannot sign")
	_, err = NewAuthService(repo, stubTokens{err: signErr}).Login(ctx, "a@x.com", "p")
	assert.ErrorIs(t, err, signErr)
}

func TestAuthService_ListUsers(t *testing.T) {
	svc := NewAuthService(NewMockUserRepository(), stubTokens{})
	ctx := context.Background()
	for _, email := range []string{"a@x.com", "b@x.com"} {
		_, err := svc.Register(ctx, RegisterInput{Name: email, Email: email, Password: "p"})
		require.NoError(t, err)
	}

	users, err := svc.ListUsers(ctx, Caller{ID: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a@x.com", users[0].Email)
	assert.Equal(t, models.RoleWorker, users[0].Role)

	_, err = svc.ListUsers(ctx, Caller{ID: "w", Role: models.RoleWorker})
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "Admin only", err.Error())
}
