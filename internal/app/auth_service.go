package app

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/lekesiz/HECS/internal/auth"
	"github.com/lekesiz/HECS/internal/domain"
)

// AuthService authenticates operators and issues access tokens.
type AuthService struct {
	users  domain.UserRepository
	tokens *auth.TokenService
	clock  clockwork.Clock
}

func NewAuthService(users domain.UserRepository, tokens *auth.TokenService, clock clockwork.Clock) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		clock:  clock,
	}
}

// Login verifies the credentials and returns a signed token plus the
// account. A disabled account fails the same way as a wrong password.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive || !auth.CheckPassword(user.HashedPassword, password) {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	now := s.clock.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return "", nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLogin = &now

	return token, user, nil
}

// CurrentUser resolves the account behind a verified token subject.
func (s *AuthService) CurrentUser(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByUsername(ctx, username)
}
