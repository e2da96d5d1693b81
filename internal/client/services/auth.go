package services

import (
	"context"

	"github.com/aowusu/birthsync/internal/client/remote"
	"github.com/aowusu/birthsync/internal/common"
)

// AuthService defines the authentication operations for the CLI. A session is
// required for remote calls only; local reads and queued writes work without
// one.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) error
	Logout()
	Ping(ctx context.Context) error
	LoggedIn() bool
	UserID() string
}

type authService struct {
	remote remote.Service
}

// NewAuthService constructs an AuthService bound to the remote service.
func NewAuthService(rs remote.Service) AuthService {
	return &authService{remote: rs}
}

// Login authenticates against the registry. The password slice is wiped
// before returning, success or not.
func (a *authService) Login(ctx context.Context, username string, password []byte) error {
	defer common.WipeByteArray(password)
	return a.remote.Login(ctx, username, string(password))
}

func (a *authService) Logout() {
	a.remote.Logout()
}

func (a *authService) Ping(ctx context.Context) error {
	return a.remote.Ping(ctx)
}

func (a *authService) LoggedIn() bool {
	return a.remote.Authenticated()
}

func (a *authService) UserID() string {
	return a.remote.UserID()
}
