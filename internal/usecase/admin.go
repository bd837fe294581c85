package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
)

// AdminService issues admin-context tokens to administrators.
type AdminService struct {
	auth   *AuthService
	tokens port.TokenIssuer
}

// NewAdminService shares credential checks with auth and signs with the admin issuer.
func NewAdminService(auth *AuthService, tokens port.TokenIssuer) *AdminService {
	return &AdminService{auth: auth, tokens: tokens}
}

// Login authenticates an administrator. Other roles get ErrInvalidCredentials.
func (s *AdminService) Login(ctx context.Context, in LoginInput) (result *AuthResult, err error) {
	ctx, span, started := s.auth.begin(ctx, "admin_login")
	defer func() { s.auth.finish(span, "admin_login", started, err) }()

	account, err := s.auth.authenticate(ctx, in)
	if err != nil {
		return nil, err
	}
	if account.Role != domain.RoleAdministrator {
		s.auth.log(ctx).Warn("admin login by non-administrator", zap.Int64("account_id", account.ID))
		return nil, domain.ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(*account)
	if err != nil {
		return nil, fmt.Errorf("issue admin token: %w", err)
	}

	return &AuthResult{Account: account.View(), Token: token, ExpiresAt: claims.ExpiresAt}, nil
}

// VerifyToken decodes an admin-context bearer token.
func (s *AdminService) VerifyToken(ctx context.Context, token string) (claims domain.TokenClaims, err error) {
	_, span, started := s.auth.begin(ctx, "admin_verify")
	defer func() { s.auth.finish(span, "admin_verify", started, err) }()

	return s.tokens.Verify(strings.TrimSpace(token))
}

// Profile returns the administrator's account view.
func (s *AdminService) Profile(ctx context.Context, accountID int64) (domain.AccountView, error) {
	return s.auth.Profile(ctx, accountID)
}
