package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
)

func TestAdminLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.auth.Register(ctx, RegisterInput{
		Name:       "Carlos",
		Identifier: "carlos@micampofresco.bo",
		Password:   "admin123",
		Role:       "administrador",
	})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}

	result, err := f.admin.Login(ctx, LoginInput{Identifier: "carlos@micampofresco.bo", Password: "admin123"})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if result.Account.ID != admin.Account.ID {
		t.Fatalf("expected admin account, got %+v", result.Account)
	}

	claims, err := f.admin.VerifyToken(ctx, result.Token)
	if err != nil {
		t.Fatalf("verify admin token: %v", err)
	}
	if claims.Context != domain.TokenContextAdmin || claims.Role != domain.RoleAdministrator {
		t.Fatalf("unexpected admin claims %+v", claims)
	}
	if !claims.ExpiresAt.Equal(f.clock.Now().Add(24 * time.Hour)) {
		t.Fatalf("expected 24h admin token, got %s", claims.ExpiresAt)
	}

	if _, err := f.auth.VerifyToken(ctx, result.Token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("admin token must not verify in the auth context, got %v", err)
	}
	if _, err := f.admin.VerifyToken(ctx, admin.Token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("auth token must not verify in the admin context, got %v", err)
	}

	view, err := f.admin.Profile(ctx, claims.AccountID)
	if err != nil {
		t.Fatalf("admin profile: %v", err)
	}
	if view.Role != domain.RoleAdministrator {
		t.Fatalf("unexpected role %s", view.Role)
	}
}

func TestAdminLoginRejectsOtherRoles(t *testing.T) {
	f := newFixture(t)
	f.registerAna(t)

	_, err := f.admin.Login(context.Background(), LoginInput{Identifier: "ana@example.com", Password: "secreto1"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for vendor, got %v", err)
	}
}
