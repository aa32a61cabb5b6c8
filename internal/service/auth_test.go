package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/cache"
	"github.com/trabamex/mir-bff-go/internal/service"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func expectErr[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	if !errors.As(err, &target) {
		t.Fatalf("expected %T, got %v", target, err)
	}
	return target
}

func newAuthService(gw *mockGateway, profiles *mockProfiles, acts *mockActivities) *service.AuthService {
	return service.NewAuthService(
		gw,
		profiles,
		cache.New[*domain.Profile](time.Minute),
		service.NewActivityService(acts, zap.NewNop()),
		testSecret,
		zap.NewNop(),
	)
}

func signToken(t *testing.T, secret, sub string, exp time.Time) string {
	t.Helper()
	claims := service.AccessClaims{
		Email: "ana@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func tokensFor(userID string) *domain.AuthTokens {
	return &domain.AuthTokens{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
		User:         &domain.AuthUser{ID: userID},
	}
}

func TestSignUp_CreatesUserProfile(t *testing.T) {
	gw := &mockGateway{tokens: tokensFor("u-1")}
	profiles := newMockProfiles()
	svc := newAuthService(gw, profiles, &mockActivities{})

	sess, err := svc.SignUp(context.Background(), &domain.SignUpRequest{
		Email:       " Ana@Example.com ",
		Password:    "password123",
		FullName:    "Ana Pérez",
		CompanyName: "Química del Norte",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(profiles.created) != 1 {
		t.Fatalf("expected one profile created, got %d", len(profiles.created))
	}
	p := profiles.created[0]
	if p.Role != domain.RoleUser || p.Email != "ana@example.com" || p.ID != "u-1" {
		t.Errorf("unexpected profile %+v", p)
	}
	if gw.metadata["full_name"] != "Ana Pérez" {
		t.Errorf("expected full_name metadata, got %v", gw.metadata)
	}
	if sess.Redirect != "/dashboard" {
		t.Errorf("expected redirect /dashboard, got %s", sess.Redirect)
	}
	if sess.TokenType != "bearer" {
		t.Errorf("expected default token type bearer, got %q", sess.TokenType)
	}
}

func TestSignUp_ProfileAlreadyProvisioned(t *testing.T) {
	gw := &mockGateway{tokens: tokensFor("u-1")}
	profiles := newMockProfiles(&domain.Profile{ID: "u-1", Role: domain.RoleUser, FullName: "Ana"})
	profiles.createErr = &domain.ErrConflict{Message: "duplicate key"}
	svc := newAuthService(gw, profiles, &mockActivities{})

	sess, err := svc.SignUp(context.Background(), &domain.SignUpRequest{Email: "a@b.mx", Password: "password123", FullName: "Ana"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.Profile.FullName != "Ana" {
		t.Errorf("expected existing profile, got %+v", sess.Profile)
	}
}

func TestSignIn_RedirectsByRole(t *testing.T) {
	cases := map[domain.Role]string{
		domain.RoleAdmin:    "/admin",
		domain.RoleOperator: "/operator",
		domain.RoleUser:     "/dashboard",
	}
	for role, want := range cases {
		profiles := newMockProfiles(&domain.Profile{ID: "u-1", Role: role})
		svc := newAuthService(&mockGateway{tokens: tokensFor("u-1")}, profiles, &mockActivities{})

		sess, err := svc.SignIn(context.Background(), &domain.SignInRequest{Email: "a@b.mx", Password: "x"})
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", role, err)
		}
		if sess.Redirect != want {
			t.Errorf("%s: expected redirect %s, got %s", role, want, sess.Redirect)
		}
	}
}

func TestSignIn_WithoutProfileIsUnauthorized(t *testing.T) {
	svc := newAuthService(&mockGateway{tokens: tokensFor("ghost")}, newMockProfiles(), &mockActivities{})

	_, err := svc.SignIn(context.Background(), &domain.SignInRequest{Email: "a@b.mx", Password: "x"})
	expectErr[*domain.ErrUnauthorized](t, err)
}

func TestSignIn_GatewayErrorPassesThrough(t *testing.T) {
	svc := newAuthService(&mockGateway{err: &domain.ErrUnauthorized{Message: "Invalid login credentials"}}, newMockProfiles(), &mockActivities{})

	_, err := svc.SignIn(context.Background(), &domain.SignInRequest{Email: "a@b.mx", Password: "bad"})
	e := expectErr[*domain.ErrUnauthorized](t, err)
	if e.Message != "Invalid login credentials" {
		t.Errorf("unexpected message %q", e.Message)
	}
}

func TestAuthenticate_ValidToken(t *testing.T) {
	profiles := newMockProfiles(&domain.Profile{ID: "u-1", Role: domain.RoleOperator})
	svc := newAuthService(&mockGateway{}, profiles, &mockActivities{})
	token := signToken(t, testSecret, "u-1", time.Now().Add(time.Hour))

	for i := 0; i < 3; i++ {
		p, err := svc.Authenticate(context.Background(), token)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.Role != domain.RoleOperator {
			t.Errorf("expected operator role, got %s", p.Role)
		}
	}
	if profiles.gets != 1 {
		t.Errorf("expected profile cached after first load, got %d lookups", profiles.gets)
	}
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	profiles := newMockProfiles(&domain.Profile{ID: "u-1", Role: domain.RoleUser})
	svc := newAuthService(&mockGateway{}, profiles, &mockActivities{})

	tokens := map[string]string{
		"expired":      signToken(t, testSecret, "u-1", time.Now().Add(-time.Minute)),
		"wrong secret": signToken(t, "another-secret-another-secret-another", "u-1", time.Now().Add(time.Hour)),
		"garbage":      "not-a-jwt",
		"no subject":   signToken(t, testSecret, "", time.Now().Add(time.Hour)),
	}
	for name, tok := range tokens {
		_, err := svc.Authenticate(context.Background(), tok)
		var unauthorized *domain.ErrUnauthorized
		if !errors.As(err, &unauthorized) {
			t.Errorf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}
}

func TestAuthenticate_UnknownRoleIsForbidden(t *testing.T) {
	profiles := newMockProfiles(&domain.Profile{ID: "u-1", Role: "driver"})
	svc := newAuthService(&mockGateway{}, profiles, &mockActivities{})

	_, err := svc.Authenticate(context.Background(), signToken(t, testSecret, "u-1", time.Now().Add(time.Hour)))
	expectErr[*domain.ErrForbidden](t, err)
}

func TestUpdateMe_InvalidatesCacheAndRecordsActivity(t *testing.T) {
	profiles := newMockProfiles(&domain.Profile{ID: "u-1", Role: domain.RoleUser, FullName: "Ana"})
	acts := &mockActivities{}
	svc := newAuthService(&mockGateway{}, profiles, acts)
	ctx := context.Background()

	if _, err := svc.GetMe(ctx, "u-1"); err != nil {
		t.Fatalf("get me: %v", err)
	}

	name := "  Ana María  "
	p, err := svc.UpdateMe(ctx, "u-1", &domain.UpdateProfileRequest{FullName: &name})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.FullName != "Ana María" {
		t.Errorf("expected trimmed name, got %q", p.FullName)
	}

	again, _ := svc.GetMe(ctx, "u-1")
	if again.FullName != "Ana María" {
		t.Errorf("expected fresh profile after update, got %q", again.FullName)
	}
	if len(acts.ofType(domain.ActivityProfileUpdated)) != 1 {
		t.Errorf("expected a profile_updated activity")
	}
}

func TestUpdateMe_EmptyBody(t *testing.T) {
	svc := newAuthService(&mockGateway{}, newMockProfiles(&domain.Profile{ID: "u-1"}), &mockActivities{})

	_, err := svc.UpdateMe(context.Background(), "u-1", &domain.UpdateProfileRequest{})
	expectErr[*domain.ErrValidation](t, err)
}

func TestSignOut_DropsCachedProfile(t *testing.T) {
	gw := &mockGateway{}
	profiles := newMockProfiles(&domain.Profile{ID: "u-1", Role: domain.RoleUser})
	svc := newAuthService(gw, profiles, &mockActivities{})
	ctx := context.Background()

	_, _ = svc.GetMe(ctx, "u-1")
	if err := svc.SignOut(ctx, "u-1", "tok"); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	_, _ = svc.GetMe(ctx, "u-1")

	if gw.signedOut != "tok" {
		t.Errorf("expected gateway sign out with token, got %q", gw.signedOut)
	}
	if profiles.gets != 2 {
		t.Errorf("expected reload after sign out, got %d lookups", profiles.gets)
	}
}
