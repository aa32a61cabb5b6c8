package supabase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/resilience"
)

// AuthClient talks to GoTrue (/auth/v1) and edge functions (/functions/v1).
// Auth calls are never retried: a replayed sign-up or token exchange is not
// idempotent.
type AuthClient struct {
	http           *resty.Client
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

// NewAuthClient creates the GoTrue / functions client.
func NewAuthClient(baseURL, anonKey, serviceRoleKey string, timeout time.Duration, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *AuthClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("apikey", anonKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &AuthClient{
		http:           client,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		logger:         logger,
	}
}

// goTrueSession covers both GoTrue answers: a full session, or a bare user
// when email confirmation is pending.
type goTrueSession struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresIn    int              `json:"expires_in"`
	TokenType    string           `json:"token_type"`
	User         *domain.AuthUser `json:"user"`
	ID           string           `json:"id"`
	Email        string           `json:"email"`
}

func (s *goTrueSession) tokens() *domain.AuthTokens {
	user := s.User
	if user == nil && s.ID != "" {
		user = &domain.AuthUser{ID: s.ID, Email: s.Email}
	}
	return &domain.AuthTokens{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
		TokenType:    s.TokenType,
		User:         user,
	}
}

type goTrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e *goTrueError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return "request rejected"
}

func (a *AuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.AuthTokens, error) {
	var out goTrueSession
	err := a.post(ctx, "SignUp", "/auth/v1/signup", "", map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	}, &out)
	if err != nil {
		var rejected *clientRejection
		if errors.As(err, &rejected) {
			return nil, &domain.ErrValidation{Field: "email", Message: rejected.message}
		}
		return nil, err
	}
	return out.tokens(), nil
}

func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*domain.AuthTokens, error) {
	var out goTrueSession
	err := a.post(ctx, "SignIn", "/auth/v1/token?grant_type=password", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, asUnauthorized(err)
	}
	return out.tokens(), nil
}

func (a *AuthClient) Refresh(ctx context.Context, refreshToken string) (*domain.AuthTokens, error) {
	var out goTrueSession
	err := a.post(ctx, "Refresh", "/auth/v1/token?grant_type=refresh_token", "", map[string]any{
		"refresh_token": refreshToken,
	}, &out)
	if err != nil {
		return nil, asUnauthorized(err)
	}
	return out.tokens(), nil
}

func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	err := a.post(ctx, "SignOut", "/auth/v1/logout", accessToken, nil, nil)
	var rejected *clientRejection
	if errors.As(err, &rejected) {
		// Token already invalid: the session is gone either way.
		return nil
	}
	return err
}

type inviteResponse struct {
	UserID string           `json:"user_id"`
	ID     string           `json:"id"`
	Email  string           `json:"email"`
	Role   domain.Role      `json:"role"`
	User   *domain.AuthUser `json:"user"`
}

// InviteUser invokes the invite-user edge function, which creates the auth
// user, the profile and any role-specific records server-side.
func (a *AuthClient) InviteUser(ctx context.Context, req *domain.InviteUserRequest) (*domain.InviteUserResponse, error) {
	var out inviteResponse
	err := a.post(ctx, "InviteUser", "/functions/v1/invite-user", a.serviceRoleKey, req, &out)
	if err != nil {
		var rejected *clientRejection
		if errors.As(err, &rejected) {
			return nil, &domain.ErrValidation{Field: "email", Message: rejected.message}
		}
		return nil, err
	}

	resp := &domain.InviteUserResponse{UserID: out.UserID, Email: out.Email, Role: out.Role}
	if resp.UserID == "" {
		resp.UserID = out.ID
	}
	if out.User != nil {
		if resp.UserID == "" {
			resp.UserID = out.User.ID
		}
		if resp.Email == "" {
			resp.Email = out.User.Email
		}
	}
	if resp.Email == "" {
		resp.Email = req.Email
	}
	if resp.Role == "" {
		resp.Role = req.Role
	}
	return resp, nil
}

// clientRejection is a 4xx answer carrying the provider's message.
type clientRejection struct {
	status  int
	message string
}

func (e *clientRejection) Error() string {
	return fmt.Sprintf("auth rejected (%d): %s", e.status, e.message)
}

func asUnauthorized(err error) error {
	var rejected *clientRejection
	if errors.As(err, &rejected) {
		return &domain.ErrUnauthorized{Message: rejected.message}
	}
	return err
}

func (a *AuthClient) post(ctx context.Context, op, path, bearer string, body, result any) error {
	ctx, span := tracer.Start(ctx, "SupabaseAuth."+op)
	defer span.End()

	_, err := a.cb.Execute(func() (any, error) {
		var apiErr goTrueError
		r := a.http.R().SetContext(ctx).SetError(&apiErr)
		if bearer != "" {
			r.SetAuthToken(bearer)
		}
		if body != nil {
			r.SetBody(body)
		}
		if result != nil {
			r.SetResult(result)
		}

		resp, err := r.Post(path)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			a.logger.Warn("supabase auth: non-2xx response",
				zap.String("op", op),
				zap.Int("status", resp.StatusCode()),
			)
			if isClientError(resp.StatusCode()) {
				return nil, resilience.Permanent(&clientRejection{status: resp.StatusCode(), message: apiErr.text()})
			}
			return nil, &domain.ErrRemote{Status: resp.StatusCode(), Body: resp.String()}
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}

	var rejected *clientRejection
	switch {
	case errors.As(err, &rejected):
		return rejected
	case resilience.IsCircuitOpen(err):
		return &domain.ErrCircuitOpen{Service: "supabase-auth"}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: "supabase-auth/" + op}
	}
	a.logger.Error("supabase auth: request failed", zap.String("op", op), zap.Error(err))
	return &domain.ErrExternalService{Service: "supabase-auth/" + op, Err: err}
}
