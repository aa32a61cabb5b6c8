package domain

// ============================================================
// Auth: request / response types
// ============================================================

// SignInRequest is the body for POST /v1/auth/signin.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpRequest is the body for POST /v1/auth/signup.
type SignUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	FullName    string `json:"full_name" validate:"required,min=2,max=120"`
	CompanyName string `json:"company_name" validate:"max=160"`
	Phone       string `json:"phone" validate:"omitempty,phone"`
}

// RefreshRequest is the body for POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Session is returned by sign-in, sign-up and refresh.
type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	TokenType    string   `json:"token_type"`
	Profile      *Profile `json:"profile,omitempty"`
	Redirect     string   `json:"redirect,omitempty"`
}

// AuthUser is the subset of a GoTrue user the service needs.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthTokens is a GoTrue token grant.
type AuthTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
	TokenType    string    `json:"token_type"`
	User         *AuthUser `json:"user"`
}

// InviteUserRequest is the body for POST /v1/admin/users/invite and the
// payload sent to the invite-user edge function.
type InviteUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	FullName    string `json:"full_name" validate:"required,min=2,max=120"`
	Role        Role   `json:"role" validate:"required,oneof=admin operator user"`
	CompanyName string `json:"company_name,omitempty" validate:"max=160"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,phone"`
}

// InviteUserResponse is returned by the invite-user edge function.
type InviteUserResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}
