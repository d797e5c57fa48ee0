package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a customer account; Credits is the spendable balance.
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Email string    `gorm:"type:text;uniqueIndex;not null" json:"email"`
	Name  string    `gorm:"type:text" json:"name,omitempty"`
	Role  string    `gorm:"type:text;not null;default:'user'" json:"role"`

	// Authentication
	PasswordHash string `gorm:"type:text" json:"-"`

	// OAuth
	GoogleID      *string `gorm:"type:text;uniqueIndex;column:google_id" json:"-"`
	OAuthProvider string  `gorm:"type:text;default:'email';column:oauth_provider" json:"oauth_provider"`
	AvatarURL     string  `gorm:"type:text" json:"avatar_url,omitempty"`

	Credits  int  `gorm:"not null;default:0" json:"credits"`
	IsActive bool `gorm:"type:boolean;default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// LoginRequest represents login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents registration request payload
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name,omitempty" validate:"max=120"`
}

// GoogleLoginRequest carries the ID token issued to the frontend by Google.
type GoogleLoginRequest struct {
	Token string `json:"token"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Success bool      `json:"success"`
	User    *UserInfo `json:"user"`
	Token   string    `json:"token"`
}

// UserInfo is the public projection of a User.
type UserInfo struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	Role      string     `json:"role,omitempty"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	Credits   int        `json:"credits"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func newUserInfo(u *User) *UserInfo {
	created := u.CreatedAt
	info := &UserInfo{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
		Credits:   u.Credits,
		LastLogin: u.LastLoginAt,
	}
	if !created.IsZero() {
		info.CreatedAt = &created
	}
	return info
}
