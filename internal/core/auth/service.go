package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingFields      = errors.New("Email and password required")
	ErrInvalidInput       = errors.New("Invalid input")
	ErrInvalidEmail       = errors.New("Invalid email format")
	ErrPasswordTooShort   = errors.New("Password must be at least 6 characters")
	ErrPasswordTooLong    = errors.New("Password must be at most 72 characters")
	ErrEmailTaken         = errors.New("User already exists")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrAccountDisabled    = errors.New("Account is disabled")
	ErrUserNotFound       = errors.New("User not found")
	ErrGoogleDisabled     = errors.New("Google sign-in is not configured")
	ErrInvalidGoogleToken = errors.New("Invalid Google token")
)

// AuditRecorder receives security-relevant events.
type AuditRecorder interface {
	LogAction(ctx context.Context, userID, action, entityType, entityID string, metadata map[string]interface{}) error
}

// GoogleVerifier turns a Google ID token into a verified identity.
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*GoogleUserInfo, error)
}

type Service struct {
	repo        UserRepository
	jwtService  *JWTService
	google      GoogleVerifier
	audit       AuditRecorder
	adminEmails map[string]bool
	validate    *validator.Validate
}

type Option func(*Service)

func WithGoogleVerifier(v GoogleVerifier) Option {
	return func(s *Service) { s.google = v }
}

func WithAuditRecorder(a AuditRecorder) Option {
	return func(s *Service) { s.audit = a }
}

// WithAdminEmails grants the admin role to accounts registered with these addresses.
func WithAdminEmails(emails []string) Option {
	return func(s *Service) {
		for _, e := range emails {
			s.adminEmails[normalizeEmail(e)] = true
		}
	}
}

// NewService creates a new auth service
func NewService(repo UserRepository, jwtService *JWTService, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		jwtService:  jwtService,
		adminEmails: make(map[string]bool),
		validate:    validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new user account with a zero credit balance.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validateRegister(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:         req.Email,
		Name:          strings.TrimSpace(req.Name),
		Role:          s.roleFor(req.Email),
		PasswordHash:  passwordHash,
		OAuthProvider: "email",
		Credits:       0,
		IsActive:      true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("User registered")
	s.record(ctx, user.ID.String(), "user.register", map[string]interface{}{"provider": "email"})

	return s.generateAuthResponse(user)
}

// Login authenticates user with email and password
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = VerifyPassword(string(dummyHash), req.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.PasswordHash == "" || VerifyPassword(user.PasswordHash, req.Password) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if err := s.promote(ctx, user); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID.String()); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Failed to update last login")
	}

	log.Info().Str("user_id", user.ID.String()).Msg("User logged in")
	s.record(ctx, user.ID.String(), "user.login", map[string]interface{}{"provider": "email"})

	return s.generateAuthResponse(user)
}

// LoginWithGoogle finds the account by Google subject, links an existing
// email account, or creates a new one.
func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (*AuthResponse, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}

	info, err := s.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		log.Warn().Err(err).Msg("Google token verification failed")
		return nil, ErrInvalidGoogleToken
	}
	email := normalizeEmail(info.Email)

	user, err := s.repo.GetUserByGoogleID(ctx, info.GoogleID)
	switch {
	case err == nil:
	case errors.Is(err, ErrUserNotFound):
		user, err = s.repo.GetUserByEmail(ctx, email)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if user != nil {
			googleID := info.GoogleID
			user.GoogleID = &googleID
			if user.AvatarURL == "" {
				user.AvatarURL = info.AvatarURL
			}
			if user.Name == "" {
				user.Name = info.Name
			}
			if err := s.repo.UpdateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to link google account: %w", err)
			}
			log.Info().Str("user_id", user.ID.String()).Msg("Linked Google account")
		} else {
			googleID := info.GoogleID
			user = &User{
				Email:         email,
				Name:          info.Name,
				Role:          s.roleFor(email),
				GoogleID:      &googleID,
				OAuthProvider: "google",
				AvatarURL:     info.AvatarURL,
				IsActive:      true,
			}
			if err := s.repo.CreateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to create user: %w", err)
			}
			log.Info().Str("user_id", user.ID.String()).Msg("User registered via Google")
		}
	default:
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if err := s.promote(ctx, user); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateLastLogin(ctx, user.ID.String()); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Failed to update last login")
	}
	s.record(ctx, user.ID.String(), "user.login", map[string]interface{}{"provider": "google"})

	return s.generateAuthResponse(user)
}

// Me returns the active account behind a token.
func (s *Service) Me(ctx context.Context, userID string) (*UserInfo, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newUserInfo(user), nil
}

// ValidateToken validates a bearer token
func (s *Service) ValidateToken(token string) (*TokenClaims, error) {
	return s.jwtService.ValidateToken(token)
}

func (s *Service) generateAuthResponse(user *User) (*AuthResponse, error) {
	token, err := s.jwtService.GenerateToken(&TokenClaims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Success: true,
		User:    newUserInfo(user),
		Token:   token,
	}, nil
}

func (s *Service) validateRegister(req *RegisterRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	// report the first failure in field order
	for _, fe := range verrs {
		switch {
		case fe.Tag() == "required":
			return ErrMissingFields
		case fe.Field() == "Email":
			return ErrInvalidEmail
		case fe.Field() == "Password" && fe.Tag() == "min":
			return ErrPasswordTooShort
		case fe.Field() == "Password" && fe.Tag() == "max":
			return ErrPasswordTooLong
		default:
			return fmt.Errorf("%w: %s", ErrInvalidInput, strings.ToLower(fe.Field()))
		}
	}
	return nil
}

// promote grants the admin role to an existing account whose email was
// added to the admin list after it registered.
func (s *Service) promote(ctx context.Context, user *User) error {
	if user.Role == RoleAdmin || s.roleFor(user.Email) != RoleAdmin {
		return nil
	}
	user.Role = RoleAdmin
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to promote user: %w", err)
	}
	log.Info().Str("user_id", user.ID.String()).Msg("User promoted to admin")
	s.record(ctx, user.ID.String(), "user.promote", map[string]interface{}{"role": RoleAdmin})
	return nil
}

func (s *Service) roleFor(email string) string {
	if s.adminEmails[email] {
		return RoleAdmin
	}
	return RoleUser
}

func (s *Service) record(ctx context.Context, userID, action string, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogAction(ctx, userID, action, "user", userID, metadata); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("Failed to write audit log")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
