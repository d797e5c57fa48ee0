package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
	// set to make every call fail
	failWith error
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uuid.UUID]*User)}
}

func (r *memoryUserRepo) CreateUser(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memoryUserRepo) find(match func(*User) bool) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memoryUserRepo) GetUserByEmail(_ context.Context, email string) (*User, error) {
	return r.find(func(u *User) bool { return u.Email == email })
}

func (r *memoryUserRepo) GetUserByID(_ context.Context, id string) (*User, error) {
	return r.find(func(u *User) bool { return u.ID.String() == id && u.IsActive })
}

func (r *memoryUserRepo) GetUserByGoogleID(_ context.Context, googleID string) (*User, error) {
	return r.find(func(u *User) bool { return u.GoogleID != nil && *u.GoogleID == googleID })
}

func (r *memoryUserRepo) UpdateUser(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memoryUserRepo) UpdateLastLogin(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID.String() == userID {
			now := time.Now()
			u.LastLoginAt = &now
		}
	}
	return nil
}

func (r *memoryUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	_, err := r.GetUserByEmail(context.Background(), email)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

type stubGoogle struct {
	info *GoogleUserInfo
	err  error
}

func (s stubGoogle) VerifyIDToken(context.Context, string) (*GoogleUserInfo, error) {
	return s.info, s.err
}

type recordedAction struct {
	userID, action string
}

type auditSpy struct {
	mu      sync.Mutex
	actions []recordedAction
}

func (a *auditSpy) LogAction(_ context.Context, userID, action, _, _ string, _ map[string]interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, recordedAction{userID, action})
	return nil
}

func newTestService(opts ...Option) (*Service, *memoryUserRepo) {
	repo := newMemoryUserRepo()
	return NewService(repo, NewJWTService("test-secret", time.Hour), opts...), repo
}

func TestRegister(t *testing.T) {
	spy := &auditSpy{}
	svc, repo := newTestService(WithAuditRecorder(spy))

	resp, err := svc.Register(context.Background(), &RegisterRequest{Email: "  Jane@Example.com ", Password: "secret1"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "jane@example.com", resp.User.Email)
	assert.Equal(t, 0, resp.User.Credits)
	assert.NotNil(t, resp.User.CreatedAt)

	stored, err := repo.GetUserByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NoError(t, VerifyPassword(stored.PasswordHash, "secret1"))
	assert.Equal(t, RoleUser, stored.Role)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID.String(), claims.UserID)

	require.Len(t, spy.actions, 1)
	assert.Equal(t, "user.register", spy.actions[0].action)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name string
		req  RegisterRequest
		want error
	}{
		{"missing email", RegisterRequest{Password: "secret1"}, ErrMissingFields},
		{"missing password", RegisterRequest{Email: "a@example.com"}, ErrMissingFields},
		{"short password", RegisterRequest{Email: "a@example.com", Password: "12345"}, ErrPasswordTooShort},
		{"bad email", RegisterRequest{Email: "not-an-email", Password: "secret1"}, ErrInvalidEmail},
		{"long email", RegisterRequest{Email: strings.Repeat("a", 250) + "@example.com", Password: "secret1"}, ErrInvalidEmail},
		{"long password", RegisterRequest{Email: "a@example.com", Password: strings.Repeat("p", 73)}, ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := svc.Register(context.Background(), &req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Email: "dup@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterRequest{Email: "DUP@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterAdminEmail(t *testing.T) {
	svc, _ := newTestService(WithAdminEmails([]string{"Boss@Example.com"}))

	resp, err := svc.Register(context.Background(), &RegisterRequest{Email: "boss@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, resp.User.Role)
}

func TestLoginPromotesAdminEmail(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryUserRepo()
	jwtService := NewJWTService("test-secret", time.Hour)

	_, err := NewService(repo, jwtService).Register(ctx, &RegisterRequest{Email: "boss@example.com", Password: "secret1"})
	require.NoError(t, err)

	svc := NewService(repo, jwtService, WithAdminEmails([]string{"boss@example.com"}))
	resp, err := svc.Login(ctx, &LoginRequest{Email: "boss@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, resp.User.Role)

	stored, err := repo.GetUserByEmail(ctx, "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, stored.Role)
	assert.NotNil(t, stored.LastLoginAt)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestLogin(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, &RegisterRequest{Email: "user@example.com", Password: "secret1"})
	require.NoError(t, err)

	t.Run("success updates last login", func(t *testing.T) {
		resp, err := svc.Login(ctx, &LoginRequest{Email: "USER@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)

		stored, _ := repo.GetUserByEmail(ctx, "user@example.com")
		assert.NotNil(t, stored.LastLoginAt)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, &LoginRequest{Email: "user@example.com", Password: "nope123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, &LoginRequest{Email: "ghost@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Login(ctx, &LoginRequest{Email: "user@example.com"})
		assert.ErrorIs(t, err, ErrMissingFields)
	})

	t.Run("disabled account", func(t *testing.T) {
		stored, _ := repo.GetUserByEmail(ctx, "user@example.com")
		stored.IsActive = false
		require.NoError(t, repo.UpdateUser(ctx, stored))

		_, err := svc.Login(ctx, &LoginRequest{Email: "user@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestLoginRepositoryFailure(t *testing.T) {
	svc, repo := newTestService()
	repo.failWith = errors.New("db down")

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "user@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWithGoogle(t *testing.T) {
	ctx := context.Background()
	info := &GoogleUserInfo{GoogleID: "g-123", Email: "G@Example.com", Name: "Gee", AvatarURL: "https://img/a.png"}

	t.Run("creates new account", func(t *testing.T) {
		svc, repo := newTestService(WithGoogleVerifier(stubGoogle{info: info}))

		resp, err := svc.LoginWithGoogle(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "g@example.com", resp.User.Email)

		stored, err := repo.GetUserByGoogleID(ctx, "g-123")
		require.NoError(t, err)
		assert.Equal(t, "google", stored.OAuthProvider)
		assert.Equal(t, 0, stored.Credits)
	})

	t.Run("links existing email account", func(t *testing.T) {
		svc, repo := newTestService(WithGoogleVerifier(stubGoogle{info: info}))
		_, err := svc.Register(ctx, &RegisterRequest{Email: "g@example.com", Password: "secret1"})
		require.NoError(t, err)

		_, err = svc.LoginWithGoogle(ctx, "token")
		require.NoError(t, err)

		stored, err := repo.GetUserByGoogleID(ctx, "g-123")
		require.NoError(t, err)
		assert.Equal(t, "email", stored.OAuthProvider)
		assert.Equal(t, "https://img/a.png", stored.AvatarURL)
		assert.Len(t, repo.users, 1)
	})

	t.Run("promotes linked admin email", func(t *testing.T) {
		repo := newMemoryUserRepo()
		jwtService := NewJWTService("test-secret", time.Hour)
		_, err := NewService(repo, jwtService).Register(ctx, &RegisterRequest{Email: "g@example.com", Password: "secret1"})
		require.NoError(t, err)

		svc := NewService(repo, jwtService, WithGoogleVerifier(stubGoogle{info: info}), WithAdminEmails([]string{"g@example.com"}))
		resp, err := svc.LoginWithGoogle(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, resp.User.Role)

		stored, err := repo.GetUserByGoogleID(ctx, "g-123")
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, stored.Role)
	})

	t.Run("invalid token", func(t *testing.T) {
		svc, _ := newTestService(WithGoogleVerifier(stubGoogle{err: errors.New("bad audience")}))
		_, err := svc.LoginWithGoogle(ctx, "token")
		assert.ErrorIs(t, err, ErrInvalidGoogleToken)
	})

	t.Run("not configured", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.LoginWithGoogle(ctx, "token")
		assert.ErrorIs(t, err, ErrGoogleDisabled)
	})
}

func TestMe(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	resp, err := svc.Register(ctx, &RegisterRequest{Email: "me@example.com", Password: "secret1"})
	require.NoError(t, err)

	info, err := svc.Me(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", info.Email)

	_, err = svc.Me(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserInfoFromClaims(t *testing.T) {
	info, err := userInfoFromClaims(map[string]interface{}{
		"sub": "1", "email": "a@b.c", "email_verified": true, "name": "A", "picture": "p",
	})
	require.NoError(t, err)
	assert.Equal(t, "1", info.GoogleID)

	_, err = userInfoFromClaims(map[string]interface{}{"sub": "1", "email": "a@b.c"})
	assert.Error(t, err)

	_, err = userInfoFromClaims(map[string]interface{}{"email": "a@b.c", "email_verified": true})
	assert.Error(t, err)
}
