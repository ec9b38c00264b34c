package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abduss/foldershare/internal/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     time.Minute,
		RefreshTokenTTL:    time.Hour,
		BcryptCost:         4,
	}
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Username:        "alice_01",
		Email:           "User@Example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
}

func TestRegisterSuccess(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())

	result, err := service.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	if result.User.PasswordHash != "" {
		t.Fatalf("expected password hash to be stripped from response")
	}
	if result.User.Email != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", result.User.Email)
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued")
	}
	if len(store.users) != 1 {
		t.Fatalf("expected user stored; got %d", len(store.users))
	}
	if len(store.refreshTokens) != 1 {
		t.Fatalf("expected refresh token stored; got %d", len(store.refreshTokens))
	}
}

func TestRegisterValidation(t *testing.T) {
	cases := map[string]func(in *RegisterInput){
		"short username":    func(in *RegisterInput) { in.Username = "ab" },
		"long username":     func(in *RegisterInput) { in.Username = strings.Repeat("a", 21) },
		"username symbols":  func(in *RegisterInput) { in.Username = "bad-name!" },
		"invalid email":     func(in *RegisterInput) { in.Email = "not-an-email" },
		"short password":    func(in *RegisterInput) { in.Password, in.ConfirmPassword = "12345", "12345" },
		"password mismatch": func(in *RegisterInput) { in.ConfirmPassword = "different" },
		"missing confirm":   func(in *RegisterInput) { in.ConfirmPassword = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			store := newMemoryStore()
			service := NewService(store, testAuthConfig())

			in := validRegistration()
			mutate(&in)

			_, err := service.Register(context.Background(), in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
			assert.Empty(t, store.users)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())

	_, err := service.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("initial registration returned error: %v", err)
	}

	again := validRegistration()
	again.Username = "someone_else"
	_, err = service.Register(context.Background(), again)
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())

	_, err := service.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	again := validRegistration()
	again.Email = "other@example.com"
	_, err = service.Register(context.Background(), again)
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLogin(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	_, err := service.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	result, err := service.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}
	if result.Tokens.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	if result.Tokens.RefreshToken == "" {
		t.Fatalf("expected refresh token")
	}
}

func TestLoginInvalidPassword(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	_, err := service.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	_, err = service.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "WrongPass",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())

	_, err := service.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "secret1",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateAccessToken(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	result, err := service.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, "alice_01", claims.Username)
	assert.Equal(t, "user@example.com", claims.Email)

	_, err = service.ValidateAccessToken("garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := NewService(newMemoryStore(), config.AuthConfig{AccessTokenSecret: "other-secret"})
	_, err = other.ValidateAccessToken(result.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidateAccessTokenExpired(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	issued := time.Now().Add(-time.Hour)
	service.nowFunc = func() time.Time { return issued }

	result, err := service.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	service.nowFunc = time.Now
	_, err = service.ValidateAccessToken(result.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())
	result, err := service.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	require.Len(t, store.refreshTokens, 1)

	require.NoError(t, service.Logout(context.Background(), result.User.ID, result.Tokens.RefreshToken))
	assert.Empty(t, store.refreshTokens)

	require.NoError(t, service.Logout(context.Background(), result.User.ID, ""))
}

func TestRefreshRotatesToken(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())
	registered, err := service.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	refreshed, err := service.Refresh(context.Background(), registered.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, refreshed.User.ID)
	assert.NotEqual(t, registered.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)
	assert.Len(t, store.refreshTokens, 1)

	claims, err := service.ValidateAccessToken(refreshed.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)

	_, err = service.Refresh(context.Background(), registered.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized, "a refresh token works once")
}

func TestRefreshRejectsExpiredRevokedAndUnknown(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, testAuthConfig())
	registered, err := service.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = service.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = service.Refresh(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrUnauthorized)

	service.nowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = service.Refresh(context.Background(), registered.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	service.nowFunc = time.Now
	login, err := service.Login(context.Background(), LoginInput{Email: "user@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, service.Logout(context.Background(), login.User.ID, login.Tokens.RefreshToken))
	_, err = service.Refresh(context.Background(), login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCurrentUserStripsHash(t *testing.T) {
	service := NewService(newMemoryStore(), testAuthConfig())
	result, err := service.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	user, err := service.CurrentUser(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash)
	assert.Equal(t, "alice_01", user.Username)

	_, err = service.CurrentUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

type storedRefreshToken struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// memoryStore implements userStore for tests.
type memoryStore struct {
	users         map[string]User
	refreshTokens map[string]storedRefreshToken
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:         make(map[string]User),
		refreshTokens: make(map[string]storedRefreshToken),
	}
}

func (m *memoryStore) CreateUser(ctx context.Context, username, email, passwordHash string) (User, error) {
	if _, ok := m.users[email]; ok {
		return User{}, ErrEmailAlreadyExists
	}
	for _, existing := range m.users {
		if existing.Username == username {
			return User{}, ErrUsernameTaken
		}
	}
	user := User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.users[email] = user
	return user, nil
}

func (m *memoryStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	user, ok := m.users[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (m *memoryStore) FindUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memoryStore) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	m.refreshTokens[tokenHash] = storedRefreshToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *memoryStore) RevokeToken(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	if tok, ok := m.refreshTokens[tokenHash]; ok && tok.userID == userID {
		delete(m.refreshTokens, tokenHash)
	}
	return nil
}

func (m *memoryStore) ConsumeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	tok, ok := m.refreshTokens[tokenHash]
	if !ok || !tok.expiresAt.After(now) {
		return uuid.Nil, ErrUnauthorized
	}
	delete(m.refreshTokens, tokenHash)
	return tok.userID, nil
}
