package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/noticeboard-api/internal/models"
	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
)

type mockAuthRepo struct {
	nextID      int64
	users       map[string]*models.User
	tokens      map[string]*models.PasswordResetToken
	findErr     error
	deletedIDs  []int64
	createCalls int
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{users: map[string]*models.User{}, tokens: map[string]*models.PasswordResetToken{}}
}

func (m *mockAuthRepo) addUser(t *testing.T, email, password string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	m.nextID++
	user := &models.User{ID: m.nextID, Name: "User", Email: email, PasswordHash: string(hash), Role: role, Department: "physics"}
	m.users[email] = user
	return user
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	user, ok := m.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.createCalls++
	m.nextID++
	user.ID = m.nextID
	m.users[user.Email] = user
	return nil
}

func (m *mockAuthRepo) Delete(ctx context.Context, id int64) error {
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *mockAuthRepo) CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) (int64, error) {
	stored, ok := m.tokens[token]
	if !ok || stored.Used || !stored.ExpiresAt.After(now) {
		return 0, sql.ErrNoRows
	}
	stored.Used = true
	for _, user := range m.users {
		if user.ID == stored.UserID {
			user.PasswordHash = passwordHash
		}
	}
	return stored.UserID, nil
}

type resetMailerStub struct {
	email, name, token string
	calls              int
}

func (r *resetMailerStub) SendPasswordReset(email, name, token string) {
	r.calls++
	r.email, r.name, r.token = email, name, token
}

func newAuthService(repo *mockAuthRepo, mailer *resetMailerStub) *AuthService {
	return NewAuthService(repo, mailer, nil, nil, AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "noticeboard",
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo()
	user := repo.addUser(t, "teacher@campus.edu", "password123", models.RoleTeacher)
	svc := newAuthService(repo, &resetMailerStub{})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: " Teacher@Campus.edu ", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, user.ID, resp.User.ID)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "physics", claims.Department)
	assert.Equal(t, models.Viewer{ID: user.ID, Role: models.RoleTeacher, Department: "physics", Name: "User"}, claims.Viewer())
}

func TestAuthServiceLoginFailures(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(t, "student@campus.edu", "password123", models.RoleStudent)
	svc := newAuthService(repo, &resetMailerStub{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@campus.edu", Password: "wrong"})
	assertAppError(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@campus.edu", Password: "password123"})
	assertAppError(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "student@campus.edu", Password: "password123", Role: models.RoleAdmin})
	assertAppError(t, err, appErrors.ErrUnauthorized)
	assert.Equal(t, "This account is registered as student, not admin", appErrors.FromError(err).Message)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email"})
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestAuthServiceLoginStoreFailure(t *testing.T) {
	repo := newMockAuthRepo()
	repo.findErr = errors.New("db down")
	svc := newAuthService(repo, &resetMailerStub{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@campus.edu", Password: "x"})
	assertAppError(t, err, appErrors.ErrInternal)
}

func TestAuthServiceSignup(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo, &resetMailerStub{})

	resp, err := svc.Signup(context.Background(), models.SignupRequest{
		Name:       "New Student",
		Email:      "New@Campus.edu",
		Password:   "secret1",
		Role:       models.RoleStudent,
		Department: "chemistry",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@campus.edu", resp.User.Email)
	assert.Equal(t, "chemistry", resp.User.Department)
	assert.NotEqual(t, "secret1", repo.users["new@campus.edu"].PasswordHash)

	_, err = svc.Signup(context.Background(), models.SignupRequest{
		Name: "Again", Email: "new@campus.edu", Password: "secret1", Role: models.RoleStudent, Department: "chemistry",
	})
	assertAppError(t, err, appErrors.ErrConflict)
	assert.Equal(t, 1, repo.createCalls)

	_, err = svc.Signup(context.Background(), models.SignupRequest{
		Name: "Bad", Email: "bad@campus.edu", Password: "secret1", Role: "principal", Department: "x",
	})
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestAuthServiceForgotAndResetPassword(t *testing.T) {
	repo := newMockAuthRepo()
	user := repo.addUser(t, "student@campus.edu", "password123", models.RoleStudent)
	mailer := &resetMailerStub{}
	svc := newAuthService(repo, mailer)

	msg, err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "student@campus.edu"})
	require.NoError(t, err)
	assert.Equal(t, ForgotPasswordMessage, msg)
	require.Equal(t, 1, mailer.calls)
	assert.Equal(t, "student@campus.edu", mailer.email)
	assert.NotEmpty(t, mailer.token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), repo.tokens[mailer.token].ExpiresAt, time.Minute)

	require.NoError(t, svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: mailer.token, Password: "brandnew"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("brandnew")))

	err = svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: mailer.token, Password: "another"})
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestAuthServiceForgotPasswordUnknownEmail(t *testing.T) {
	mailer := &resetMailerStub{}
	svc := newAuthService(newMockAuthRepo(), mailer)

	msg, err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "ghost@campus.edu"})
	require.NoError(t, err)
	assert.Equal(t, ForgotPasswordMessage, msg)
	assert.Zero(t, mailer.calls)
}

func TestAuthServiceMeAndDeleteAccount(t *testing.T) {
	repo := newMockAuthRepo()
	user := repo.addUser(t, "admin@campus.edu", "password123", models.RoleAdmin)
	svc := newAuthService(repo, &resetMailerStub{})
	viewer := models.Viewer{ID: user.ID, Role: models.RoleAdmin}

	info, err := svc.Me(context.Background(), viewer)
	require.NoError(t, err)
	assert.Equal(t, "admin@campus.edu", info.Email)

	_, err = svc.Me(context.Background(), models.Viewer{ID: 999, Role: models.RoleAdmin})
	assertAppError(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.DeleteAccount(context.Background(), viewer))
	assert.Equal(t, []int64{user.ID}, repo.deletedIDs)
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	svc := newAuthService(newMockAuthRepo(), &resetMailerStub{})

	_, err := svc.ValidateToken("not-a-token")
	assertAppError(t, err, appErrors.ErrUnauthorized)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{UserID: 1, Role: models.RoleAdmin})
	signed, err := other.SignedString([]byte("different-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assertAppError(t, err, appErrors.ErrUnauthorized)

	unknownRole := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{UserID: 1, Role: "principal"})
	signed, err = unknownRole.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assertAppError(t, err, appErrors.ErrUnauthorized)
}
