package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/saludgo/turnos-api/internal/models"
	appErrors "github.com/saludgo/turnos-api/pkg/errors"
)

type mockAuthUserRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	revoked       []string
}

func (m *mockAuthUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) CreateWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error {
	return errors.New("not implemented")
}

func (m *mockAuthUserRepo) Begin(ctx context.Context) (*sqlx.Tx, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
			m.revoked = append(m.revoked, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockAuthUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, t := range m.refreshTokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

type mockAuthPatientRepo struct {
	byUserID map[string]*models.Patient
}

func (m *mockAuthPatientRepo) FindByUserID(ctx context.Context, userID string) (*models.Patient, error) {
	if p, ok := m.byUserID[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthPatientRepo) CreateWithTx(ctx context.Context, tx *sqlx.Tx, patient *models.Patient) error {
	return errors.New("not implemented")
}

type mockAuthProfessionalRepo struct {
	byUserID map[string]*models.Professional
}

func (m *mockAuthProfessionalRepo) FindByUserID(ctx context.Context, userID string) (*models.Professional, error) {
	if p, ok := m.byUserID[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthProfessionalRepo) CreateWithTx(ctx context.Context, tx *sqlx.Tx, prof *models.Professional) error {
	return errors.New("not implemented")
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "turnos-api",
		Audience:           []string{"turnos-api"},
	}
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthUserRepo) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &mockAuthUserRepo{
		users: map[string]*models.User{
			"user-1": {
				ID:           "user-1",
				Username:     "mgarcia",
				PasswordHash: string(hash),
				FullName:     "María García",
				Role:         models.RolePatient,
				Active:       true,
			},
			"user-2": {
				ID:           "user-2",
				Username:     "dormant",
				PasswordHash: string(hash),
				FullName:     "Cuenta Inactiva",
				Role:         models.RolePatient,
				Active:       false,
			},
		},
		refreshTokens: map[string]*models.RefreshToken{},
	}
	patients := &mockAuthPatientRepo{byUserID: map[string]*models.Patient{
		"user-1": {ID: "pat-1", UserID: "user-1"},
	}}
	professionals := &mockAuthProfessionalRepo{byUserID: map[string]*models.Professional{}}

	svc := NewAuthService(users, patients, professionals, nil, nil, testAuthConfig())
	return svc, users
}

func TestLoginIssuesTokensWithProfileClaims(t *testing.T) {
	svc, users := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "mgarcia", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, resp.User.PatientID)
	assert.Equal(t, "pat-1", *resp.User.PatientID)
	assert.Nil(t, resp.User.ProfessionalID)
	assert.Len(t, users.refreshTokens, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RolePatient, claims.Role)
	require.NotNil(t, claims.PatientID)
	assert.Equal(t, "pat-1", *claims.PatientID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "mgarcia", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "dormant", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, users := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "mgarcia", Password: "secret123"})
	require.NoError(t, err)

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, login.RefreshToken, resp.RefreshToken)

	// The presented token is revoked on use and cannot be replayed.
	assert.True(t, users.refreshTokens[login.RefreshToken].Revoked)
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshExpiredTokenRejected(t *testing.T) {
	svc, users := newAuthFixture(t)

	users.refreshTokens["stale"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshUnknownTokenRejected(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutRevokesOwnToken(t *testing.T) {
	svc, users := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "mgarcia", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "user-1"))
	assert.True(t, users.refreshTokens[login.RefreshToken].Revoked)
}

func TestLogoutForeignTokenForbidden(t *testing.T) {
	svc, _ := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "mgarcia", Password: "secret123"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "user-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRegisterPatientUsernameTaken(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.RegisterPatient(context.Background(), models.RegisterPatientRequest{
		Username:       "mgarcia",
		Password:       "secret123",
		FullName:       "Otra Persona",
		DocumentNumber: "30111222",
		BirthDate:      "1990-05-04",
		Phone:          "+54 11 5555-0000",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, _ := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "mgarcia", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(login.AccessToken + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
