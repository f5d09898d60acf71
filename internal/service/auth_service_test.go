package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail         *models.User
	userByID            *models.User
	findByEmailErr      error
	findByIDErr         error
	refreshTokens       map[string]*models.RefreshToken
	refreshTokenErr     error
	createRefreshErr    error
	revokeRefreshErr    error
	revokeUserTokensErr error
	updatePasswordErr   error
	auditLogs           []*models.AuditLog
	lastLoginUpdated    bool
	created             []*models.User
	createErr           error
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	if m.userByEmail != nil && m.userByEmail.ID == id {
		m.userByEmail.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return m.revokeUserTokensErr
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.TokenHash] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	if m.refreshTokenErr != nil {
		return nil, m.refreshTokenErr
	}
	rt, ok := m.refreshTokens[tokenHash]
	if !ok {
		return nil, errors.New("not found")
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if m.revokeRefreshErr != nil {
		return m.revokeRefreshErr
	}
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "u-admin"
	m.created = append(m.created, user)
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type fakeStudentDirectory struct {
	byUserID    map[string]*models.Student
	registerErr error
	registered  []*models.Student
	users       map[string]*models.User
}

func (f *fakeStudentDirectory) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if st, ok := f.byUserID[userID]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentDirectory) Register(ctx context.Context, user *models.User, student *models.Student) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	user.ID = "u-new"
	student.ID = "stu-new"
	student.UserID = user.ID
	if f.byUserID == nil {
		f.byUserID = map[string]*models.Student{}
	}
	f.byUserID[user.ID] = student
	f.registered = append(f.registered, student)
	return nil
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "user@example.com", PasswordHash: string(password), Active: true, Role: models.RoleAdmin}}
	svc := NewAuthService(repo, &fakeStudentDirectory{}, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: time.Hour * 24,
	})

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.refreshTokens, 1)
	_, stored := repo.refreshTokens[models.HashRefreshToken(res.RefreshToken)]
	assert.True(t, stored)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "user@example.com", PasswordHash: string(password), Active: false}}
	svc := NewAuthService(repo, &fakeStudentDirectory{}, validator.New(), zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, RefreshTokenExpiry: time.Hour})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceRefreshToken(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: make(map[string]*models.RefreshToken)}
	user := &models.User{ID: "u1", Email: "user@example.com", PasswordHash: "hash", Active: true, Role: models.RoleAdmin}
	repo.userByEmail = user
	repo.userByID = user
	token := &models.RefreshToken{ID: "rt1", UserID: user.ID, TokenHash: models.HashRefreshToken("token"), ExpiresAt: time.Now().Add(time.Hour)}
	repo.refreshTokens[token.TokenHash] = token

	svc := NewAuthService(repo, &fakeStudentDirectory{}, validator.New(), zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, RefreshTokenExpiry: time.Hour})

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.NotNil(t, token.RevokedAt)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash, _ := bcrypt.GenerateFromPassword([]byte("old"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "u1", PasswordHash: string(oldHash), Active: true}}
	svc := NewAuthService(repo, &fakeStudentDirectory{}, validator.New(), zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, RefreshTokenExpiry: time.Hour})

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "old", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NotEqual(t, string(oldHash), repo.userByEmail.PasswordHash)
}

func TestValidateToken(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := NewAuthService(repo, &fakeStudentDirectory{}, validator.New(), zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, RefreshTokenExpiry: time.Hour})
	user := &models.User{ID: "u1", Email: "user@example.com", Role: models.RoleAdmin}
	token, _, err := svc.generateAccessToken(user, "")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Empty(t, claims.StudentID)
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	issuer := NewAuthService(&mockAuthRepo{}, nil, nil, nil, AuthConfig{AccessTokenSecret: "one", AccessTokenExpiry: time.Hour})
	verifier := NewAuthService(&mockAuthRepo{}, nil, nil, nil, AuthConfig{AccessTokenSecret: "two", AccessTokenExpiry: time.Hour})
	token, _, err := issuer.generateAccessToken(&models.User{ID: "u1", Role: models.RoleStudent}, "stu-1")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginStudentCarriesStudentID(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "u1", Email: "s@example.edu", PasswordHash: string(password), Active: true, Role: models.RoleStudent}}
	dir := &fakeStudentDirectory{byUserID: map[string]*models.Student{"u1": {ID: "stu-1", UserID: "u1"}}}
	svc := NewAuthService(repo, dir, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, RefreshTokenExpiry: time.Hour})

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "s@example.edu", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, "stu-1", res.User.StudentID)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", claims.StudentID)
}

func TestAuthServiceRegister(t *testing.T) {
	repo := &mockAuthRepo{}
	dir := &fakeStudentDirectory{}
	svc := NewAuthService(repo, dir, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, RefreshTokenExpiry: time.Hour})

	// Login after registration reads the user back by email.
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	repo.userByEmail = &models.User{ID: "u-new", Email: "new@example.edu", PasswordHash: string(hash), Active: true, Role: models.RoleStudent}

	res, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "New@Example.edu ", Password: "secret1", FullName: "New Student",
		RollNumber: "CS-099", Department: "CSE", Semester: 3,
	})
	require.NoError(t, err)
	require.Len(t, dir.registered, 1)
	assert.Equal(t, "CSE", dir.registered[0].Department)
	assert.Equal(t, "stu-new", res.User.StudentID)
	require.NotEmpty(t, repo.auditLogs)
	assert.Equal(t, models.AuditActionRegister, repo.auditLogs[0].Action)
}

func TestAuthServiceRegisterDuplicate(t *testing.T) {
	dir := &fakeStudentDirectory{registerErr: fmt.Errorf("create user: %w", &pq.Error{Code: "23505"})}
	svc := NewAuthService(&mockAuthRepo{}, dir, nil, nil, AuthConfig{AccessTokenSecret: "secret"})

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "dup@example.edu", Password: "secret1", FullName: "Dup", RollNumber: "CS-1", Department: "CSE", Semester: 1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, &fakeStudentDirectory{}, nil, nil, AuthConfig{AccessTokenSecret: "secret"})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "x@example.edu", Password: "secret1", FullName: "X", RollNumber: "1", Department: "CSE", Semester: 9})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterTrimsBeforeValidating(t *testing.T) {
	repo := &mockAuthRepo{}
	dir := &fakeStudentDirectory{}
	svc := NewAuthService(repo, dir, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, RefreshTokenExpiry: time.Hour})
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	repo.userByEmail = &models.User{ID: "u-new", Email: "padded@example.edu", PasswordHash: string(hash), Active: true, Role: models.RoleStudent}

	res, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "  Padded@Example.edu\t", Password: "secret1", FullName: " Padded ",
		RollNumber: " CS-100 ", Department: " CSE ", Semester: 2, Section: " A ",
	})
	require.NoError(t, err)
	assert.Equal(t, "stu-new", res.User.StudentID)
	require.Len(t, dir.registered, 1)
	assert.Equal(t, "CS-100", dir.registered[0].RollNumber)
	assert.Equal(t, "CSE", dir.registered[0].Department)
	assert.Equal(t, "A", dir.registered[0].Section)

	_, err = svc.Register(context.Background(), models.RegisterRequest{
		Email: "blank@example.edu", Password: "secret1", FullName: "   ", RollNumber: "CS-101", Department: "CSE", Semester: 2,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Len(t, dir.registered, 1)
}

func TestAuthServiceCreateAdmin(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := NewAuthService(repo, &fakeStudentDirectory{}, nil, nil, AuthConfig{AccessTokenSecret: "secret"})

	user, err := svc.CreateAdmin(context.Background(), models.CreateAdminRequest{
		Email: " Registrar@Example.edu", Password: "correct-horse-1", FullName: "Registrar", Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "registrar@example.edu", user.Email)
	assert.True(t, user.Active)
	require.Len(t, repo.created, 1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created[0].PasswordHash), []byte("correct-horse-1")))
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, "user", repo.auditLogs[0].Resource)
}

func TestAuthServiceCreateAdminRejectsStudentRoleAndDuplicates(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, &fakeStudentDirectory{}, nil, nil, AuthConfig{AccessTokenSecret: "secret"})
	_, err := svc.CreateAdmin(context.Background(), models.CreateAdminRequest{
		Email: "a@example.edu", Password: "correct-horse-1", FullName: "A", Role: models.RoleStudent,
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	dup := NewAuthService(&mockAuthRepo{createErr: fmt.Errorf("create user: %w", &pq.Error{Code: "23505"})}, &fakeStudentDirectory{}, nil, nil, AuthConfig{AccessTokenSecret: "secret"})
	_, err = dup.CreateAdmin(context.Background(), models.CreateAdminRequest{
		Email: "a@example.edu", Password: "correct-horse-1", FullName: "A", Role: models.RoleSuperAdmin,
	})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceCreateAdminTrimsBeforeValidating(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := NewAuthService(repo, &fakeStudentDirectory{}, nil, nil, AuthConfig{AccessTokenSecret: "secret"})

	user, err := svc.CreateAdmin(context.Background(), models.CreateAdminRequest{
		Email: "\tDean@Example.edu  ", Password: "correct-horse-1", FullName: "  Dean ", Role: models.RoleSuperAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "dean@example.edu", user.Email)
	assert.Equal(t, "Dean", user.FullName)

	_, err = svc.CreateAdmin(context.Background(), models.CreateAdminRequest{
		Email: "blank@example.edu", Password: "correct-horse-1", FullName: " ", Role: models.RoleAdmin,
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.created, 1)
}
