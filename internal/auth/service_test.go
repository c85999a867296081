package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bahaypares/ordering-backend/internal/users"
	pkgauth "github.com/bahaypares/ordering-backend/pkg/auth"
	"github.com/bahaypares/ordering-backend/pkg/config"
	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
	"github.com/bahaypares/ordering-backend/pkg/security"
)

type stubUserRepo struct {
	byUsername map[string]*models.User
	byID       map[uuid.UUID]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byUsername: map[string]*models.User{},
		byID:       map[uuid.UUID]*models.User{},
	}
}

func (r *stubUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if _, ok := r.byUsername[dto.Username]; ok {
		return nil, errors.New("UNIQUE constraint failed: ux_users_username")
	}
	for _, u := range r.byUsername {
		if strings.EqualFold(u.Email, dto.Email) {
			return nil, errors.New("UNIQUE constraint failed: ux_users_email")
		}
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	user.CreatedAt = time.Now().UTC()
	r.byUsername[user.Username] = user
	r.byID[user.ID] = user
	return user, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return user, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	user, ok := r.byUsername[username]
	if !ok {
		return nil, errors.New("record not found")
	}
	return user, nil
}

type stubSessions struct {
	active  map[string]string
	revoked []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{active: map[string]string{}}
}

func (s *stubSessions) Generate(_ context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	s.active[accessID] = token
	return token, nil
}

func (s *stubSessions) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := s.active[oldAccessID]
	if !ok || stored != provided {
		return "", "", errors.New("invalid refresh token")
	}
	delete(s.active, oldAccessID)
	newID := uuid.NewString()
	token := "refresh-" + newID
	s.active[newID] = token
	return newID, token, nil
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	delete(s.active, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

type countingLimiter struct {
	counts map[string]int64
}

func (l *countingLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if l.counts == nil {
		l.counts = map[string]int64{}
	}
	l.counts[scope]++
	return l.counts[scope] <= limit, l.counts[scope], nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "bahay-pares",
		ExpirationMinutes: 15,
		RefreshTokenDays:  30,
	}
}

func testRateConfig() config.AuthRateLimitConfig {
	return config.AuthRateLimitConfig{
		LoginWindow:        time.Minute,
		LoginEmailLimit:    3,
		LoginIPLimit:       10,
		RegisterWindow:     5 * time.Minute,
		RegisterEmailLimit: 2,
		RegisterIPLimit:    10,
	}
}

func newTestService(t *testing.T, repo userRepository, sessions sessionManager, lim limiter) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:        repo,
		SessionManager:  sessions,
		Limiter:         lim,
		JWTConfig:       testJWTConfig(),
		PasswordConfig:  config.PasswordConfig{},
		RateLimitConfig: testRateConfig(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRegisterCreatesCustomer(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo, newStubSessions(), nil)

	dto, err := svc.Register(context.Background(), RegisterRequest{
		Username: " maria ",
		Email:    "Maria@Example.com",
		Phone:    "09171234567",
		Password: "kain-na-tayo",
	}, "203.0.113.7")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if dto.Username != "maria" || dto.Email != "maria@example.com" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.Role != enums.RoleCustomer {
		t.Fatalf("role = %s, want customer", dto.Role)
	}

	stored := repo.byUsername["maria"]
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.PasswordHash == "kain-na-tayo" {
		t.Fatal("password stored in the clear")
	}
	ok, err := security.VerifyPassword("kain-na-tayo", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := newTestService(t, newStubUserRepo(), newStubSessions(), nil)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "maria",
		Email:    "maria@example.com",
		Password: "short",
	}, "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo, newStubSessions(), nil)

	req := RegisterRequest{Username: "maria", Email: "maria@example.com", Password: "kain-na-tayo"}
	if _, err := svc.Register(context.Background(), req, ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	req.Email = "other@example.com"
	_, err := svc.Register(context.Background(), req, "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("error = %v, want conflict", err)
	}
}

func TestCreateStaffRejectsCustomerRole(t *testing.T) {
	svc := newTestService(t, newStubUserRepo(), newStubSessions(), nil)

	_, err := svc.CreateStaff(context.Background(), CreateStaffRequest{
		Username: "kiko",
		Email:    "kiko@example.com",
		Password: "kain-na-tayo",
		Role:     enums.RoleCustomer,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("error = %v, want validation", err)
	}

	dto, err := svc.CreateStaff(context.Background(), CreateStaffRequest{
		Username: "kiko",
		Email:    "kiko@example.com",
		Password: "kain-na-tayo",
		Role:     enums.RoleStaff,
	})
	if err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	if dto.Role != enums.RoleStaff {
		t.Fatalf("role = %s, want staff", dto.Role)
	}
}

func TestLoginIssuesParseableToken(t *testing.T) {
	repo := newStubUserRepo()
	sessions := newStubSessions()
	svc := newTestService(t, repo, sessions, nil)

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Username: "maria",
		Email:    "maria@example.com",
		Password: "kain-na-tayo",
	}, ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "maria", Password: "kain-na-tayo"}, "203.0.113.7")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("missing tokens")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Username != "maria" || claims.Role != enums.RoleCustomer {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, ok := sessions.active[claims.ID]; !ok {
		t.Fatal("no refresh session stored for access id")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo, newStubSessions(), nil)

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Username: "maria",
		Email:    "maria@example.com",
		Password: "kain-na-tayo",
	}, ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, username := range []string{"maria", "nobody"} {
		_, err := svc.Login(context.Background(), LoginRequest{Username: username, Password: "wrong-password"}, "")
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("login as %s: error = %v, want unauthorized", username, err)
		}
		if typed.Message() != invalidCredentialsMessage {
			t.Fatalf("message = %q, want %q", typed.Message(), invalidCredentialsMessage)
		}
	}
}

func TestLoginRateLimited(t *testing.T) {
	repo := newStubUserRepo()
	lim := &countingLimiter{}
	svc := newTestService(t, repo, newStubSessions(), lim)

	for i := 0; i < 3; i++ {
		if _, err := svc.Login(context.Background(), LoginRequest{Username: "maria", Password: "nope"}, ""); err == nil {
			t.Fatal("expected login failure")
		}
	}
	_, err := svc.Login(context.Background(), LoginRequest{Username: "maria", Password: "nope"}, "")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("error = %v, want rate limit", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	repo := newStubUserRepo()
	sessions := newStubSessions()
	svc := newTestService(t, repo, sessions, nil)

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Username: "maria",
		Email:    "maria@example.com",
		Password: "kain-na-tayo",
	}, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	resp, err := svc.Login(context.Background(), LoginRequest{Username: "maria", Password: "kain-na-tayo"}, "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	renewed, err := svc.Refresh(context.Background(), claims, resp.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if renewed.AccessToken == resp.AccessToken || renewed.RefreshToken == resp.RefreshToken {
		t.Fatal("tokens were not rotated")
	}

	// The old refresh token is spent.
	if _, err := svc.Refresh(context.Background(), claims, resp.RefreshToken); err == nil {
		t.Fatal("expected reuse of spent refresh token to fail")
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	repo := newStubUserRepo()
	sessions := newStubSessions()
	svc := newTestService(t, repo, sessions, nil)

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Username: "maria",
		Email:    "maria@example.com",
		Password: "kain-na-tayo",
	}, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	resp, err := svc.Login(context.Background(), LoginRequest{Username: "maria", Password: "kain-na-tayo"}, "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if err := svc.Logout(context.Background(), claims.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok := sessions.active[claims.ID]; ok {
		t.Fatal("session still active after logout")
	}
}
