package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/fittrack/internal/crypto"
	"github.com/and161185/fittrack/internal/errs"
	"github.com/and161185/fittrack/internal/limiter"
	"github.com/and161185/fittrack/internal/model"
	"github.com/and161185/fittrack/internal/repository"
)

type fakeUsers struct {
	byEmail map[string]*model.User
	nextID  int64

	createErr error
	getErr    error
	updateErr error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, in model.NewUser) (*model.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.byEmail == nil {
		f.byEmail = map[string]*model.User{}
	}
	key := strings.ToLower(in.Email)
	if _, exists := f.byEmail[key]; exists {
		return nil, errs.ErrAlreadyExists
	}
	f.nextID++
	u := in.Build(f.nextID, time.Now())
	f.byEmail[key] = &u
	c := u
	return &c, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) Update(_ context.Context, id int64, p model.UserPatch) (*model.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			*u = p.Apply(*u)
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

func ptr[T any](v T) *T { return &v }

func validSignup() model.Signup {
	return model.Signup{Email: "alice@example.com", Password: "secret1", FirstName: "Alice", LastName: "Smith"}
}

func TestAuth_Signup_Validation(t *testing.T) {
	t.Parallel()
	s := NewAuthService(&fakeUsers{}, []byte("k"), time.Minute, &fakeLimiter{}, nil)

	cases := map[string]func(*model.Signup){
		"email":             func(in *model.Signup) { in.Email = "not-an-email" },
		"display name":      func(in *model.Signup) { in.Email = "Alice <alice@example.com>" },
		"password":          func(in *model.Signup) { in.Password = "12345" },
		"firstName":         func(in *model.Signup) { in.FirstName = "  " },
		"lastName":          func(in *model.Signup) { in.LastName = "" },
		"weeklyWorkoutGoal": func(in *model.Signup) { in.WeeklyWorkoutGoal = ptr(8) },
		"weeklyGoal zero":   func(in *model.Signup) { in.WeeklyWorkoutGoal = ptr(0) },
		"height":            func(in *model.Signup) { in.Height = ptr(-1.0) },
	}
	for name, mutate := range cases {
		in := validSignup()
		mutate(&in)
		if _, _, err := s.Signup(context.Background(), in); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("%s: want ErrValidation, got %v", name, err)
		}
	}
}

func TestAuth_Signup_DefaultsHashAndToken(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	s := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{}, nil)

	u, tok, err := s.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if u.ID == 0 || u.WeeklyWorkoutGoal != 4 || u.PrimaryGoal != "general" {
		t.Fatalf("defaults not applied: %+v", u)
	}
	if u.PasswordHash == "secret1" || !strings.HasPrefix(u.PasswordHash, "argon2id$") {
		t.Fatalf("password not hashed: %q", u.PasswordHash)
	}
	if ok, err := pkgcrypto.VerifyPassword("secret1", u.PasswordHash); err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
	if tok.AccessToken == "" || !tok.ExpiresAt.After(time.Now()) {
		t.Fatalf("bad token: %+v", tok)
	}

	in := validSignup()
	in.WeeklyWorkoutGoal = ptr(6)
	in.PrimaryGoal = ptr("strength")
	in.Email = "bob@example.com"
	u, _, err = s.Signup(context.Background(), in)
	if err != nil || u.WeeklyWorkoutGoal != 6 || u.PrimaryGoal != "strength" {
		t.Fatalf("explicit profile: %+v err=%v", u, err)
	}

	if _, _, err := s.Signup(context.Background(), validSignup()); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate email, got %v", err)
	}

	users.createErr = errors.New("boom")
	in.Email = "carol@example.com"
	if _, _, err := s.Signup(context.Background(), in); err == nil {
		t.Fatalf("want propagated repo error")
	}
}

func TestAuth_LoginWithIP_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{}
	lim := &fakeLimiter{allowOK: true}
	s := NewAuthService(users, []byte("secret"), 2*time.Minute, lim, nil)
	u, _, err := s.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	lim.allowErr = errors.New("lim-err")
	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "secret1", "1.2.3.4"); err == nil {
		t.Fatalf("want limiter error propagate")
	}
	lim.allowErr = nil

	lim.allowOK = false
	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "secret1", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	lim.allowOK = true

	if _, _, err := s.LoginWithIP(context.Background(), "nope@example.com", "x", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on missing user, got %v", err)
	}

	lim.failBlocked = true
	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "wrong", ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on blocked after failure, got %v", err)
	}
	lim.failBlocked = false

	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "wrong", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on wrong password, got %v", err)
	}

	users.getErr = errors.New("db down")
	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "secret1", ""); err == nil || errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want storage error, got %v", err)
	}
	users.getErr = nil

	tok, gotUser, err := s.LoginWithIP(context.Background(), "ALICE@example.com", "secret1", "127.0.0.1")
	if err != nil {
		t.Fatalf("LoginWithIP success: %v", err)
	}
	if tok.AccessToken == "" || tok.ExpiresAt.Before(time.Now()) {
		t.Fatalf("bad token: %+v", tok)
	}
	if gotUser.ID != u.ID {
		t.Fatalf("bad user returned: %+v", gotUser)
	}
	if lim.successCalls == 0 || lim.failureCalls != 3 {
		t.Fatalf("limiter calls: success=%d failure=%d", lim.successCalls, lim.failureCalls)
	}
}

func TestAuth_issueAccessToken_Claims(t *testing.T) {
	t.Parallel()

	s := NewAuthService(&fakeUsers{}, []byte("k"), time.Hour, &fakeLimiter{}, nil)
	fixed := time.Now().Truncate(time.Second)
	s.now = func() time.Time { return fixed }

	a, err := s.issueAccessToken(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, _ := s.issueAccessToken(42)
	if a.AccessToken == b.AccessToken {
		t.Fatalf("jti must make tokens unique")
	}
	if !a.ExpiresAt.Equal(fixed.Add(time.Hour)) {
		t.Fatalf("exp=%v", a.ExpiresAt)
	}

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(a.AccessToken, &claims, func(*jwt.Token) (any, error) { return []byte("k"), nil })
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "42" || claims.ID == "" {
		t.Fatalf("claims: %+v", claims)
	}
}

func TestAuth_ProfileAndUpdate(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{}
	s := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{}, nil)
	in := validSignup()
	in.Height = ptr(5.9)
	in.Weight = ptr(160.0)
	u, _, err := s.Signup(context.Background(), in)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if _, err := s.Profile(context.Background(), u.ID+1, u.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	p, err := s.Profile(context.Background(), u.ID, u.ID)
	if err != nil || p.BMI == nil || p.BMI.Category != "Normal" {
		t.Fatalf("profile: %+v err=%v", p, err)
	}

	if _, err := s.UpdateProfile(context.Background(), u.ID, u.ID, model.UserPatch{WeeklyWorkoutGoal: ptr(9)}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if _, err := s.UpdateProfile(context.Background(), u.ID+1, u.ID, model.UserPatch{}); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	got, err := s.UpdateProfile(context.Background(), u.ID, u.ID, model.UserPatch{Weight: ptr(150.0), FirstName: ptr("Al")})
	if err != nil || *got.Weight != 150 || got.FirstName != "Al" || got.LastName != "Smith" {
		t.Fatalf("update: %+v err=%v", got, err)
	}

	if _, err := s.Profile(context.Background(), 99, 99); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
