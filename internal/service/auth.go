// Package service contains application services for accounts, workouts and statistics.
package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/fittrack/internal/crypto"
	"github.com/and161185/fittrack/internal/errs"
	"github.com/and161185/fittrack/internal/limiter"
	"github.com/and161185/fittrack/internal/model"
	"github.com/and161185/fittrack/internal/repository"
	"github.com/and161185/fittrack/internal/stats"
)

// AuthService defines account and profile operations.
type AuthService interface {
	// Signup validates input, hashes the password, creates the user and logs them in.
	Signup(ctx context.Context, in model.Signup) (model.User, model.Tokens, error)
	// LoginWithIP applies rate-limiting and authenticates the user.
	LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error)
	// Profile returns the caller's own profile with derived BMI.
	Profile(ctx context.Context, callerID, userID int64) (Profile, error)
	// UpdateProfile merges a partial profile update for the caller.
	UpdateProfile(ctx context.Context, callerID, userID int64, p model.UserPatch) (model.User, error)
}

// Profile is a user with derived body metrics. BMI is nil when height or weight is unknown.
type Profile struct {
	User model.User
	BMI  *stats.BMI
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	log       *zap.Logger
	now       func() time.Time
	cache     *StatsCache
}

// AuthOption customizes AuthServiceImpl.
type AuthOption func(*AuthServiceImpl)

// WithProfileCache drops the user's cached stats after a profile update, since the
// summary carries the weekly goal.
func WithProfileCache(c *StatsCache) AuthOption {
	return func(s *AuthServiceImpl) { s.cache = c }
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter, log *zap.Logger, opts ...AuthOption) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	s := &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Signup creates the account with defaults applied to missing profile fields.
func (s *AuthServiceImpl) Signup(ctx context.Context, in model.Signup) (model.User, model.Tokens, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateEmail(in.Email); err != nil {
		return model.User{}, model.Tokens{}, err
	}
	if len(in.Password) < minPasswordLen {
		return model.User{}, model.Tokens{}, invalid("password", "must be at least 6 characters")
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return model.User{}, model.Tokens{}, invalid("firstName", "is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		return model.User{}, model.Tokens{}, invalid("lastName", "is required")
	}
	if err := validateProfile(nil, nil, in.Age, in.Height, in.Weight, in.TargetWeight, in.WeeklyWorkoutGoal); err != nil {
		return model.User{}, model.Tokens{}, err
	}

	hash, err := pkgcrypto.HashPassword(in.Password)
	if err != nil {
		return model.User{}, model.Tokens{}, err
	}

	nu := model.NewUser{
		Email:             in.Email,
		PasswordHash:      hash,
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Age:               in.Age,
		Height:            in.Height,
		Weight:            in.Weight,
		WeeklyWorkoutGoal: model.DefaultWeeklyWorkoutGoal,
		TargetWeight:      in.TargetWeight,
		PrimaryGoal:       model.DefaultPrimaryGoal,
	}
	if in.WeeklyWorkoutGoal != nil {
		nu.WeeklyWorkoutGoal = *in.WeeklyWorkoutGoal
	}
	if in.PrimaryGoal != nil && strings.TrimSpace(*in.PrimaryGoal) != "" {
		nu.PrimaryGoal = *in.PrimaryGoal
	}

	u, err := s.users.Create(ctx, nu)
	if err != nil {
		return model.User{}, model.Tokens{}, err
	}
	tok, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.User{}, model.Tokens{}, err
	}
	return *u, tok, nil
}

// LoginWithIP authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.User{}, err
	}
	ok := false
	if err == nil {
		ok, err = pkgcrypto.VerifyPassword(password, u.PasswordHash)
		if err != nil {
			s.log.Warn("stored password hash unreadable", zap.Int64("user_id", u.ID), zap.Error(err))
		}
	}
	if !ok {
		// unknown email and wrong password look the same to the caller
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr != nil {
			s.log.Warn("limiter failure record", zap.Error(ferr))
		} else if blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	if err := s.lim.Success(ctx, email, ipHash); err != nil {
		s.log.Warn("limiter reset", zap.Error(err))
	}

	tok, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, *u, nil
}

// Profile returns the user with BMI when the caller owns the profile.
func (s *AuthServiceImpl) Profile(ctx context.Context, callerID, userID int64) (Profile, error) {
	if callerID != userID {
		return Profile{}, errs.ErrForbidden
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{User: *u}
	if bmi, ok := stats.ComputeBMI(u.Height, u.Weight); ok {
		p.BMI = &bmi
	}
	return p, nil
}

// UpdateProfile validates and applies the patch.
func (s *AuthServiceImpl) UpdateProfile(ctx context.Context, callerID, userID int64, p model.UserPatch) (model.User, error) {
	if callerID != userID {
		return model.User{}, errs.ErrForbidden
	}
	if err := validateProfile(p.FirstName, p.LastName, p.Age, p.Height, p.Weight, p.TargetWeight, p.WeeklyWorkoutGoal); err != nil {
		return model.User{}, err
	}
	u, err := s.users.Update(ctx, userID, p)
	if err != nil {
		return model.User{}, err
	}
	s.cache.Invalidate(userID)
	return *u, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID int64) (model.Tokens, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, err
	}
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}
