package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/fittrack/internal/convert"
	"github.com/and161185/fittrack/internal/limiter"
	"github.com/and161185/fittrack/internal/metrics"
	"github.com/and161185/fittrack/internal/repository/memory"
	"github.com/and161185/fittrack/internal/service"
	"github.com/and161185/fittrack/internal/stats"
)

var testKey = []byte("secret")

func makeJWT(t *testing.T, sub string, key []byte, method jwt.SigningMethod, iat time.Time, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(iat),
		NotBefore: jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func tokenFor(t *testing.T, id int64) string {
	t.Helper()
	return makeJWT(t, strconv.FormatInt(id, 10), testKey, jwt.SigningMethodHS256, time.Now().Add(-time.Minute), time.Hour)
}

type testEnv struct {
	srv *Server
	m   *metrics.Manager
}

func newEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	log := zaptest.NewLogger(t)
	users := memory.NewUserRepo()
	workouts := memory.NewWorkoutRepo()

	auth := service.NewAuthService(users, testKey, time.Hour, limiter.NewMemory(limiter.Config{MaxFails: 3}), log)
	now := func() time.Time { return time.Date(2024, 6, 19, 12, 0, 0, 0, time.UTC) }
	wsvc := service.NewWorkoutService(workouts, users,
		service.WithAggregator(stats.New(stats.WithClock(now))),
		service.WithClock(now),
		service.WithLogger(log),
	)

	m := metrics.NewTestManager()
	opts = append([]Option{WithMetrics(m, nil)}, opts...)
	return &testEnv{srv: New(auth, wsvc, testKey, log, opts...), m: m}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signup(t *testing.T, email string) convert.AuthResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": email, "password": "secret1", "firstName": "Ada", "lastName": "Lovelace",
		"height": 5.5, "weight": 130.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: status=%d body=%s", rec.Code, rec.Body)
	}
	var out convert.AuthResponse
	decodeBody(t, rec, &out)
	return out
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e convert.ErrorResponse
	decodeBody(t, rec, &e)
	return e.Message
}
