// Package kv stores whole collections as JSON documents in Redis.
//
// Each collection lives under one key with a sibling counter key for ids,
// the layout a browser localStorage fallback would use. Every mutation is a
// read-modify-write of the full document, serialized by a process-local mutex.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/and161185/fittrack/internal/errs"
	"github.com/and161185/fittrack/internal/model"
	"github.com/and161185/fittrack/internal/repository"
)

// Fixed keys.
const (
	WorkoutsKey      = "fittrack_workouts"
	NextWorkoutIDKey = "fittrack_next_workout_id"
	UsersKey         = "fittrack_users"
	NextUserIDKey    = "fittrack_next_user_id"
)

// errCorrupt marks a stored element that decodes but fails validation.
var errCorrupt = errors.New("corrupt element")

// loadDoc reads a JSON array stored at key. A missing key is an empty collection.
//
// Reads degrade: an unparsable document is treated as empty and unparsable
// elements are skipped. With strict set, as before a rewrite, either case is
// an error so the filtered slice never replaces what is stored.
func loadDoc[T any](ctx context.Context, c *redis.Client, key string, valid func(T) bool, strict bool) ([]T, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		if strict {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return []T{}, nil
	}
	out := make([]T, 0, len(elems))
	for i, e := range elems {
		var v T
		err := json.Unmarshal(e, &v)
		if err == nil && !valid(v) {
			err = errCorrupt
		}
		if err != nil {
			if strict {
				return nil, fmt.Errorf("decode %s[%d]: %w", key, i, err)
			}
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func saveDoc[T any](ctx context.Context, c *redis.Client, key string, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func nextID(ctx context.Context, c *redis.Client, key string) (int64, error) {
	id, err := c.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return id, nil
}

func validWorkout(w model.Workout) bool { return w.ID > 0 && w.UserID > 0 }

func validUser(u model.User) bool { return u.ID > 0 && u.Email != "" }

// WorkoutRepo implements WorkoutRepository over a Redis document.
type WorkoutRepo struct {
	mu  sync.Mutex
	c   *redis.Client
	now func() time.Time
}

// NewWorkoutRepo constructs a workout store on top of c.
func NewWorkoutRepo(c *redis.Client) *WorkoutRepo {
	return &WorkoutRepo{c: c, now: time.Now}
}

func (r *WorkoutRepo) load(ctx context.Context) ([]model.Workout, error) {
	return loadDoc(ctx, r.c, WorkoutsKey, validWorkout, false)
}

func (r *WorkoutRepo) loadForWrite(ctx context.Context) ([]model.Workout, error) {
	return loadDoc(ctx, r.c, WorkoutsKey, validWorkout, true)
}

// Create allocates an id from the counter and appends the workout.
func (r *WorkoutRepo) Create(ctx context.Context, in model.NewWorkout) (*model.Workout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.loadForWrite(ctx)
	if err != nil {
		return nil, err
	}
	id, err := nextID(ctx, r.c, NextWorkoutIDKey)
	if err != nil {
		return nil, err
	}
	w := in.Build(id, r.now().UTC())
	all = append(all, w)
	if err := saveDoc(ctx, r.c, WorkoutsKey, all); err != nil {
		return nil, err
	}
	return &w, nil
}

// Get returns the workout with the given id.
func (r *WorkoutRepo) Get(ctx context.Context, id int64) (*model.Workout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, errs.ErrNotFound
}

// ListByUser returns the user's workouts, most recent first.
func (r *WorkoutRepo) ListByUser(ctx context.Context, userID int64) ([]model.Workout, error) {
	r.mu.Lock()
	all, err := r.load(ctx)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]model.Workout, 0)
	for _, w := range all {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	repository.SortRecentFirst(out)
	return out, nil
}

// Update merges the patch and rewrites the document.
func (r *WorkoutRepo) Update(ctx context.Context, id int64, p model.WorkoutPatch) (*model.Workout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.loadForWrite(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		all[i] = p.Apply(all[i])
		if err := saveDoc(ctx, r.c, WorkoutsKey, all); err != nil {
			return nil, err
		}
		out := all[i].Clone()
		return &out, nil
	}
	return nil, errs.ErrNotFound
}

// Delete removes the workout and rewrites the document.
func (r *WorkoutRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.loadForWrite(ctx)
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].ID == id {
			all = append(all[:i], all[i+1:]...)
			return saveDoc(ctx, r.c, WorkoutsKey, all)
		}
	}
	return errs.ErrNotFound
}

// UserRepo implements UserRepository over a Redis document.
type UserRepo struct {
	mu  sync.Mutex
	c   *redis.Client
	now func() time.Time
}

// NewUserRepo constructs a user store on top of c.
func NewUserRepo(c *redis.Client) *UserRepo {
	return &UserRepo{c: c, now: time.Now}
}

func (r *UserRepo) load(ctx context.Context) ([]model.User, error) {
	return loadDoc(ctx, r.c, UsersKey, validUser, false)
}

func (r *UserRepo) loadForWrite(ctx context.Context) ([]model.User, error) {
	return loadDoc(ctx, r.c, UsersKey, validUser, true)
}

// Create stores a new user; the email must be unused, case-insensitively.
func (r *UserRepo) Create(ctx context.Context, in model.NewUser) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.loadForWrite(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range all {
		if strings.EqualFold(u.Email, in.Email) {
			return nil, errs.ErrAlreadyExists
		}
	}
	id, err := nextID(ctx, r.c, NextUserIDKey)
	if err != nil {
		return nil, err
	}
	u := in.Build(id, r.now().UTC())
	all = append(all, u)
	if err := saveDoc(ctx, r.c, UsersKey, all); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns the user with the given id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.find(ctx, func(u model.User) bool { return u.ID == id })
}

// GetByEmail returns the user with the given email, case-insensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(ctx, func(u model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepo) find(ctx context.Context, match func(model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if match(all[i]) {
			return &all[i], nil
		}
	}
	return nil, errs.ErrNotFound
}

// Update merges the profile patch and rewrites the document.
func (r *UserRepo) Update(ctx context.Context, id int64, p model.UserPatch) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.loadForWrite(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		all[i] = p.Apply(all[i])
		if err := saveDoc(ctx, r.c, UsersKey, all); err != nil {
			return nil, err
		}
		out := all[i]
		return &out, nil
	}
	return nil, errs.ErrNotFound
}
