// Package memory contains in-process implementations of repository interfaces.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/and161185/fittrack/internal/errs"
	"github.com/and161185/fittrack/internal/model"
	"github.com/and161185/fittrack/internal/repository"
)

// WorkoutRepo implements WorkoutRepository over a map.
type WorkoutRepo struct {
	mu     sync.RWMutex
	byID   map[int64]model.Workout
	nextID int64
	now    func() time.Time
}

// NewWorkoutRepo constructs an empty workout store.
func NewWorkoutRepo() *WorkoutRepo {
	return &WorkoutRepo{byID: map[int64]model.Workout{}, nextID: 1, now: time.Now}
}

// Create assigns the next ID and stores the workout.
func (r *WorkoutRepo) Create(_ context.Context, in model.NewWorkout) (*model.Workout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := in.Build(r.nextID, r.now().UTC())
	r.nextID++
	r.byID[w.ID] = w
	out := w.Clone()
	return &out, nil
}

// Get returns a copy of the stored workout.
func (r *WorkoutRepo) Get(_ context.Context, id int64) (*model.Workout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	w = w.Clone()
	return &w, nil
}

// ListByUser returns the user's workouts, most recent first.
func (r *WorkoutRepo) ListByUser(_ context.Context, userID int64) ([]model.Workout, error) {
	r.mu.RLock()
	out := make([]model.Workout, 0)
	for _, w := range r.byID {
		if w.UserID == userID {
			out = append(out, w.Clone())
		}
	}
	r.mu.RUnlock()

	repository.SortRecentFirst(out)
	return out, nil
}

// Update merges the patch onto the stored workout.
func (r *WorkoutRepo) Update(_ context.Context, id int64, p model.WorkoutPatch) (*model.Workout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	w = p.Apply(w)
	r.byID[id] = w
	out := w.Clone()
	return &out, nil
}

// Delete removes the workout.
func (r *WorkoutRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// UserRepo implements UserRepository over a map.
type UserRepo struct {
	mu     sync.RWMutex
	byID   map[int64]model.User
	nextID int64
	now    func() time.Time
}

// NewUserRepo constructs an empty user store.
func NewUserRepo() *UserRepo {
	return &UserRepo{byID: map[int64]model.User{}, nextID: 1, now: time.Now}
}

// Create inserts a user unless the email is already registered.
func (r *UserRepo) Create(_ context.Context, in model.NewUser) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if strings.EqualFold(u.Email, in.Email) {
			return nil, errs.ErrAlreadyExists
		}
	}
	u := in.Build(r.nextID, r.now().UTC()).Clone()
	r.nextID++
	r.byID[u.ID] = u
	out := u.Clone()
	return &out, nil
}

// GetByID loads a user by ID.
func (r *UserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := u.Clone()
	return &out, nil
}

// GetByEmail loads a user by email, case-insensitively.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if strings.EqualFold(u.Email, email) {
			out := u.Clone()
			return &out, nil
		}
	}
	return nil, errs.ErrNotFound
}

// Update merges profile fields.
func (r *UserRepo) Update(_ context.Context, id int64, p model.UserPatch) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	u = p.Apply(u)
	r.byID[id] = u
	out := u.Clone()
	return &out, nil
}
