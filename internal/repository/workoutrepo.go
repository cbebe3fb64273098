package repository

import (
	"context"

	"github.com/and161185/fittrack/internal/model"
)

// WorkoutRepository stores workout records. Every backend honours the same contract.
type WorkoutRepository interface {
	// Create stores a new workout, assigning ID and CreatedAt.
	Create(ctx context.Context, w model.NewWorkout) (*model.Workout, error)

	// Get returns a single workout by ID or errs.ErrNotFound.
	Get(ctx context.Context, id int64) (*model.Workout, error)

	// ListByUser returns the user's workouts, most recent (date, time) first.
	ListByUser(ctx context.Context, userID int64) ([]model.Workout, error)

	// Update merges the patch onto the stored workout or returns errs.ErrNotFound.
	Update(ctx context.Context, id int64, p model.WorkoutPatch) (*model.Workout, error)

	// Delete removes a workout or returns errs.ErrNotFound; a repeated delete fails.
	Delete(ctx context.Context, id int64) error
}
