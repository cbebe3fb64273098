package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/fittrack/internal/errs"
	"github.com/and161185/fittrack/internal/model"
)

// WorkoutRepo implements WorkoutRepository using PostgreSQL.
type WorkoutRepo struct{ db *DB }

// NewWorkoutRepo constructs a workout repository.
func NewWorkoutRepo(db *DB) *WorkoutRepo { return &WorkoutRepo{db: db} }

const workoutColumns = `id, user_id, type, name, date, time, duration, distance, calories, notes, created_at`

func scanWorkout(row pgx.Row) (*model.Workout, error) {
	var w model.Workout
	if err := row.Scan(&w.ID, &w.UserID, &w.Type, &w.Name, &w.Date, &w.Time,
		&w.Duration, &w.Distance, &w.Calories, &w.Notes, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a workout; id and created_at come from the database.
func (r *WorkoutRepo) Create(ctx context.Context, in model.NewWorkout) (*model.Workout, error) {
	const q = `
INSERT INTO workouts (user_id, type, name, date, time, duration, distance, calories, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id, created_at`
	w := in.Build(0, zeroTime)
	err := r.db.Pool.QueryRow(ctx, q,
		in.UserID, string(in.Type), in.Name, in.Date, in.Time, in.Duration, in.Distance, in.Calories, in.Notes,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert workout: %w", err)
	}
	return &w, nil
}

// Get returns a single workout by id.
func (r *WorkoutRepo) Get(ctx context.Context, id int64) (*model.Workout, error) {
	const q = `SELECT ` + workoutColumns + ` FROM workouts WHERE id=$1`
	w, err := scanWorkout(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

// ListByUser returns the user's workouts ordered by (date, time) descending.
func (r *WorkoutRepo) ListByUser(ctx context.Context, userID int64) ([]model.Workout, error) {
	const q = `SELECT ` + workoutColumns + ` FROM workouts WHERE user_id=$1 ORDER BY date DESC, time DESC, id DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Workout, 0)
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// Update locks the row, merges the patch and writes every mutable column back.
func (r *WorkoutRepo) Update(ctx context.Context, id int64, p model.WorkoutPatch) (out *model.Workout, err error) {
	const sel = `SELECT ` + workoutColumns + ` FROM workouts WHERE id=$1 FOR UPDATE`
	const upd = `
UPDATE workouts SET type=$2, name=$3, date=$4, time=$5, duration=$6, distance=$7, calories=$8, notes=$9
WHERE id=$1`

	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		cur, err := scanWorkout(tx.QueryRow(ctx, sel, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		merged := p.Apply(*cur)
		if _, err := tx.Exec(ctx, upd, id, string(merged.Type), merged.Name, merged.Date, merged.Time,
			merged.Duration, merged.Distance, merged.Calories, merged.Notes); err != nil {
			return err
		}
		out = &merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a workout; a missing row is errs.ErrNotFound.
func (r *WorkoutRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM workouts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
