package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/fittrack/internal/errs"
	"github.com/and161185/fittrack/internal/model"
)

var zeroTime time.Time

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, password_hash, first_name, last_name, age, height, weight,
weekly_workout_goal, target_weight, primary_goal, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Age, &u.Height,
		&u.Weight, &u.WeeklyWorkoutGoal, &u.TargetWeight, &u.PrimaryGoal, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, in model.NewUser) (*model.User, error) {
	const q = `
INSERT INTO users (email, password_hash, first_name, last_name, age, height, weight,
weekly_workout_goal, target_weight, primary_goal)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id, created_at`
	u := in.Build(0, zeroTime)
	err := r.db.Pool.QueryRow(ctx, q, in.Email, in.PasswordHash, in.FirstName, in.LastName, in.Age,
		in.Height, in.Weight, in.WeeklyWorkoutGoal, in.TargetWeight, in.PrimaryGoal,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.getOne(ctx, q, id)
}

// GetByEmail selects a user by email, case-insensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE lower(email)=lower($1)`
	return r.getOne(ctx, q, email)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// Update locks the row and writes the merged profile back.
func (r *UserRepo) Update(ctx context.Context, id int64, p model.UserPatch) (out *model.User, err error) {
	const sel = `SELECT ` + userColumns + ` FROM users WHERE id=$1 FOR UPDATE`
	const upd = `
UPDATE users SET first_name=$2, last_name=$3, age=$4, height=$5, weight=$6,
weekly_workout_goal=$7, target_weight=$8, primary_goal=$9
WHERE id=$1`

	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		cur, err := scanUser(tx.QueryRow(ctx, sel, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		merged := p.Apply(*cur)
		if _, err := tx.Exec(ctx, upd, id, merged.FirstName, merged.LastName, merged.Age, merged.Height,
			merged.Weight, merged.WeeklyWorkoutGoal, merged.TargetWeight, merged.PrimaryGoal); err != nil {
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
