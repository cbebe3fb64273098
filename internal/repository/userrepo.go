// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/fittrack/internal/model"
)

// UserRepository provides CRUD access for user accounts and profiles.
type UserRepository interface {
	// Create inserts a new user; errs.ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, u model.NewUser) (*model.User, error)
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Update merges profile fields onto the stored user.
	Update(ctx context.Context, id int64, p model.UserPatch) (*model.User, error)
}
