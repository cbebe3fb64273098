// Package convert maps between JSON transport shapes and domain models.
package convert

import (
	"fmt"
	"time"

	"github.com/and161185/fittrack/internal/errs"
	"github.com/and161185/fittrack/internal/model"
	"github.com/and161185/fittrack/internal/stats"
)

// --- users ---

// User is the client-facing account view; the password hash never leaves the server.
type User struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	Age               *int      `json:"age"`
	Height            *float64  `json:"height"`
	Weight            *float64  `json:"weight"`
	WeeklyWorkoutGoal int       `json:"weeklyWorkoutGoal"`
	TargetWeight      *float64  `json:"targetWeight"`
	PrimaryGoal       string    `json:"primaryGoal"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ToUser strips the password hash.
func ToUser(u model.User) User {
	return User{
		ID:                u.ID,
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Age:               u.Age,
		Height:            u.Height,
		Weight:            u.Weight,
		WeeklyWorkoutGoal: u.WeeklyWorkoutGoal,
		TargetWeight:      u.TargetWeight,
		PrimaryGoal:       u.PrimaryGoal,
		CreatedAt:         u.CreatedAt,
	}
}

// Profile is a user plus derived BMI.
type Profile struct {
	User
	BMI *stats.BMI `json:"bmi,omitempty"`
}

// ToProfile builds the profile view.
func ToProfile(u model.User, bmi *stats.BMI) Profile {
	return Profile{User: ToUser(u), BMI: bmi}
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Email             string   `json:"email"`
	Password          string   `json:"password"`
	FirstName         string   `json:"firstName"`
	LastName          string   `json:"lastName"`
	Age               *int     `json:"age"`
	Height            *float64 `json:"height"`
	Weight            *float64 `json:"weight"`
	WeeklyWorkoutGoal *int     `json:"weeklyWorkoutGoal"`
	TargetWeight      *float64 `json:"targetWeight"`
	PrimaryGoal       *string  `json:"primaryGoal"`
}

// ToSignup maps the request to the domain intent.
func (r SignupRequest) ToSignup() model.Signup {
	return model.Signup{
		Email:             r.Email,
		Password:          r.Password,
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		Age:               r.Age,
		Height:            r.Height,
		Weight:            r.Weight,
		WeeklyWorkoutGoal: r.WeeklyWorkoutGoal,
		TargetWeight:      r.TargetWeight,
		PrimaryGoal:       r.PrimaryGoal,
	}
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse answers signup and login.
type AuthResponse struct {
	User        User      `json:"user"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ToAuthResponse combines the user view with the issued token.
func ToAuthResponse(u model.User, t model.Tokens) AuthResponse {
	return AuthResponse{User: ToUser(u), AccessToken: t.AccessToken, ExpiresAt: t.ExpiresAt}
}

// ProfileUpdateRequest is the body of PUT /api/user/{id}. Absent fields are kept.
type ProfileUpdateRequest struct {
	FirstName         *string  `json:"firstName"`
	LastName          *string  `json:"lastName"`
	Age               *int     `json:"age"`
	Height            *float64 `json:"height"`
	Weight            *float64 `json:"weight"`
	WeeklyWorkoutGoal *int     `json:"weeklyWorkoutGoal"`
	TargetWeight      *float64 `json:"targetWeight"`
	PrimaryGoal       *string  `json:"primaryGoal"`
}

// ToUserPatch maps the request to a patch.
func (r ProfileUpdateRequest) ToUserPatch() model.UserPatch {
	return model.UserPatch{
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		Age:               r.Age,
		Height:            r.Height,
		Weight:            r.Weight,
		WeeklyWorkoutGoal: r.WeeklyWorkoutGoal,
		TargetWeight:      r.TargetWeight,
		PrimaryGoal:       r.PrimaryGoal,
	}
}

// --- workouts ---

// WorkoutRequest is the body of POST and PUT /api/workouts. Any userId in the
// body is ignored; the owner comes from the access token.
type WorkoutRequest struct {
	Type     *string  `json:"type"`
	Name     *string  `json:"name"`
	Date     *string  `json:"date"`
	Time     *string  `json:"time"`
	Duration *int     `json:"duration"`
	Distance *float64 `json:"distance"`
	Calories *int     `json:"calories"`
	Notes    *string  `json:"notes"`
}

func required(field string) error {
	return fmt.Errorf("%w: %s is required", errs.ErrValidation, field)
}

// ToNewWorkout requires type, date, time and duration. Field formats are
// checked by the service.
func (r WorkoutRequest) ToNewWorkout() (model.NewWorkout, error) {
	switch {
	case r.Type == nil:
		return model.NewWorkout{}, required("type")
	case r.Date == nil:
		return model.NewWorkout{}, required("date")
	case r.Time == nil:
		return model.NewWorkout{}, required("time")
	case r.Duration == nil:
		return model.NewWorkout{}, required("duration")
	}
	nw := model.NewWorkout{
		Type:     model.WorkoutType(*r.Type),
		Date:     *r.Date,
		Time:     *r.Time,
		Duration: *r.Duration,
		Distance: r.Distance,
		Calories: r.Calories,
		Notes:    r.Notes,
	}
	if r.Name != nil {
		nw.Name = *r.Name
	}
	return nw, nil
}

// ToWorkoutPatch maps present fields to a patch.
func (r WorkoutRequest) ToWorkoutPatch() model.WorkoutPatch {
	p := model.WorkoutPatch{
		Name:     r.Name,
		Date:     r.Date,
		Time:     r.Time,
		Duration: r.Duration,
		Distance: r.Distance,
		Calories: r.Calories,
		Notes:    r.Notes,
	}
	if r.Type != nil {
		t := model.WorkoutType(*r.Type)
		p.Type = &t
	}
	return p
}

// Export is the body of GET /api/user/{id}/export.
type Export struct {
	User       User            `json:"user"`
	Workouts   []model.Workout `json:"workouts"`
	ExportDate time.Time       `json:"exportDate"`
}

// ToExport strips the password hash from an export.
func ToExport(u model.User, ws []model.Workout, at time.Time) Export {
	if ws == nil {
		ws = []model.Workout{}
	}
	return Export{User: ToUser(u), Workouts: ws, ExportDate: at}
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Message string `json:"message"`
}
