// Package model defines domain entities used by services and repositories.
package model

import "time"

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// WorkoutType is one of the fixed activity kinds.
type WorkoutType string

const (
	Running  WorkoutType = "running"
	Cycling  WorkoutType = "cycling"
	Strength WorkoutType = "strength"
	Swimming WorkoutType = "swimming"
	Yoga     WorkoutType = "yoga"
	Cardio   WorkoutType = "cardio"
	Other    WorkoutType = "other"
)

// WorkoutTypes lists every accepted type in display order.
var WorkoutTypes = []WorkoutType{Running, Cycling, Strength, Swimming, Yoga, Cardio, Other}

var typeLabels = map[WorkoutType]string{
	Running:  "Running",
	Cycling:  "Cycling",
	Strength: "Strength Training",
	Swimming: "Swimming",
	Yoga:     "Yoga",
	Cardio:   "Cardio",
	Other:    "Other",
}

// Valid reports whether t belongs to the enumeration.
func (t WorkoutType) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

// Label returns the human readable name; unknown types read as "Other".
func (t WorkoutType) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return typeLabels[Other]
}

// Workout is a single logged exercise session.
type Workout struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"userId"`
	Type      WorkoutType `json:"type"`
	Name      string      `json:"name"`
	Date      string      `json:"date"` // YYYY-MM-DD
	Time      string      `json:"time"` // HH:MM
	Duration  int         `json:"duration"`
	Distance  *float64    `json:"distance"`
	Calories  *int        `json:"calories"`
	Notes     *string     `json:"notes"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewWorkout is the create intent: everything but the store-assigned fields.
type NewWorkout struct {
	UserID   int64
	Type     WorkoutType
	Name     string
	Date     string
	Time     string
	Duration int
	Distance *float64
	Calories *int
	Notes    *string
}

// WorkoutPatch is a partial update; nil fields keep their stored value.
type WorkoutPatch struct {
	Type     *WorkoutType
	Name     *string
	Date     *string
	Time     *string
	Duration *int
	Distance *float64
	Calories *int
	Notes    *string
}

// Empty reports whether the patch changes nothing.
func (p WorkoutPatch) Empty() bool {
	return p.Type == nil && p.Name == nil && p.Date == nil && p.Time == nil &&
		p.Duration == nil && p.Distance == nil && p.Calories == nil && p.Notes == nil
}

// Apply returns w with the patch merged on top. ID, UserID and CreatedAt are untouched.
func (p WorkoutPatch) Apply(w Workout) Workout {
	if p.Type != nil {
		w.Type = *p.Type
	}
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.Date != nil {
		w.Date = *p.Date
	}
	if p.Time != nil {
		w.Time = *p.Time
	}
	if p.Duration != nil {
		w.Duration = *p.Duration
	}
	if p.Distance != nil {
		d := *p.Distance
		w.Distance = &d
	}
	if p.Calories != nil {
		c := *p.Calories
		w.Calories = &c
	}
	if p.Notes != nil {
		n := *p.Notes
		w.Notes = &n
	}
	return w
}

// Build materializes a stored workout from the create intent.
func (n NewWorkout) Build(id int64, createdAt time.Time) Workout {
	return Workout{
		ID:        id,
		UserID:    n.UserID,
		Type:      n.Type,
		Name:      n.Name,
		Date:      n.Date,
		Time:      n.Time,
		Duration:  n.Duration,
		Distance:  n.Distance,
		Calories:  n.Calories,
		Notes:     n.Notes,
		CreatedAt: createdAt,
	}
}

// WorkoutFilter narrows a user's workout list. Zero values match everything.
type WorkoutFilter struct {
	Type     WorkoutType
	DateFrom string // inclusive, YYYY-MM-DD
	DateTo   string // inclusive, YYYY-MM-DD
}

// Match reports whether w passes the filter. Dates compare lexically.
func (f WorkoutFilter) Match(w Workout) bool {
	if f.Type != "" && w.Type != f.Type {
		return false
	}
	if f.DateFrom != "" && w.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && w.Date > f.DateTo {
		return false
	}
	return true
}

// Apply returns the matching subset preserving order.
func (f WorkoutFilter) Apply(ws []Workout) []Workout {
	out := make([]Workout, 0, len(ws))
	for _, w := range ws {
		if f.Match(w) {
			out = append(out, w)
		}
	}
	return out
}

// Profile defaults carried over from the signup schema.
const (
	DefaultWeeklyWorkoutGoal = 4
	DefaultPrimaryGoal       = "general"
)

// User represents an account. PasswordHash is an encoded argon2id hash, never plaintext.
type User struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"passwordHash"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	Age               *int      `json:"age"`
	Height            *float64  `json:"height"` // feet
	Weight            *float64  `json:"weight"` // lbs
	WeeklyWorkoutGoal int       `json:"weeklyWorkoutGoal"`
	TargetWeight      *float64  `json:"targetWeight"`
	PrimaryGoal       string    `json:"primaryGoal"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewUser is the signup intent after password hashing.
type NewUser struct {
	Email             string
	PasswordHash      string
	FirstName         string
	LastName          string
	Age               *int
	Height            *float64
	Weight            *float64
	WeeklyWorkoutGoal int
	TargetWeight      *float64
	PrimaryGoal       string
}

// Build materializes a stored user from the signup intent.
func (n NewUser) Build(id int64, createdAt time.Time) User {
	return User{
		ID:                id,
		Email:             n.Email,
		PasswordHash:      n.PasswordHash,
		FirstName:         n.FirstName,
		LastName:          n.LastName,
		Age:               n.Age,
		Height:            n.Height,
		Weight:            n.Weight,
		WeeklyWorkoutGoal: n.WeeklyWorkoutGoal,
		TargetWeight:      n.TargetWeight,
		PrimaryGoal:       n.PrimaryGoal,
		CreatedAt:         createdAt,
	}
}

// Signup is the registration request before hashing. Nil optional fields take defaults.
type Signup struct {
	Email             string
	Password          string
	FirstName         string
	LastName          string
	Age               *int
	Height            *float64
	Weight            *float64
	WeeklyWorkoutGoal *int
	TargetWeight      *float64
	PrimaryGoal       *string
}

// UserPatch is a partial profile update. Email and password are not patchable here.
type UserPatch struct {
	FirstName         *string
	LastName          *string
	Age               *int
	Height            *float64
	Weight            *float64
	WeeklyWorkoutGoal *int
	TargetWeight      *float64
	PrimaryGoal       *string
}

// Apply returns u with the patch merged on top.
func (p UserPatch) Apply(u User) User {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Age != nil {
		a := *p.Age
		u.Age = &a
	}
	if p.Height != nil {
		h := *p.Height
		u.Height = &h
	}
	if p.Weight != nil {
		w := *p.Weight
		u.Weight = &w
	}
	if p.WeeklyWorkoutGoal != nil {
		u.WeeklyWorkoutGoal = *p.WeeklyWorkoutGoal
	}
	if p.TargetWeight != nil {
		t := *p.TargetWeight
		u.TargetWeight = &t
	}
	if p.PrimaryGoal != nil {
		u.PrimaryGoal = *p.PrimaryGoal
	}
	return u
}

// Clone returns a deep copy so callers cannot alias stored optional fields.
func (w Workout) Clone() Workout {
	if w.Distance != nil {
		d := *w.Distance
		w.Distance = &d
	}
	if w.Calories != nil {
		c := *w.Calories
		w.Calories = &c
	}
	if w.Notes != nil {
		n := *w.Notes
		w.Notes = &n
	}
	return w
}

// Clone returns a deep copy of the optional profile fields.
func (u User) Clone() User {
	if u.Age != nil {
		a := *u.Age
		u.Age = &a
	}
	if u.Height != nil {
		h := *u.Height
		u.Height = &h
	}
	if u.Weight != nil {
		w := *u.Weight
		u.Weight = &w
	}
	if u.TargetWeight != nil {
		t := *u.TargetWeight
		u.TargetWeight = &t
	}
	return u
}
