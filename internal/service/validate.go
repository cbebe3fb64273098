package service

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/and161185/fittrack/internal/errs"
	"github.com/and161185/fittrack/internal/model"
)

const (
	minPasswordLen = 6
	dateLayout     = "2006-01-02"
	clockLayout    = "15:04"
	maxMonths      = 24
	defaultMonths  = 6
)

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %s %s", errs.ErrValidation, field, msg)
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", "must be a valid address")
	}
	return nil
}

func validateDate(field, s string) error {
	if len(s) != len(dateLayout) {
		return invalid(field, "must be YYYY-MM-DD")
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return invalid(field, "must be YYYY-MM-DD")
	}
	return nil
}

func validateClock(s string) error {
	if len(s) != len(clockLayout) {
		return invalid("time", "must be HH:MM")
	}
	if _, err := time.Parse(clockLayout, s); err != nil {
		return invalid("time", "must be HH:MM")
	}
	return nil
}

func validateType(t model.WorkoutType) error {
	if !t.Valid() {
		return invalid("type", "must be one of running, cycling, strength, swimming, yoga, cardio, other")
	}
	return nil
}

func validateWorkoutNumbers(duration *int, distance *float64, calories *int) error {
	if duration != nil && *duration <= 0 {
		return invalid("duration", "must be positive")
	}
	if distance != nil && *distance < 0 {
		return invalid("distance", "must not be negative")
	}
	if calories != nil && *calories < 0 {
		return invalid("calories", "must not be negative")
	}
	return nil
}

func validateNewWorkout(in model.NewWorkout) error {
	if err := validateType(in.Type); err != nil {
		return err
	}
	if err := validateDate("date", in.Date); err != nil {
		return err
	}
	if err := validateClock(in.Time); err != nil {
		return err
	}
	return validateWorkoutNumbers(&in.Duration, in.Distance, in.Calories)
}

func validateWorkoutPatch(p model.WorkoutPatch) error {
	if p.Type != nil {
		if err := validateType(*p.Type); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if err := validateDate("date", *p.Date); err != nil {
			return err
		}
	}
	if p.Time != nil {
		if err := validateClock(*p.Time); err != nil {
			return err
		}
	}
	return validateWorkoutNumbers(p.Duration, p.Distance, p.Calories)
}

func validateFilter(f model.WorkoutFilter) error {
	if f.Type != "" {
		if err := validateType(f.Type); err != nil {
			return err
		}
	}
	if f.DateFrom != "" {
		if err := validateDate("dateFrom", f.DateFrom); err != nil {
			return err
		}
	}
	if f.DateTo != "" {
		if err := validateDate("dateTo", f.DateTo); err != nil {
			return err
		}
	}
	return nil
}

func validateProfile(first, last *string, age *int, height, weight, target *float64, goal *int) error {
	if first != nil && strings.TrimSpace(*first) == "" {
		return invalid("firstName", "is required")
	}
	if last != nil && strings.TrimSpace(*last) == "" {
		return invalid("lastName", "is required")
	}
	if age != nil && (*age <= 0 || *age > 150) {
		return invalid("age", "must be between 1 and 150")
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{{"height", height}, {"weight", weight}, {"targetWeight", target}} {
		if f.v != nil && *f.v <= 0 {
			return invalid(f.name, "must be positive")
		}
	}
	if goal != nil && (*goal < 1 || *goal > 7) {
		return invalid("weeklyWorkoutGoal", "must be between 1 and 7")
	}
	return nil
}
