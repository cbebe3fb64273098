package repository

import (
	"sort"

	"github.com/and161185/fittrack/internal/model"
)

// SortRecentFirst orders workouts by (date, time) descending, newest ID first on ties.
// Date and time are fixed-width strings so lexical order is chronological.
func SortRecentFirst(ws []model.Workout) {
	sort.SliceStable(ws, func(i, j int) bool {
		a, b := ws[i], ws[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.Time != b.Time {
			return a.Time > b.Time
		}
		return a.ID > b.ID
	})
}
