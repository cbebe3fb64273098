// Package stats computes summary metrics and time-bucketed series over a user's workouts.
//
// Every function is a pure computation over its input; the only ambient input is
// the clock, which an Aggregator carries explicitly. Records with malformed date
// or time are skipped in date-bucketed results but still count toward totals.
package stats

import (
	"math"
	"time"

	"github.com/and161185/fittrack/internal/model"
)

const dateLayout = "2006-01-02"

// Summary is the dashboard headline.
type Summary struct {
	TotalWorkouts int     `json:"totalWorkouts"`
	ThisWeek      int     `json:"thisWeek"`
	TotalDistance float64 `json:"totalDistance"`
	AvgDuration   int     `json:"avgDuration"`
}

// DayCount is one bar of the weekly chart.
type DayCount struct {
	Day   string `json:"day"`
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// MonthProgress is one point of the monthly progress chart.
type MonthProgress struct {
	Month    string  `json:"month"`
	Distance float64 `json:"distance"`
	Count    int     `json:"count"`
}

// TypeShare is one slice of the distribution chart.
type TypeShare struct {
	Type       model.WorkoutType `json:"type"`
	Label      string            `json:"label"`
	Count      int               `json:"count"`
	Percentage int               `json:"percentage"`
}

// Totals aggregates effort across all workouts.
type Totals struct {
	TotalHours    float64 `json:"totalHours"`
	TotalCalories int     `json:"totalCalories"`
	AvgCalories   int     `json:"avgCalories"`
}

// Goal tracks this week's workouts against the weekly target.
type Goal struct {
	Goal     int `json:"goal"`
	ThisWeek int `json:"thisWeek"`
	Percent  int `json:"percent"`
}

// Aggregator holds the clock and calendar conventions used for bucketing.
type Aggregator struct {
	now       func() time.Time
	loc       *time.Location
	weekStart time.Weekday
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLocation sets the zone in which workout dates and times are interpreted.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithWeekStart sets the first day of the calendar week.
func WithWeekStart(d time.Weekday) Option {
	return func(a *Aggregator) { a.weekStart = d }
}

// New constructs an Aggregator. Defaults: time.Now, time.Local, weeks start on Sunday.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{now: time.Now, loc: time.Local, weekStart: time.Sunday}
	for _, o := range opts {
		o(a)
	}
	return a
}

var defaultAggregator = New()

// CalculateStats computes the Summary with default conventions.
func CalculateStats(ws []model.Workout) Summary { return defaultAggregator.CalculateStats(ws) }

// WeeklyData computes the current week's per-day counts with default conventions.
func WeeklyData(ws []model.Workout) []DayCount { return defaultAggregator.WeeklyData(ws) }

// MonthlyProgress computes the trailing months series with default conventions.
func MonthlyProgress(ws []model.Workout, months int) []MonthProgress {
	return defaultAggregator.MonthlyProgress(ws, months)
}

// CalculateStats counts workouts, sums distance and averages duration.
func (a *Aggregator) CalculateStats(ws []model.Workout) Summary {
	start, end := a.weekBounds()

	var (
		thisWeek      int
		totalDistance float64
		totalDuration int
	)
	for _, w := range ws {
		if at, ok := a.startedAt(w); ok && !at.Before(start) && !at.After(end) {
			thisWeek++
		}
		if w.Distance != nil {
			totalDistance += *w.Distance
		}
		totalDuration += w.Duration
	}

	s := Summary{
		TotalWorkouts: len(ws),
		ThisWeek:      thisWeek,
		TotalDistance: round(totalDistance, 1),
	}
	if len(ws) > 0 {
		s.AvgDuration = int(round(float64(totalDuration)/float64(len(ws)), 0))
	}
	return s
}

// WeeklyData returns exactly seven entries, one per day of the current week.
func (a *Aggregator) WeeklyData(ws []model.Workout) []DayCount {
	start, _ := a.weekBounds()

	counts := make(map[string]int, len(ws))
	for _, w := range ws {
		counts[w.Date]++
	}

	out := make([]DayCount, 7)
	for i := range out {
		day := start.AddDate(0, 0, i)
		key := day.Format(dateLayout)
		out[i] = DayCount{Day: day.Format("Mon"), Date: key, Count: counts[key]}
	}
	return out
}

// MonthlyProgress returns months entries, oldest first, ending at the current month.
func (a *Aggregator) MonthlyProgress(ws []model.Workout, months int) []MonthProgress {
	if months <= 0 {
		return []MonthProgress{}
	}
	now := a.now().In(a.loc)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, a.loc)

	type ym struct {
		y int
		m time.Month
	}
	dated := make([]ym, len(ws))
	valid := make([]bool, len(ws))
	for i, w := range ws {
		d, err := time.ParseInLocation(dateLayout, w.Date, a.loc)
		if err != nil {
			continue
		}
		dated[i], valid[i] = ym{d.Year(), d.Month()}, true
	}

	out := make([]MonthProgress, 0, months)
	for i := months - 1; i >= 0; i-- {
		month := first.AddDate(0, -i, 0)
		want := ym{month.Year(), month.Month()}

		var (
			count    int
			distance float64
		)
		for j, w := range ws {
			if !valid[j] || dated[j] != want {
				continue
			}
			count++
			if w.Distance != nil {
				distance += *w.Distance
			}
		}
		out = append(out, MonthProgress{
			Month:    month.Format("Jan"),
			Distance: round(distance, 1),
			Count:    count,
		})
	}
	return out
}

// Distribution groups by type in order of first appearance. Empty input yields an empty slice.
func Distribution(ws []model.Workout) []TypeShare {
	if len(ws) == 0 {
		return []TypeShare{}
	}
	idx := map[model.WorkoutType]int{}
	out := []TypeShare{}
	for _, w := range ws {
		i, ok := idx[w.Type]
		if !ok {
			i = len(out)
			idx[w.Type] = i
			out = append(out, TypeShare{Type: w.Type, Label: w.Type.Label()})
		}
		out[i].Count++
	}
	total := float64(len(ws))
	for i := range out {
		out[i].Percentage = int(round(float64(out[i].Count)/total*100, 0))
	}
	return out
}

// ComputeTotals sums hours and calories; averages are zero on empty input.
func ComputeTotals(ws []model.Workout) Totals {
	var minutes, calories int
	for _, w := range ws {
		minutes += w.Duration
		if w.Calories != nil {
			calories += *w.Calories
		}
	}
	t := Totals{
		TotalHours:    round(float64(minutes)/60, 1),
		TotalCalories: calories,
	}
	if len(ws) > 0 {
		t.AvgCalories = int(round(float64(calories)/float64(len(ws)), 0))
	}
	return t
}

// GoalProgress compares this week's count with the weekly goal, capped at 100 percent.
func (a *Aggregator) GoalProgress(ws []model.Workout, weeklyGoal int) Goal {
	g := Goal{Goal: weeklyGoal, ThisWeek: a.CalculateStats(ws).ThisWeek}
	if weeklyGoal > 0 {
		g.Percent = min(100, int(round(float64(g.ThisWeek)/float64(weeklyGoal)*100, 0)))
	}
	return g
}

// Today is the current calendar day in the aggregator's zone, YYYY-MM-DD.
func (a *Aggregator) Today() string {
	return a.now().In(a.loc).Format(dateLayout)
}

// weekBounds returns the first and last instants of the current week.
func (a *Aggregator) weekBounds() (time.Time, time.Time) {
	now := a.now().In(a.loc)
	offset := (int(now.Weekday()) - int(a.weekStart) + 7) % 7
	start := time.Date(now.Year(), now.Month(), now.Day()-offset, 0, 0, 0, 0, a.loc)
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return start, end
}

// startedAt parses the workout's date and time in the aggregator's zone.
func (a *Aggregator) startedAt(w model.Workout) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, w.Date+"T"+w.Time, a.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// round is round-half-up to the given number of decimals for non-negative inputs.
func round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Floor(x*p+0.5) / p
}
