package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/fittrack/internal/errs"
	"github.com/and161185/fittrack/internal/events"
	"github.com/and161185/fittrack/internal/model"
	"github.com/and161185/fittrack/internal/repository"
	"github.com/and161185/fittrack/internal/stats"
)

// WorkoutService defines workout CRUD scoped to the caller, plus derived statistics.
type WorkoutService interface {
	Create(ctx context.Context, userID int64, in model.NewWorkout) (model.Workout, error)
	Get(ctx context.Context, userID, id int64) (model.Workout, error)
	List(ctx context.Context, userID int64, f model.WorkoutFilter) ([]model.Workout, error)
	Update(ctx context.Context, userID, id int64, p model.WorkoutPatch) (model.Workout, error)
	Delete(ctx context.Context, userID, id int64) error

	Summary(ctx context.Context, userID int64) (SummaryReport, error)
	Weekly(ctx context.Context, userID int64) ([]stats.DayCount, error)
	Monthly(ctx context.Context, userID int64, months int, t model.WorkoutType) ([]stats.MonthProgress, error)
	Distribution(ctx context.Context, userID int64) ([]stats.TypeShare, error)

	Export(ctx context.Context, userID int64) (Export, error)
}

// SummaryReport is the dashboard header: counters, progress totals and weekly goal.
type SummaryReport struct {
	stats.Summary
	Totals stats.Totals `json:"totals"`
	Goal   stats.Goal   `json:"goal"`
}

// Export is a full dump of one user's data. Transports must strip the password hash.
type Export struct {
	User       model.User
	Workouts   []model.Workout
	ExportDate time.Time
}

// WorkoutOption customizes WorkoutServiceImpl.
type WorkoutOption func(*WorkoutServiceImpl)

// WithAggregator sets the stats aggregator (clock, zone and week start).
func WithAggregator(a *stats.Aggregator) WorkoutOption {
	return func(s *WorkoutServiceImpl) { s.agg = a }
}

// WithStatsCache enables stats memoization.
func WithStatsCache(c *StatsCache) WorkoutOption {
	return func(s *WorkoutServiceImpl) { s.cache = c }
}

// WithPublisher sets the event sink for workout changes.
func WithPublisher(p events.Publisher) WorkoutOption {
	return func(s *WorkoutServiceImpl) { s.pub = p }
}

// WithLogger sets the logger for best-effort failures.
func WithLogger(l *zap.Logger) WorkoutOption {
	return func(s *WorkoutServiceImpl) { s.log = l }
}

// WithClock overrides the time source used for export dates and cache keys.
func WithClock(now func() time.Time) WorkoutOption {
	return func(s *WorkoutServiceImpl) { s.now = now }
}

// WithEventObserver receives the type and outcome ("ok" or "error") of every publish.
func WithEventObserver(fn func(eventType, outcome string)) WorkoutOption {
	return func(s *WorkoutServiceImpl) { s.observeEvent = fn }
}

type WorkoutServiceImpl struct {
	workouts repository.WorkoutRepository
	users    repository.UserRepository
	agg      *stats.Aggregator
	cache    *StatsCache
	pub      events.Publisher
	log      *zap.Logger
	now      func() time.Time

	observeEvent func(eventType, outcome string)
}

// NewWorkoutService constructs WorkoutService. Without options it uses the default
// aggregator, no cache, and discards events.
func NewWorkoutService(workouts repository.WorkoutRepository, users repository.UserRepository, opts ...WorkoutOption) *WorkoutServiceImpl {
	s := &WorkoutServiceImpl{
		workouts: workouts,
		users:    users,
		agg:      stats.New(),
		pub:      events.Nop{},
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create validates and stores a workout owned by userID.
func (s *WorkoutServiceImpl) Create(ctx context.Context, userID int64, in model.NewWorkout) (model.Workout, error) {
	in.UserID = userID
	if err := validateNewWorkout(in); err != nil {
		return model.Workout{}, err
	}
	w, err := s.workouts.Create(ctx, in)
	if err != nil {
		return model.Workout{}, err
	}
	s.changed(ctx, events.WorkoutCreated, *w)
	return *w, nil
}

// Get returns a workout the caller owns.
func (s *WorkoutServiceImpl) Get(ctx context.Context, userID, id int64) (model.Workout, error) {
	w, err := s.workouts.Get(ctx, id)
	if err != nil {
		return model.Workout{}, err
	}
	if w.UserID != userID {
		return model.Workout{}, errs.ErrForbidden
	}
	return *w, nil
}

// List returns the caller's workouts, most recent first, narrowed by f.
func (s *WorkoutServiceImpl) List(ctx context.Context, userID int64, f model.WorkoutFilter) ([]model.Workout, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	ws, err := s.workouts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return f.Apply(ws), nil
}

// Update merges a validated patch into a workout the caller owns.
// An empty patch returns the stored record unchanged.
func (s *WorkoutServiceImpl) Update(ctx context.Context, userID, id int64, p model.WorkoutPatch) (model.Workout, error) {
	if err := validateWorkoutPatch(p); err != nil {
		return model.Workout{}, err
	}
	cur, err := s.Get(ctx, userID, id)
	if err != nil {
		return model.Workout{}, err
	}
	if p.Empty() {
		return cur, nil
	}
	w, err := s.workouts.Update(ctx, id, p)
	if err != nil {
		return model.Workout{}, err
	}
	s.changed(ctx, events.WorkoutUpdated, *w)
	return *w, nil
}

// Delete removes a workout the caller owns.
func (s *WorkoutServiceImpl) Delete(ctx context.Context, userID, id int64) error {
	cur, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.workouts.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, events.WorkoutDeleted, cur)
	return nil
}

// changed invalidates cached stats and publishes the event. Publish errors are
// logged; the mutation has already been committed.
func (s *WorkoutServiceImpl) changed(ctx context.Context, eventType string, w model.Workout) {
	s.cache.Invalidate(w.UserID)

	e := events.Event{Type: eventType, UserID: w.UserID, WorkoutID: w.ID, OccurredAt: s.now().UTC()}
	if eventType != events.WorkoutDeleted {
		e.Workout = &w
	}
	outcome := "ok"
	if err := s.pub.Publish(ctx, e); err != nil {
		outcome = "error"
		s.log.Warn("publish workout event",
			zap.String("type", eventType),
			zap.Int64("workout_id", w.ID),
			zap.Error(err),
		)
	}
	if s.observeEvent != nil {
		s.observeEvent(eventType, outcome)
	}
}

// cached runs compute on a miss and stores the result. The key includes the
// current day in the aggregator's zone because week and month buckets move with it.
func cached[T any](s *WorkoutServiceImpl, userID int64, name string, compute func() (T, error)) (T, error) {
	key := s.cache.key(userID, name+"@"+s.agg.Today())
	var out T
	if s.cache.get(key, &out) {
		return out, nil
	}
	out, err := compute()
	if err != nil {
		return out, err
	}
	if err := s.cache.put(key, out); err != nil {
		s.log.Warn("stats cache put", zap.ByteString("key", key), zap.Error(err))
	}
	return out, nil
}

// Summary aggregates counters, totals and weekly-goal progress.
func (s *WorkoutServiceImpl) Summary(ctx context.Context, userID int64) (SummaryReport, error) {
	return cached(s, userID, "summary", func() (SummaryReport, error) {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return SummaryReport{}, err
		}
		ws, err := s.workouts.ListByUser(ctx, userID)
		if err != nil {
			return SummaryReport{}, err
		}
		return SummaryReport{
			Summary: s.agg.CalculateStats(ws),
			Totals:  stats.ComputeTotals(ws),
			Goal:    s.agg.GoalProgress(ws, u.WeeklyWorkoutGoal),
		}, nil
	})
}

// Weekly returns per-day counts for the current week.
func (s *WorkoutServiceImpl) Weekly(ctx context.Context, userID int64) ([]stats.DayCount, error) {
	return cached(s, userID, "weekly", func() ([]stats.DayCount, error) {
		ws, err := s.workouts.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return s.agg.WeeklyData(ws), nil
	})
}

// Monthly returns per-month progress. months 0 means the default of 6; t narrows to one type.
func (s *WorkoutServiceImpl) Monthly(ctx context.Context, userID int64, months int, t model.WorkoutType) ([]stats.MonthProgress, error) {
	if months == 0 {
		months = defaultMonths
	}
	if months < 0 || months > maxMonths {
		return nil, invalid("months", "must be between 1 and 24")
	}
	if t != "" {
		if err := validateType(t); err != nil {
			return nil, err
		}
	}
	name := "monthly:" + strconv.Itoa(months) + ":" + string(t)
	return cached(s, userID, name, func() ([]stats.MonthProgress, error) {
		ws, err := s.workouts.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		ws = model.WorkoutFilter{Type: t}.Apply(ws)
		return s.agg.MonthlyProgress(ws, months), nil
	})
}

// Distribution returns the share of each workout type.
func (s *WorkoutServiceImpl) Distribution(ctx context.Context, userID int64) ([]stats.TypeShare, error) {
	return cached(s, userID, "distribution", func() ([]stats.TypeShare, error) {
		ws, err := s.workouts.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return stats.Distribution(ws), nil
	})
}

// Export dumps the user's profile and every workout.
func (s *WorkoutServiceImpl) Export(ctx context.Context, userID int64) (Export, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Export{}, err
	}
	ws, err := s.workouts.ListByUser(ctx, userID)
	if err != nil {
		return Export{}, err
	}
	return Export{User: *u, Workouts: ws, ExportDate: s.now().UTC()}, nil
}
