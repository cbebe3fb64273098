package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/fittrack/internal/errs"
	"github.com/and161185/fittrack/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func ptr[T any](v T) *T { return &v }

var workoutCols = []string{"id", "user_id", "type", "name", "date", "time", "duration", "distance", "calories", "notes", "created_at"}

func workoutRow(w model.Workout) []any {
	return []any{w.ID, w.UserID, w.Type, w.Name, w.Date, w.Time, w.Duration, w.Distance, w.Calories, w.Notes, w.CreatedAt}
}

func TestWorkoutRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWorkoutRepo(db)

	ts := time.Now().UTC()
	in := model.NewWorkout{UserID: 7, Type: model.Running, Name: "Tempo", Date: "2024-06-01", Time: "07:00", Duration: 30, Distance: ptr(5.0)}

	mock.ExpectQuery(`INSERT INTO workouts \(user_id, type, name, date, time, duration, distance, calories, notes\)`).
		WithArgs(int64(7), "running", "Tempo", "2024-06-01", "07:00", 30, in.Distance, in.Calories, in.Notes).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), ts))

	w, err := r.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, int64(11), w.ID)
	require.Equal(t, ts, w.CreatedAt)
	require.Equal(t, 5.0, *w.Distance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepo_Create_Err(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWorkoutRepo(db)

	mock.ExpectQuery(`INSERT INTO workouts`).WillReturnError(errors.New("disk full"))
	_, err := r.Create(context.Background(), model.NewWorkout{UserID: 1, Type: model.Yoga, Date: "2024-06-01", Time: "07:00", Duration: 5})
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}

func TestWorkoutRepo_Get_OK_And_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWorkoutRepo(db)
	ctx := context.Background()

	want := model.Workout{ID: 3, UserID: 1, Type: model.Cycling, Date: "2024-06-02", Time: "18:00", Duration: 60, Notes: ptr("hills"), CreatedAt: time.Now().UTC()}
	mock.ExpectQuery(`SELECT .+ FROM workouts WHERE id=\$1`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(workoutCols).AddRow(workoutRow(want)...))
	got, err := r.Get(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, want, *got)

	mock.ExpectQuery(`SELECT .+ FROM workouts WHERE id=\$1`).
		WithArgs(int64(4)).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, 4)
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(`SELECT .+ FROM workouts WHERE id=\$1`).
		WithArgs(int64(5)).
		WillReturnError(errors.New("conn reset"))
	_, err = r.Get(ctx, 5)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}

func TestWorkoutRepo_ListByUser(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWorkoutRepo(db)

	ts := time.Now().UTC()
	a := model.Workout{ID: 2, UserID: 9, Type: model.Yoga, Date: "2024-06-15", Time: "18:30", Duration: 20, CreatedAt: ts}
	b := model.Workout{ID: 1, UserID: 9, Type: model.Running, Date: "2024-06-01", Time: "07:00", Duration: 30, Distance: ptr(3.0), CreatedAt: ts}

	mock.ExpectQuery(`SELECT .+ FROM workouts WHERE user_id=\$1 ORDER BY date DESC, time DESC, id DESC`).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows(workoutCols).AddRow(workoutRow(a)...).AddRow(workoutRow(b)...))

	got, err := r.ListByUser(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, []model.Workout{a, b}, got)
}

func TestWorkoutRepo_ListByUser_EmptyAndErrors(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWorkoutRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM workouts WHERE user_id=\$1`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(workoutCols))
	got, err := r.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)

	mock.ExpectQuery(`SELECT .+ FROM workouts WHERE user_id=\$1`).
		WithArgs(int64(1)).
		WillReturnError(errors.New("q-fail"))
	_, err = r.ListByUser(ctx, 1)
	require.Error(t, err)

	mock.ExpectQuery(`SELECT .+ FROM workouts WHERE user_id=\$1`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(workoutCols).RowError(0, errors.New("row0")))
	_, err = r.ListByUser(ctx, 1)
	require.Error(t, err)
}

func TestWorkoutRepo_Update_OnlyPatchedFieldChanges(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWorkoutRepo(db)

	cur := model.Workout{ID: 5, UserID: 2, Type: model.Running, Name: "Long", Date: "2024-06-01", Time: "07:00",
		Duration: 30, Distance: ptr(10.0), Calories: ptr(700), Notes: ptr("windy"), CreatedAt: time.Now().UTC()}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM workouts WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(workoutCols).AddRow(workoutRow(cur)...))
	mock.ExpectExec(`UPDATE workouts SET type=\$2, name=\$3, date=\$4, time=\$5, duration=\$6, distance=\$7, calories=\$8, notes=\$9`).
		WithArgs(int64(5), "running", "Long", "2024-06-01", "07:00", 99, cur.Distance, cur.Calories, cur.Notes).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	got, err := r.Update(context.Background(), 5, model.WorkoutPatch{Duration: ptr(99)})
	require.NoError(t, err)

	want := cur
	want.Duration = 99
	require.Equal(t, want, *got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepo_Update_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWorkoutRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM workouts WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := r.Update(context.Background(), 404, model.WorkoutPatch{Duration: ptr(99)})
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepo_Update_TxErrors(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWorkoutRepo(db)
	ctx := context.Background()

	mock.ExpectBegin().WillReturnError(errors.New("boom"))
	_, err := r.Update(ctx, 1, model.WorkoutPatch{})
	require.Error(t, err)

	cur := model.Workout{ID: 1, UserID: 1, Type: model.Yoga, Date: "2024-06-01", Time: "07:00", Duration: 10, CreatedAt: time.Now().UTC()}
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM workouts WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(workoutCols).AddRow(workoutRow(cur)...))
	mock.ExpectExec(`UPDATE workouts`).WillReturnError(errors.New("upd-fail"))
	mock.ExpectRollback()
	_, err = r.Update(ctx, 1, model.WorkoutPatch{Name: ptr("x")})
	require.Error(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM workouts WHERE id=\$1 FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(workoutCols).AddRow(workoutRow(cur)...))
	mock.ExpectExec(`UPDATE workouts`).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit().WillReturnError(errors.New("commit-fail"))
	_, err = r.Update(ctx, 1, model.WorkoutPatch{Name: ptr("x")})
	require.Error(t, err)
}

func TestWorkoutRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWorkoutRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM workouts WHERE id=\$1`).
		WithArgs(int64(8)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, 8))

	mock.ExpectExec(`DELETE FROM workouts WHERE id=\$1`).
		WithArgs(int64(8)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, 8), errs.ErrNotFound)

	mock.ExpectExec(`DELETE FROM workouts WHERE id=\$1`).
		WithArgs(int64(9)).
		WillReturnError(errors.New("del-fail"))
	require.Error(t, r.Delete(ctx, 9))
}
