package kv

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/require"

	"github.com/and161185/fittrack/internal/errs"
	"github.com/and161185/fittrack/internal/model"
)

var fixedNow = time.Date(2024, 6, 19, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func newWorkoutRepo(t *testing.T) (*WorkoutRepo, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	r := NewWorkoutRepo(db)
	r.now = func() time.Time { return fixedNow }
	return r, mock
}

func TestWorkoutRepo_Create_AppendsToDocument(t *testing.T) {
	r, mock := newWorkoutRepo(t)
	ctx := context.Background()

	in := model.NewWorkout{UserID: 1, Type: model.Running, Date: "2024-06-01", Time: "07:00", Duration: 30, Distance: ptr(5.0)}
	want := in.Build(1, fixedNow)

	mock.ExpectGet(WorkoutsKey).RedisNil()
	mock.ExpectIncr(NextWorkoutIDKey).SetVal(1)
	mock.ExpectSet(WorkoutsKey, mustJSON(t, []model.Workout{want}), 0).SetVal("OK")

	got, err := r.Create(ctx, in)
	require.NoError(t, err)
	require.Equal(t, want, *got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepo_Create_SecondRecordGetsNextID(t *testing.T) {
	r, mock := newWorkoutRepo(t)
	ctx := context.Background()

	first := model.NewWorkout{UserID: 1, Type: model.Yoga, Date: "2024-06-01", Time: "07:00", Duration: 20}.Build(1, fixedNow)
	in := model.NewWorkout{UserID: 1, Type: model.Cycling, Date: "2024-06-02", Time: "08:00", Duration: 45}
	second := in.Build(2, fixedNow)

	mock.ExpectGet(WorkoutsKey).SetVal(string(mustJSON(t, []model.Workout{first})))
	mock.ExpectIncr(NextWorkoutIDKey).SetVal(2)
	mock.ExpectSet(WorkoutsKey, mustJSON(t, []model.Workout{first, second}), 0).SetVal("OK")

	got, err := r.Create(ctx, in)
	require.NoError(t, err)
	require.Equal(t, int64(2), got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepo_Create_StorageErrors(t *testing.T) {
	r, mock := newWorkoutRepo(t)
	ctx := context.Background()
	in := model.NewWorkout{UserID: 1, Type: model.Yoga, Date: "2024-06-01", Time: "07:00", Duration: 20}

	mock.ExpectGet(WorkoutsKey).RedisNil()
	mock.ExpectIncr(NextWorkoutIDKey).SetErr(errors.New("conn refused"))
	_, err := r.Create(ctx, in)
	require.Error(t, err)

	mock.ExpectGet(WorkoutsKey).SetErr(errors.New("timeout"))
	_, err = r.Create(ctx, in)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepo_MutationsRefuseCorruptDocument(t *testing.T) {
	ctx := context.Background()
	good := model.Workout{ID: 1, UserID: 1, Type: model.Yoga, Date: "2024-06-01", Time: "07:00", Duration: 20, CreatedAt: fixedNow}
	docs := map[string]string{
		"unparsable":  "not json",
		"bad element": `[` + string(mustJSON(t, good)) + `,{"id":"x"}]`,
		"invalid id":  `[` + string(mustJSON(t, good)) + `,{"id":0,"userId":1}]`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			r, mock := newWorkoutRepo(t)

			// No Incr or Set is expected: the stored document must stay as it is.
			mock.ExpectGet(WorkoutsKey).SetVal(doc)
			_, err := r.Create(ctx, model.NewWorkout{UserID: 1, Type: model.Running, Date: "2024-06-02", Time: "07:00", Duration: 30})
			require.ErrorContains(t, err, "decode "+WorkoutsKey)

			mock.ExpectGet(WorkoutsKey).SetVal(doc)
			_, err = r.Update(ctx, 1, model.WorkoutPatch{Duration: ptr(45)})
			require.ErrorContains(t, err, "decode "+WorkoutsKey)

			mock.ExpectGet(WorkoutsKey).SetVal(doc)
			err = r.Delete(ctx, 1)
			require.ErrorContains(t, err, "decode "+WorkoutsKey)

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWorkoutRepo_ListByUser_ScopesSortsAndSkipsMalformed(t *testing.T) {
	r, mock := newWorkoutRepo(t)

	older := model.Workout{ID: 1, UserID: 7, Type: model.Running, Date: "2024-06-01", Time: "07:00", Duration: 30, CreatedAt: fixedNow}
	newer := model.Workout{ID: 2, UserID: 7, Type: model.Yoga, Date: "2024-06-15", Time: "18:30", Duration: 20, CreatedAt: fixedNow}
	sameSlot := model.Workout{ID: 4, UserID: 7, Type: model.Cardio, Date: "2024-06-15", Time: "18:30", Duration: 10, CreatedAt: fixedNow}
	foreign := model.Workout{ID: 3, UserID: 8, Type: model.Swimming, Date: "2024-06-16", Time: "06:00", Duration: 40, CreatedAt: fixedNow}

	doc := `[` +
		string(mustJSON(t, older)) + `,` +
		string(mustJSON(t, newer)) + `,` +
		`{"id":"x"},42,{"id":0,"userId":7},` +
		string(mustJSON(t, foreign)) + `,` +
		string(mustJSON(t, sameSlot)) + `]`
	mock.ExpectGet(WorkoutsKey).SetVal(doc)

	got, err := r.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []model.Workout{sameSlot, newer, older}, got)
}

func TestWorkoutRepo_ListByUser_MissingOrCorruptDocument(t *testing.T) {
	r, mock := newWorkoutRepo(t)
	ctx := context.Background()

	mock.ExpectGet(WorkoutsKey).RedisNil()
	got, err := r.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)

	mock.ExpectGet(WorkoutsKey).SetVal("not json")
	got, err = r.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestWorkoutRepo_Update(t *testing.T) {
	r, mock := newWorkoutRepo(t)
	ctx := context.Background()

	cur := model.Workout{ID: 5, UserID: 1, Type: model.Running, Name: "Long", Date: "2024-06-01", Time: "07:00",
		Duration: 30, Distance: ptr(10.0), Notes: ptr("windy"), CreatedAt: fixedNow}
	doc := mustJSON(t, []model.Workout{cur})

	mock.ExpectGet(WorkoutsKey).SetVal(string(doc))
	_, err := r.Update(ctx, 99, model.WorkoutPatch{Duration: ptr(99)})
	require.ErrorIs(t, err, errs.ErrNotFound)

	want := cur
	want.Duration = 99
	mock.ExpectGet(WorkoutsKey).SetVal(string(doc))
	mock.ExpectSet(WorkoutsKey, mustJSON(t, []model.Workout{want}), 0).SetVal("OK")
	got, err := r.Update(ctx, 5, model.WorkoutPatch{Duration: ptr(99)})
	require.NoError(t, err)
	require.Equal(t, want, *got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepo_Get_And_Delete(t *testing.T) {
	r, mock := newWorkoutRepo(t)
	ctx := context.Background()

	a := model.Workout{ID: 1, UserID: 1, Type: model.Other, Date: "2024-06-01", Time: "07:00", Duration: 5, CreatedAt: fixedNow}
	b := model.Workout{ID: 2, UserID: 1, Type: model.Other, Date: "2024-06-02", Time: "07:00", Duration: 5, CreatedAt: fixedNow}
	full := string(mustJSON(t, []model.Workout{a, b}))
	afterDelete := mustJSON(t, []model.Workout{b})

	mock.ExpectGet(WorkoutsKey).SetVal(full)
	got, err := r.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, a, *got)

	mock.ExpectGet(WorkoutsKey).SetVal(full)
	mock.ExpectSet(WorkoutsKey, afterDelete, 0).SetVal("OK")
	require.NoError(t, r.Delete(ctx, 1))

	mock.ExpectGet(WorkoutsKey).SetVal(string(afterDelete))
	require.ErrorIs(t, r.Delete(ctx, 1), errs.ErrNotFound)

	mock.ExpectGet(WorkoutsKey).SetVal(string(afterDelete))
	_, err = r.Get(ctx, 1)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateLookupUpdate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewUserRepo(db)
	r.now = func() time.Time { return fixedNow }
	ctx := context.Background()

	in := model.NewUser{Email: "ann@example.com", PasswordHash: "h", FirstName: "Ann", LastName: "Lee",
		WeeklyWorkoutGoal: 4, PrimaryGoal: "general"}
	ann := in.Build(1, fixedNow)
	doc := string(mustJSON(t, []model.User{ann}))

	mock.ExpectGet(UsersKey).RedisNil()
	mock.ExpectIncr(NextUserIDKey).SetVal(1)
	mock.ExpectSet(UsersKey, mustJSON(t, []model.User{ann}), 0).SetVal("OK")
	got, err := r.Create(ctx, in)
	require.NoError(t, err)
	require.Equal(t, ann, *got)

	mock.ExpectGet(UsersKey).SetVal(doc)
	dup := in
	dup.Email = "ANN@example.com"
	_, err = r.Create(ctx, dup)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	mock.ExpectGet(UsersKey).SetVal(doc)
	got, err = r.GetByEmail(ctx, "Ann@Example.com")
	require.NoError(t, err)
	require.Equal(t, int64(1), got.ID)

	mock.ExpectGet(UsersKey).SetVal(doc)
	_, err = r.GetByID(ctx, 2)
	require.ErrorIs(t, err, errs.ErrNotFound)

	updated := ann
	updated.WeeklyWorkoutGoal = 6
	updated.Weight = ptr(170.0)
	mock.ExpectGet(UsersKey).SetVal(doc)
	mock.ExpectSet(UsersKey, mustJSON(t, []model.User{updated}), 0).SetVal("OK")
	got, err = r.Update(ctx, 1, model.UserPatch{WeeklyWorkoutGoal: ptr(6), Weight: ptr(170.0)})
	require.NoError(t, err)
	require.Equal(t, updated, *got)

	mock.ExpectGet(UsersKey).SetVal(doc)
	_, err = r.Update(ctx, 9, model.UserPatch{})
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CorruptDocument_ReadsDegradeWritesFail(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewUserRepo(db)
	ctx := context.Background()

	ann := model.NewUser{Email: "ann@example.com", FirstName: "Ann", LastName: "Lee", WeeklyWorkoutGoal: 4}.Build(1, fixedNow)
	doc := `[` + string(mustJSON(t, ann)) + `,{"id":2,"email":""}]`

	mock.ExpectGet(UsersKey).SetVal(doc)
	got, err := r.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, ann, *got)

	mock.ExpectGet(UsersKey).SetVal(doc)
	_, err = r.Create(ctx, model.NewUser{Email: "bob@example.com", FirstName: "Bob", LastName: "Ray", WeeklyWorkoutGoal: 3})
	require.ErrorContains(t, err, "decode "+UsersKey)

	mock.ExpectGet(UsersKey).SetVal("{")
	_, err = r.Update(ctx, 1, model.UserPatch{WeeklyWorkoutGoal: ptr(6)})
	require.ErrorContains(t, err, "decode "+UsersKey)

	require.NoError(t, mock.ExpectationsWereMet())
}
