package sqlstore

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/recordstore"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createOne(t *testing.T, s *Store, kind recordstore.Kind, rec recordstore.Record) recordstore.Record {
	t.Helper()
	resp, err := s.CreateRecord(context.Background(), kind, recordstore.CreateParams{Records: []recordstore.Record{rec}})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Len(t, resp.Results, 1)
	require.True(t, resp.Results[0].Success, "create rejected: %+v", resp.Results[0])
	return resp.Results[0].Data
}

func ids(records []recordstore.Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		id, _ := r.ID()
		out = append(out, id)
	}
	return out
}

func TestCreateAndGetTask(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cat := createOne(t, s, recordstore.KindCategory, recordstore.Record{"Name": "Home", "color": "#10B981", "icon": "Home"})
	catID, ok := cat.ID()
	require.True(t, ok)

	task := createOne(t, s, recordstore.KindTask, recordstore.Record{
		"title":       "Buy milk",
		"description": "2 litres",
		"category_id": catID,
		"priority":    "high",
		"due_date":    "2026-10-20",
		"created_at":  "2026-10-15T09:00:00Z",
		"updated_at":  "2026-10-15T09:00:00Z",
	})
	taskID, ok := task.ID()
	require.True(t, ok)

	resp, err := s.GetRecordByID(ctx, recordstore.KindTask, taskID, recordstore.GetParams{})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "Buy milk", resp.Data["title"])
	assert.Equal(t, "high", resp.Data["priority"])
	assert.Equal(t, "2026-10-20", resp.Data["due_date"])
	assert.Equal(t, false, resp.Data["completed"])
	assert.Equal(t, "2026-10-15T09:00:00Z", resp.Data["created_at"])
	assert.Equal(t, map[string]any{"Id": catID, "Name": "Home"}, resp.Data["category_id"])

	selected, err := s.GetRecordByID(ctx, recordstore.KindTask, taskID, recordstore.GetParams{Fields: []string{"title"}})
	require.NoError(t, err)
	assert.Equal(t, recordstore.Record{"Id": taskID, "title": "Buy milk"}, selected.Data)
}

func TestGetMissingRecord(t *testing.T) {
	s := setupTestStore(t)

	resp, err := s.GetRecordByID(context.Background(), recordstore.KindTask, 99, recordstore.GetParams{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "does not exist")
}

func TestUnknownKind(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	fetch, err := s.FetchRecords(ctx, "project", recordstore.FetchParams{})
	require.NoError(t, err)
	assert.False(t, fetch.Success)

	del, err := s.DeleteRecord(ctx, "project", recordstore.DeleteParams{RecordIDs: []int64{1}})
	require.NoError(t, err)
	assert.False(t, del.Success)
}

func TestCreateValidation(t *testing.T) {
	s := setupTestStore(t)

	resp, err := s.CreateRecord(context.Background(), recordstore.KindTask, recordstore.CreateParams{Records: []recordstore.Record{
		{"title": "No category"},
		{"title": "Bad priority", "category_id": 1, "priority": "someday"},
		{"title": "Fine", "category_id": 1},
	}})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Len(t, resp.Results, 3)

	assert.False(t, resp.Results[0].Success)
	assert.Equal(t, recordstore.CodeValidation, resp.Results[0].Code)
	assert.Equal(t, "category_id", resp.Results[0].Errors[0].FieldLabel)

	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, "priority", resp.Results[1].Errors[0].FieldLabel)

	assert.True(t, resp.Results[2].Success)
	assert.Equal(t, "medium", resp.Results[2].Data["priority"])
	// Category 1 does not exist, so the reference comes back as a raw id.
	assert.Equal(t, int64(1), resp.Results[2].Data["category_id"])
}

func TestFetchWhereAndOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createOne(t, s, recordstore.KindTask, recordstore.Record{"title": "Buy milk", "category_id": 1, "priority": "low", "due_date": "2026-10-01"})
	createOne(t, s, recordstore.KindTask, recordstore.Record{"title": "Walk dog", "category_id": 2, "priority": "urgent", "description": "Around the MILK bar"})
	createOne(t, s, recordstore.KindTask, recordstore.Record{"title": "Pay rent", "category_id": 1, "completed": true, "due_date": "2026-09-01"})

	t.Run("equal", func(t *testing.T) {
		resp, err := s.FetchRecords(ctx, recordstore.KindTask, recordstore.FetchParams{
			Where: []recordstore.Condition{{FieldName: "category_id", Operator: recordstore.EqualTo, Values: []any{float64(1)}}},
		})
		require.NoError(t, err)
		require.True(t, resp.Success)
		assert.Equal(t, []int64{1, 3}, ids(resp.Data))
		assert.Equal(t, 2, resp.Total)
	})

	t.Run("contains is case insensitive", func(t *testing.T) {
		resp, err := s.FetchRecords(ctx, recordstore.KindTask, recordstore.FetchParams{
			WhereGroups: []recordstore.ConditionGroup{{
				Operator: recordstore.Or,
				SubGroups: []recordstore.SubGroup{
					{Conditions: []recordstore.Condition{{FieldName: "title", Operator: recordstore.Contains, Values: []any{"milk"}}}},
					{Conditions: []recordstore.Condition{{FieldName: "description", Operator: recordstore.Contains, Values: []any{"milk"}}}},
				},
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids(resp.Data))
	})

	t.Run("less than with and", func(t *testing.T) {
		resp, err := s.FetchRecords(ctx, recordstore.KindTask, recordstore.FetchParams{
			Where: []recordstore.Condition{
				{FieldName: "due_date", Operator: recordstore.LessThan, Values: []any{"2026-10-15"}},
				{FieldName: "completed", Operator: recordstore.EqualTo, Values: []any{false}},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids(resp.Data))
	})

	t.Run("order and paging", func(t *testing.T) {
		resp, err := s.FetchRecords(ctx, recordstore.KindTask, recordstore.FetchParams{
			OrderBy: []recordstore.OrderBy{{FieldName: "Id", SortType: recordstore.Desc}},
			Paging:  &recordstore.Paging{Limit: 2},
			Fields:  []string{"title"},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 2}, ids(resp.Data))
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, recordstore.Record{"Id": int64(3), "title": "Pay rent"}, resp.Data[0])
	})

	t.Run("unknown field", func(t *testing.T) {
		resp, err := s.FetchRecords(ctx, recordstore.KindTask, recordstore.FetchParams{
			Where: []recordstore.Condition{{FieldName: "owner", Operator: recordstore.EqualTo, Values: []any{"me"}}},
		})
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Message, "owner")
	})
}

func containsTitle(t *testing.T, s *Store, needle string) []int64 {
	t.Helper()
	resp, err := s.FetchRecords(context.Background(), recordstore.KindTask, recordstore.FetchParams{
		Where: []recordstore.Condition{{FieldName: "title", Operator: recordstore.Contains, Values: []any{needle}}},
	})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Message)
	return ids(resp.Data)
}

func TestContainsFoldsUnicodeAndMatchesLiterally(t *testing.T) {
	s := setupTestStore(t)

	createOne(t, s, recordstore.KindTask, recordstore.Record{"title": "Купить МОЛОКО", "category_id": 1})
	createOne(t, s, recordstore.KindTask, recordstore.Record{"title": "100 percent", "category_id": 1})
	createOne(t, s, recordstore.KindTask, recordstore.Record{"title": "axb", "category_id": 1})
	createOne(t, s, recordstore.KindTask, recordstore.Record{"title": "a_b", "category_id": 1})
	createOne(t, s, recordstore.KindTask, recordstore.Record{"title": "50% off", "category_id": 1})
	createOne(t, s, recordstore.KindTask, recordstore.Record{"title": `C:\tmp`, "category_id": 1})

	assert.Equal(t, []int64{1}, containsTitle(t, s, "молоко"))
	assert.Equal(t, []int64{1}, containsTitle(t, s, "купить мол"))
	assert.Empty(t, containsTitle(t, s, "100%"))
	assert.Equal(t, []int64{4}, containsTitle(t, s, "a_b"))
	assert.Equal(t, []int64{5}, containsTitle(t, s, "%"))
	assert.Equal(t, []int64{6}, containsTitle(t, s, `c:\`))

	cat := createOne(t, s, recordstore.KindCategory, recordstore.Record{"Name": "Работа"})
	resp, err := s.FetchRecords(context.Background(), recordstore.KindCategory, recordstore.FetchParams{
		Where: []recordstore.Condition{{FieldName: "Name", Operator: recordstore.Contains, Values: []any{"РАБ"}}},
	})
	require.NoError(t, err)
	catID, _ := cat.ID()
	assert.Equal(t, []int64{catID}, ids(resp.Data))
}

func TestContainsFollowsUpdates(t *testing.T) {
	s := setupTestStore(t)
	createOne(t, s, recordstore.KindTask, recordstore.Record{"title": "Черновик", "category_id": 1})

	resp, err := s.UpdateRecord(context.Background(), recordstore.KindTask, recordstore.UpdateParams{
		Records: []recordstore.Record{{"Id": int64(1), "title": "Отчёт"}},
	})
	require.NoError(t, err)
	require.True(t, resp.Results[0].Success)

	assert.Empty(t, containsTitle(t, s, "черновик"))
	assert.Equal(t, []int64{1}, containsTitle(t, s, "ОТЧЁТ"))
}

func TestBackfillFolds(t *testing.T) {
	s := setupTestStore(t)
	createOne(t, s, recordstore.KindTask, recordstore.Record{"title": "Позвонить МАМЕ", "category_id": 1})
	require.NoError(t, s.db.Exec("UPDATE tasks SET title_fold = NULL, description_fold = NULL").Error)
	assert.Empty(t, containsTitle(t, s, "маме"))

	require.NoError(t, backfillFolds(s.db))
	assert.Equal(t, []int64{1}, containsTitle(t, s, "маме"))
}

func TestUpdateRecord(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createOne(t, s, recordstore.KindTask, recordstore.Record{"title": "Buy milk", "category_id": 1})

	resp, err := s.UpdateRecord(ctx, recordstore.KindTask, recordstore.UpdateParams{Records: []recordstore.Record{
		{"Id": float64(1), "completed": true, "priority": "urgent"},
		{"Id": 42, "title": "ghost"},
		{"title": "no id"},
		{"Id": 1, "title": "  "},
	}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 4)

	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, true, resp.Results[0].Data["completed"])
	assert.Equal(t, "Buy milk", resp.Results[0].Data["title"], "fields not sent are kept")

	assert.Equal(t, recordstore.CodeNotFound, resp.Results[1].Code)
	assert.Equal(t, recordstore.CodeValidation, resp.Results[2].Code)
	assert.Equal(t, recordstore.CodeValidation, resp.Results[3].Code)

	get, err := s.GetRecordByID(ctx, recordstore.KindTask, 1, recordstore.GetParams{})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", get.Data["title"], "rejected update must not persist")
}

func TestDeleteRecord(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createOne(t, s, recordstore.KindCategory, recordstore.Record{"Name": "Work"})

	resp, err := s.DeleteRecord(ctx, recordstore.KindCategory, recordstore.DeleteParams{RecordIDs: []int64{1, 2}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, recordstore.CodeNotFound, resp.Results[1].Code)

	fetch, err := s.FetchRecords(ctx, recordstore.KindCategory, recordstore.FetchParams{})
	require.NoError(t, err)
	assert.Empty(t, fetch.Data)
}

func TestCategoryTaskCount(t *testing.T) {
	s := setupTestStore(t)

	createOne(t, s, recordstore.KindCategory, recordstore.Record{"Name": "Work"})
	resp, err := s.UpdateRecord(context.Background(), recordstore.KindCategory, recordstore.UpdateParams{Records: []recordstore.Record{
		{"Id": 1, "task_count": float64(3)},
		{"Id": 1, "task_count": -1},
	}})
	require.NoError(t, err)
	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, 3, resp.Results[0].Data["task_count"])
	assert.False(t, resp.Results[1].Success)
}

func TestEnsureDirForSQLite(t *testing.T) {
	assert.NoError(t, ensureDirForSQLite(":memory:"))
	assert.NoError(t, ensureDirForSQLite("file::memory:?cache=shared"))

	dir := t.TempDir()
	assert.NoError(t, ensureDirForSQLite("file:"+dir+"/nested/db.sqlite?_fk=1"))
	assert.DirExists(t, dir+"/nested")
}
