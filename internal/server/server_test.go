package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/logging"
	"taskflow/internal/recordstore"
	"taskflow/internal/recordstore/sqlstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store, err := sqlstore.Open(":memory:", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, opts, logging.Discard())
}

func doJSON(t *testing.T, s *Server, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func signed(t *testing.T, secret, project string, exp time.Time) http.Header {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		ProjectClaim: project,
		"exp":        exp.Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return http.Header{"Authorization": []string{"Bearer " + s}}
}

func TestHealthz(t *testing.T) {
	s := setupServer(t, Options{})
	rec := doJSON(t, s, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateFetchRoundTrip(t *testing.T) {
	s := setupServer(t, Options{})

	rec := doJSON(t, s, http.MethodPost, "/api/records/category", map[string]any{
		"records": []map[string]any{{"Name": "Work", "color": "#3B82F6", "icon": "Briefcase"}},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var created recordstore.MutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, created.Success)
	require.Len(t, created.Results, 1)
	assert.True(t, created.Results[0].Success)
	catID, ok := created.Results[0].Data.ID()
	require.True(t, ok)

	rec = doJSON(t, s, http.MethodPost, "/api/records/task", map[string]any{
		"records": []map[string]any{{"title": "Write report", "category_id": catID, "priority": "urgent"}},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/records/task/fetch", recordstore.FetchParams{
		Where: []recordstore.Condition{{FieldName: "title", Operator: recordstore.Contains, Values: []any{"report"}}},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched recordstore.FetchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.True(t, fetched.Success)
	assert.Equal(t, 1, fetched.Total)
	require.Len(t, fetched.Data, 1)
	assert.Equal(t, "Write report", fetched.Data[0]["title"])
}

func TestGetMissingRecord(t *testing.T) {
	s := setupServer(t, Options{})

	rec := doJSON(t, s, http.MethodGet, "/api/records/task/42", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp recordstore.GetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, recordstore.CodeNotFound, resp.Code)
}

func TestBadRequests(t *testing.T) {
	s := setupServer(t, Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"non numeric id", http.MethodGet, "/api/records/task/abc", nil},
		{"empty create", http.MethodPost, "/api/records/task", map[string]any{"records": []any{}}},
		{"missing records", http.MethodPut, "/api/records/task", map[string]any{}},
		{"empty delete", http.MethodDelete, "/api/records/task", map[string]any{"RecordIds": []int64{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestProjectToken(t *testing.T) {
	const secret = "s3cret"
	s := setupServer(t, Options{ProjectID: "proj-1", Secret: secret})
	path := "/api/records/category/fetch"
	future := time.Now().Add(time.Minute)

	rec := doJSON(t, s, http.MethodPost, path, recordstore.FetchParams{}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s, http.MethodPost, path, recordstore.FetchParams{}, signed(t, "other", "proj-1", future))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, s, http.MethodPost, path, recordstore.FetchParams{}, signed(t, secret, "proj-2", future))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, s, http.MethodPost, path, recordstore.FetchParams{}, signed(t, secret, "proj-1", time.Now().Add(-time.Minute)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, s, http.MethodPost, path, recordstore.FetchParams{}, signed(t, secret, "proj-1", future))
	assert.Equal(t, http.StatusOK, rec.Code)

	// healthz stays open
	rec = doJSON(t, s, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
