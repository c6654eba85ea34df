package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nuclear/internal/database"
	"nuclear/internal/models"
	"nuclear/internal/repository"
	"nuclear/internal/security"
	"nuclear/internal/service"
)

const testSecret = "test-secret"

type testServer struct {
	handler  http.Handler
	repos    *repository.Repositories
	verifier *security.TokenVerifier
	admin    string
	student  string
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := database.Initialize(filepath.Join(t.TempDir(), "nuclear.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(ctx, zap.NewNop()))

	log := zap.NewNop()
	repos := repository.New(db)
	api := NewAPI(repos, Services{
		Content: service.NewContentService(db, repos, log),
		Folders: service.NewFolderService(db, repos, log),
		Points:  service.NewPointsService(repos, nil, log),
		Backup:  service.NewBackupService(db, log),
		Reports: service.NewReportService(repos, log),
		Health:  service.NewHealthService(db, "test"),
	}, log)

	verifier := security.NewTokenVerifier(testSecret, "")
	limiter := security.NewLimiter(security.NewMemoryStore(ctx, time.Minute), rateLimit, time.Minute)
	mw := NewMiddleware(verifier, limiter, false, log)

	admin, err := verifier.Issue("admin-1", models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	student, err := verifier.Issue("student-1", models.RoleStudent, time.Hour)
	require.NoError(t, err)

	return &testServer{handler: api.Routes(mw), repos: repos, verifier: verifier, admin: admin, student: student}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createUser(t *testing.T, email string) models.User {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/users", s.admin, map[string]string{"email": email})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.User](t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, "test", body["environment"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, 100)
	s.do(t, http.MethodGet, "/api/health", "", nil)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nuclear_http_requests_total")
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t, 100)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{name: "missing token", token: "", want: http.StatusUnauthorized},
		{name: "garbage token", token: "nope", want: http.StatusUnauthorized},
		{name: "valid token", token: s.student, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/users", tt.token, nil)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestUserLifecycle(t *testing.T) {
	s := newTestServer(t, 100)
	user := s.createUser(t, "a@x.com")
	assert.Equal(t, models.RoleStudent, user.Role)

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/users", s.admin, map[string]string{"email": "A@x.com"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, decode[errorResponse](t, rec).Error, "email already exists")
	})

	t.Run("invalid input has field details", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/users", s.admin, map[string]string{"email": "bad", "mode": "GOD"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[errorResponse](t, rec)
		assert.Contains(t, body.Details, "email")
		assert.Contains(t, body.Details, "mode")
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/users", s.admin, `{"email":"b@x.com","password":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update changes only given fields", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/api/users/"+user.ID, s.admin, map[string]string{"name": "Ada"})
		require.Equal(t, http.StatusOK, rec.Code)
		updated := decode[models.User](t, rec)
		assert.Equal(t, "a@x.com", updated.Email)
		require.NotNil(t, updated.Name)
		assert.Equal(t, "Ada", *updated.Name)
	})

	t.Run("list paginates", func(t *testing.T) {
		s.createUser(t, "b@x.com")
		s.createUser(t, "c@x.com")

		rec := s.do(t, http.MethodGet, "/api/users?page=2&limit=2", s.student, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[struct {
			Users      []models.User `json:"users"`
			Pagination pagination    `json:"pagination"`
		}](t, rec)
		assert.Len(t, body.Users, 1)
		assert.Equal(t, pagination{Page: 2, Limit: 2, Total: 3, Pages: 2}, body.Pagination)
	})

	t.Run("bad page parameter", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/users?page=abc", s.student, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete requires admin", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/api/users/"+user.ID, s.student, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = s.do(t, http.MethodDelete, "/api/users/"+user.ID, s.admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]json.RawMessage](t, rec)
		assert.Contains(t, body, "message")
		assert.Contains(t, body, "user")

		rec = s.do(t, http.MethodGet, "/api/users/"+user.ID, s.student, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBlockRelationshipError(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(t, http.MethodPost, "/api/blocks", s.student, map[string]string{
		"title": "Fission", "content": "...", "authorId": "missing",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Details, "authorId")
}

func TestFolderRoutes(t *testing.T) {
	s := newTestServer(t, 100)
	user := s.createUser(t, "owner@x.com")

	create := func(name string, parentID *string) models.Folder {
		rec := s.do(t, http.MethodPost, "/api/folders", s.student, models.CreateFolderInput{Name: name, AuthorID: user.ID, ParentID: parentID})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decode[models.Folder](t, rec)
	}
	root := create("Root", nil)
	child := create("Child", &root.ID)

	rec := s.do(t, http.MethodGet, "/api/folders/"+root.ID+"/children", s.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	children := decode[map[string][]models.Folder](t, rec)["folders"]
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID)

	rec = s.do(t, http.MethodPut, "/api/folders/"+root.ID, s.student, map[string]string{"parentId": child.ID})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Details, "parentId")

	rec = s.do(t, http.MethodGet, "/api/folders/"+child.ID+"/path", s.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Root", "Child"}, decode[map[string][]string](t, rec)["path"])

	rec = s.do(t, http.MethodGet, "/api/folders/missing/children", s.student, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/folders/"+root.ID, s.student, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/folders/"+root.ID+"?force=true", s.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/folders/"+child.ID, s.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[models.Folder](t, rec).ParentID)
}

func TestPointsRoutes(t *testing.T) {
	s := newTestServer(t, 100)
	user := s.createUser(t, "learner@x.com")

	rec := s.do(t, http.MethodPost, "/api/blocks", s.student, models.CreateBlockInput{Title: "Decay", Content: "...", AuthorID: user.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	block := decode[models.Block](t, rec)

	rec = s.do(t, http.MethodGet, "/api/blocks/"+block.ID+"/points/latest", s.student, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, pts := range []int{10, 25} {
		rec := s.do(t, http.MethodPost, "/api/points-updates", s.student, models.CreatePointsUpdateInput{Points: pts, BlockID: &block.ID, UserID: &user.ID})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/points-updates", s.student, map[string]any{"points": -1, "blockId": block.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/blocks/"+block.ID+"/points/total", s.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 35, decode[map[string]any](t, rec)["total"])

	rec = s.do(t, http.MethodGet, "/api/blocks/"+block.ID+"/points?min=20", s.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]models.PointsUpdate](t, rec)["pointsUpdates"], 1)

	rec = s.do(t, http.MethodGet, "/api/blocks/"+block.ID+"/points?order=asc", s.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ordered := decode[map[string][]models.PointsUpdate](t, rec)["pointsUpdates"]
	require.Len(t, ordered, 2)
	assert.Equal(t, 10, ordered[0].Points)

	rec = s.do(t, http.MethodGet, "/api/blocks/"+block.ID+"/points?from=yesterday", s.student, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/"+user.ID+"/points", s.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 35, decode[map[string]any](t, rec)["total"])

	rec = s.do(t, http.MethodGet, "/api/blocks/"+block.ID+"/points/export", s.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestContentRoutes(t *testing.T) {
	s := newTestServer(t, 100)
	user := s.createUser(t, "author@x.com")

	rec := s.do(t, http.MethodGet, "/api/fill-in-the-blanks/random", s.student, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/blocks/with-content", s.student, map[string]any{
		"title":           "Reactors",
		"content":         "...",
		"authorId":        user.ID,
		"topics":          []map[string]string{{"name": "Nuclear fission"}, {"name": "Thermodynamics"}},
		"fillInTheBlanks": []map[string]string{{"sentence": "Graphite is a ___", "answer": "moderator"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[service.BlockContent](t, rec)
	require.Len(t, created.FillInTheBlanks, 1)
	fib := created.FillInTheBlanks[0]

	rec = s.do(t, http.MethodGet, "/api/topics/search?q=NUCLEAR", s.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	topics := decode[map[string][]models.Topic](t, rec)["topics"]
	require.Len(t, topics, 1)
	assert.Equal(t, "Nuclear fission", topics[0].Name)

	rec = s.do(t, http.MethodGet, "/api/topics/search", s.student, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/fill-in-the-blanks/random?blockId="+created.Block.ID, s.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fib.ID, decode[models.FillInTheBlank](t, rec).ID)

	rec = s.do(t, http.MethodPost, "/api/fill-in-the-blanks/"+fib.ID+"/check", s.student, map[string]string{"answer": " Moderator "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[map[string]bool](t, rec)["correct"])

	rec = s.do(t, http.MethodGet, "/api/blocks/"+created.Block.ID+"/overview", s.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[service.BlockOverview](t, rec)
	assert.Len(t, overview.Topics, 2)
	require.NotNil(t, overview.Author)
	assert.Equal(t, user.ID, overview.Author.ID)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := s.do(t, http.MethodPost, "/api/users", s.admin, map[string]string{"email": fmt.Sprintf("u%d@x.com", i)})
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	// reads are not limited
	rec := s.do(t, http.MethodGet, "/api/users", s.admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminExport(t *testing.T) {
	s := newTestServer(t, 100)
	s.createUser(t, "a@x.com")

	rec := s.do(t, http.MethodGet, "/api/admin/export", s.student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/export", s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	backup := decode[service.BackupData](t, rec)
	assert.Len(t, backup.Users, 1)
}
