package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"nuclear/internal/apperr"
	"nuclear/internal/metrics"
	"nuclear/internal/repository"
	"nuclear/internal/service"
)

// API serves the JSON routes under /api
type API struct {
	repos   *repository.Repositories
	content *service.ContentService
	folders *service.FolderService
	points  *service.PointsService
	backup  *service.BackupService
	reports *service.ReportService
	health  *service.HealthService
	log     *zap.Logger
}

// Services groups what the API calls into
type Services struct {
	Content *service.ContentService
	Folders *service.FolderService
	Points  *service.PointsService
	Backup  *service.BackupService
	Reports *service.ReportService
	Health  *service.HealthService
}

func NewAPI(repos *repository.Repositories, svc Services, log *zap.Logger) *API {
	return &API{
		repos:   repos,
		content: svc.Content,
		folders: svc.Folders,
		points:  svc.Points,
		backup:  svc.Backup,
		reports: svc.Reports,
		health:  svc.Health,
		log:     log.Named("api"),
	}
}

// Routes registers every route and wraps the mux in the global middleware
func (a *API) Routes(mw *Middleware) http.Handler {
	mux := http.NewServeMux()
	auth := mw.RequireAuth
	write := func(h http.HandlerFunc) http.HandlerFunc { return mw.RateLimit(mw.RequireAuth(h)) }

	mux.HandleFunc("GET /api/health", a.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	// users
	mux.HandleFunc("GET /api/users", auth(listItems(a, "users", a.repos.Users.List)))
	mux.HandleFunc("POST /api/users", write(createItem(a, a.repos.Users.Create)))
	mux.HandleFunc("GET /api/users/{id}", auth(getItem(a, a.repos.Users.MustGetByID)))
	mux.HandleFunc("PUT /api/users/{id}", write(updateItem(a, a.repos.Users.Update)))
	mux.HandleFunc("DELETE /api/users/{id}", mw.RateLimit(mw.RequireAdmin(deleteItem(a, "user", a.repos.Users.Delete))))
	mux.HandleFunc("GET /api/users/{id}/blocks", auth(related(a, "user", "blocks", a.repos.Users.Exists, a.repos.Users.GetBlocks)))
	mux.HandleFunc("GET /api/users/{id}/folders", auth(related(a, "user", "folders", a.repos.Users.Exists, a.repos.Users.GetFolders)))
	mux.HandleFunc("GET /api/users/{id}/points", auth(a.UserPoints))

	// blocks
	mux.HandleFunc("GET /api/blocks", auth(listItems(a, "blocks", a.repos.Blocks.List)))
	mux.HandleFunc("POST /api/blocks", write(createItem(a, a.repos.Blocks.Create)))
	mux.HandleFunc("POST /api/blocks/with-content", write(createItem(a, a.content.CreateBlockWithContent)))
	mux.HandleFunc("GET /api/blocks/{id}", auth(getItem(a, a.repos.Blocks.MustGetByID)))
	mux.HandleFunc("PUT /api/blocks/{id}", write(updateItem(a, a.repos.Blocks.Update)))
	mux.HandleFunc("DELETE /api/blocks/{id}", write(deleteItem(a, "block", a.repos.Blocks.Delete)))
	mux.HandleFunc("GET /api/blocks/{id}/overview", auth(getItem(a, a.content.GetBlockOverview)))
	mux.HandleFunc("GET /api/blocks/{id}/points", auth(a.BlockPoints))
	mux.HandleFunc("GET /api/blocks/{id}/points/total", auth(a.BlockPointsTotal))
	mux.HandleFunc("GET /api/blocks/{id}/points/latest", auth(a.BlockPointsLatest))
	mux.HandleFunc("GET /api/blocks/{id}/points/export", auth(a.BlockPointsExport))

	// folders
	mux.HandleFunc("GET /api/folders", auth(listItems(a, "folders", a.repos.Folders.List)))
	mux.HandleFunc("POST /api/folders", write(createItem(a, a.repos.Folders.Create)))
	mux.HandleFunc("GET /api/folders/{id}", auth(getItem(a, a.repos.Folders.MustGetByID)))
	mux.HandleFunc("PUT /api/folders/{id}", write(updateItem(a, a.repos.Folders.Update)))
	mux.HandleFunc("DELETE /api/folders/{id}", write(a.DeleteFolder))
	mux.HandleFunc("GET /api/folders/{id}/children", auth(related(a, "folder", "folders", a.repos.Folders.Exists, a.repos.Folders.GetChildren)))
	mux.HandleFunc("GET /api/folders/{id}/blocks", auth(related(a, "folder", "blocks", a.repos.Folders.Exists, a.repos.Folders.GetBlocks)))
	mux.HandleFunc("GET /api/folders/{id}/path", auth(related(a, "folder", "path", a.repos.Folders.Exists, a.repos.Folders.GetPath)))

	// quizzes
	mux.HandleFunc("GET /api/quizzes", auth(listItems(a, "quizzes", a.repos.Quizzes.List)))
	mux.HandleFunc("POST /api/quizzes", write(createItem(a, a.repos.Quizzes.Create)))
	mux.HandleFunc("GET /api/quizzes/{id}", auth(getItem(a, a.repos.Quizzes.MustGetByID)))
	mux.HandleFunc("PUT /api/quizzes/{id}", write(updateItem(a, a.repos.Quizzes.Update)))
	mux.HandleFunc("DELETE /api/quizzes/{id}", write(deleteItem(a, "quiz", a.repos.Quizzes.Delete)))

	// questions
	mux.HandleFunc("GET /api/questions", auth(listItems(a, "questions", a.repos.Questions.List)))
	mux.HandleFunc("POST /api/questions", write(createItem(a, a.repos.Questions.Create)))
	mux.HandleFunc("GET /api/questions/{id}", auth(getItem(a, a.repos.Questions.MustGetByID)))
	mux.HandleFunc("PUT /api/questions/{id}", write(updateItem(a, a.repos.Questions.Update)))
	mux.HandleFunc("DELETE /api/questions/{id}", write(deleteItem(a, "question", a.repos.Questions.Delete)))

	// topics
	mux.HandleFunc("GET /api/topics", auth(listItems(a, "topics", a.repos.Topics.List)))
	mux.HandleFunc("POST /api/topics", write(createItem(a, a.repos.Topics.Create)))
	mux.HandleFunc("GET /api/topics/search", auth(search(a, "topics", a.repos.Topics.SearchByName)))
	mux.HandleFunc("GET /api/topics/random", auth(random(a, "topic", a.repos.Topics.GetRandom, a.repos.Topics.GetRandomByBlock)))
	mux.HandleFunc("GET /api/topics/{id}", auth(getItem(a, a.repos.Topics.MustGetByID)))
	mux.HandleFunc("PUT /api/topics/{id}", write(updateItem(a, a.repos.Topics.Update)))
	mux.HandleFunc("DELETE /api/topics/{id}", write(deleteItem(a, "topic", a.repos.Topics.Delete)))

	// fill-in-the-blanks
	mux.HandleFunc("GET /api/fill-in-the-blanks", auth(listItems(a, "fillInTheBlanks", a.repos.FillInTheBlanks.List)))
	mux.HandleFunc("POST /api/fill-in-the-blanks", write(createItem(a, a.repos.FillInTheBlanks.Create)))
	mux.HandleFunc("GET /api/fill-in-the-blanks/random", auth(random(a, "fillInTheBlank", a.repos.FillInTheBlanks.GetRandom, a.repos.FillInTheBlanks.GetRandomByBlock)))
	mux.HandleFunc("GET /api/fill-in-the-blanks/{id}", auth(getItem(a, a.repos.FillInTheBlanks.MustGetByID)))
	mux.HandleFunc("PUT /api/fill-in-the-blanks/{id}", write(updateItem(a, a.repos.FillInTheBlanks.Update)))
	mux.HandleFunc("DELETE /api/fill-in-the-blanks/{id}", write(deleteItem(a, "fillInTheBlank", a.repos.FillInTheBlanks.Delete)))
	mux.HandleFunc("POST /api/fill-in-the-blanks/{id}/check", auth(a.CheckAnswer))

	// points updates
	mux.HandleFunc("GET /api/points-updates", auth(listItems(a, "pointsUpdates", a.repos.PointsUpdates.List)))
	mux.HandleFunc("POST /api/points-updates", write(createItem(a, a.points.Award)))
	mux.HandleFunc("GET /api/points-updates/{id}", auth(getItem(a, a.repos.PointsUpdates.MustGetByID)))
	mux.HandleFunc("PUT /api/points-updates/{id}", write(updateItem(a, a.repos.PointsUpdates.Update)))
	mux.HandleFunc("DELETE /api/points-updates/{id}", write(deleteItem(a, "pointsUpdate", a.repos.PointsUpdates.Delete)))

	// admin
	mux.HandleFunc("GET /api/admin/export", mw.RequireAdmin(a.ExportBackup))

	return mw.Logging(mw.Recover(mux))
}

func listItems[T any](a *API, key string, list func(context.Context, repository.ListOptions) ([]T, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := listOptions(r)
		if err != nil {
			respondWithError(w, r, a.log, err)
			return
		}
		items, total, err := list(r.Context(), opts)
		if err != nil {
			respondWithError(w, r, a.log, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			key:          items,
			"pagination": newPagination(opts, total),
		})
	}
}

func getItem[T any](a *API, get func(context.Context, string) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := get(r.Context(), r.PathValue("id"))
		if err != nil {
			respondWithError(w, r, a.log, err)
			return
		}
		respondJSON(w, http.StatusOK, item)
	}
}

func createItem[In, T any](a *API, create func(context.Context, In) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := decodeJSON(w, r, &in); err != nil {
			respondWithError(w, r, a.log, err)
			return
		}
		item, err := create(r.Context(), in)
		if err != nil {
			respondWithError(w, r, a.log, err)
			return
		}
		respondJSON(w, http.StatusCreated, item)
	}
}

func updateItem[In, T any](a *API, update func(context.Context, string, In) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := decodeJSON(w, r, &in); err != nil {
			respondWithError(w, r, a.log, err)
			return
		}
		item, err := update(r.Context(), r.PathValue("id"), in)
		if err != nil {
			respondWithError(w, r, a.log, err)
			return
		}
		respondJSON(w, http.StatusOK, item)
	}
}

func deleteItem[T any](a *API, key string, del func(context.Context, string) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := del(r.Context(), r.PathValue("id"))
		if err != nil {
			respondWithError(w, r, a.log, err)
			return
		}
		respondDeleted(w, key, item)
	}
}

func mustExist(ctx context.Context, entity, id string, exists func(context.Context, string) (bool, error)) error {
	ok, err := exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound(entity, id)
	}
	return nil
}

func respondDeleted(w http.ResponseWriter, key string, item any) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": key + " deleted successfully",
		key:       item,
	})
}

// related serves a relationship accessor keyed by the path id. The owning
// row must exist.
func related[T any](a *API, entity, key string, exists func(context.Context, string) (bool, error), get func(context.Context, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := mustExist(r.Context(), entity, id, exists); err != nil {
			respondWithError(w, r, a.log, err)
			return
		}
		items, err := get(r.Context(), id)
		if err != nil {
			respondWithError(w, r, a.log, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{key: items})
	}
}
