package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"example.com/taskapi/internal/domain"
	"example.com/taskapi/internal/storage"
	"example.com/taskapi/internal/usecase"
	"example.com/taskapi/pkg/response"
)

type Service interface {
	Create(in domain.TaskInput) (domain.Task, error)
	List(page domain.Page) ([]domain.Task, error)
	Get(id int64) (domain.Task, error)
	Update(id int64, in domain.TaskInput) (domain.Task, error)
	Delete(id int64) error
}

type Options struct {
	// DefaultLimit applies when a list request has no limit; 0 lists everything.
	DefaultLimit   int
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type Handler struct {
	mux  *http.ServeMux
	svc  Service
	opts Options
	log  *slog.Logger
}

func New(svc Service, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Handler{
		mux:  http.NewServeMux(),
		svc:  svc,
		opts: opts,
		log:  opts.Logger,
	}
	h.routes()
	return chain(h.mux, requestID, accessLog(h.log), recoverer(h.log))
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /{$}", h.root)
	h.mux.HandleFunc("GET /health", h.health)
	h.mux.HandleFunc("GET /tasks", h.tasks)
	h.mux.HandleFunc("POST /tasks", h.createTask)
	h.mux.HandleFunc("POST /tasks/upload", h.uploadTaskFile)
	h.mux.HandleFunc("GET /tasks/{id}", h.task)
	h.mux.HandleFunc("PUT /tasks/{id}", h.updateTask)
	h.mux.HandleFunc("DELETE /tasks/{id}", h.deleteTask)
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"message": "Task service is running"})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) tasks(w http.ResponseWriter, r *http.Request) {
	page := domain.Page{Limit: h.opts.DefaultLimit}
	if h.opts.DefaultLimit <= 0 {
		page.Limit = domain.NoLimit
	}
	var err error
	if page.Skip, err = parseNonNegativeQuery(r, "skip", 0); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if page.Limit, err = parseNonNegativeQuery(r, "limit", page.Limit); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	items, err := h.svc.List(page)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *Handler) task(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.Get(id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var req domain.TaskInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.Create(req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, item)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req domain.TaskInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	item, err := h.svc.Update(id, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.svc.Delete(id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

// writeServiceError is the single place errors become status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *usecase.ValidationError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		response.JSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": verr.Fields})
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, usecase.ErrInvalidUpload):
		writeError(w, http.StatusBadRequest, "Only CSV files are allowed")
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
	default:
		h.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFrom(r.Context()),
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return usecase.NewValidationError([]string{"body"}, "JSON decode error: "+err.Error(), "json_invalid")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return usecase.NewValidationError([]string{"body"}, "JSON decode error: extra data", "json_invalid")
	}
	return nil
}

func parseID(r *http.Request) (int64, error) {
	id, err := parseInt(r.PathValue("id"))
	if err != nil {
		return 0, usecase.NewValidationError([]string{"path", "id"}, "Input should be a valid integer", "int_parsing")
	}
	return id, nil
}

func parseNonNegativeQuery(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v64, err := parseInt(raw)
	v := int(v64)
	if err != nil || int64(v) != v64 {
		return 0, usecase.NewValidationError([]string{"query", key}, "Input should be a valid integer", "int_parsing")
	}
	if v < 0 {
		return 0, usecase.NewValidationError([]string{"query", key}, "Input should be greater than or equal to 0", "greater_than_equal")
	}
	return v, nil
}

// parseInt is strconv.ParseInt without the leading '+' it tolerates.
func parseInt(s string) (int64, error) {
	if strings.HasPrefix(s, "+") {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(s, 10, 64)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	response.JSON(w, code, map[string]string{"detail": msg})
}
