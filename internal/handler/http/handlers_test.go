package httpx

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"example.com/taskapi/internal/domain"
	"example.com/taskapi/internal/storage/memory"
	"example.com/taskapi/internal/usecase"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return New(usecase.NewTaskService(memory.New()), Options{DefaultLimit: 10, MaxUploadBytes: 1 << 20})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestRootAndHealth(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("root: expected 200, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if diff := cmp.Diff(map[string]string{"status": "ok"}, decode[map[string]string](t, rec)); diff != "" {
		t.Fatalf("health body mismatch (-want +got):\n%s", diff)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected %s header", requestIDHeader)
	}
}

func TestTaskLifecycle(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/tasks", `{"title":"Buy milk"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"description":null`) {
		t.Fatalf("expected null description, got %s", rec.Body)
	}
	milk := decode[domain.Task](t, rec)
	if diff := cmp.Diff(domain.Task{ID: 1, Title: "Buy milk"}, milk); diff != "" {
		t.Fatalf("create mismatch (-want +got):\n%s", diff)
	}

	rec = do(t, h, http.MethodPost, "/tasks", `{"title":"Walk dog","description":"twice"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}
	dog := decode[domain.Task](t, rec)
	if dog.ID != 2 {
		t.Fatalf("expected id 2, got %d", dog.ID)
	}

	rec = do(t, h, http.MethodPut, "/tasks/2", `{"title":"Walk the dog"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if diff := cmp.Diff(domain.Task{ID: 2, Title: "Walk the dog"}, decode[domain.Task](t, rec)); diff != "" {
		t.Fatalf("update mismatch (-want +got):\n%s", diff)
	}

	rec = do(t, h, http.MethodDelete, "/tasks/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if diff := cmp.Diff(map[string]string{"message": "Task deleted successfully"}, decode[map[string]string](t, rec)); diff != "" {
		t.Fatalf("delete body mismatch (-want +got):\n%s", diff)
	}

	rec = do(t, h, http.MethodGet, "/tasks/1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", rec.Code)
	}
	if diff := cmp.Diff(map[string]string{"detail": "Task not found"}, decode[map[string]string](t, rec)); diff != "" {
		t.Fatalf("not found body mismatch (-want +got):\n%s", diff)
	}

	rec = do(t, h, http.MethodGet, "/tasks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	items := decode[[]domain.Task](t, rec)
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("expected only task 2, got %+v", items)
	}
}

func TestListTasks_Pagination(t *testing.T) {
	h := newTestHandler(t)
	for _, title := range []string{"one", "two", "three", "four", "five"} {
		if rec := do(t, h, http.MethodPost, "/tasks", `{"title":"`+title+`"}`); rec.Code != http.StatusCreated {
			t.Fatalf("create %s: %d", title, rec.Code)
		}
	}
	cases := []struct {
		query string
		want  []string
	}{
		{"?skip=2&limit=2", []string{"three", "four"}},
		{"?skip=10&limit=5", []string{}},
		{"?limit=1", []string{"one"}},
		{"", []string{"one", "two", "three", "four", "five"}},
	}
	for _, tc := range cases {
		rec := do(t, h, http.MethodGet, "/tasks"+tc.query, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.query, rec.Code)
		}
		got := []string{}
		for _, it := range decode[[]domain.Task](t, rec) {
			got = append(got, it.Title)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", tc.query, diff)
		}
	}
	for _, q := range []string{"?skip=-1", "?limit=abc", "?limit=-5", "?skip=%2B1"} {
		if rec := do(t, h, http.MethodGet, "/tasks"+q, ""); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", q, rec.Code)
		}
	}
}

func TestCreateTask_ValidationErrors(t *testing.T) {
	h := newTestHandler(t)
	cases := []struct {
		name string
		body string
		loc  []string
	}{
		{"short title", `{"title":"ab"}`, []string{"body", "title"}},
		{"blank title", `{"title":"     "}`, []string{"body", "title"}},
		{"missing title", `{"description":"x"}`, []string{"body", "title"}},
		{"long description", `{"title":"abc","description":"` + strings.Repeat("d", 501) + `"}`, []string{"body", "description"}},
		{"malformed json", `{"title":`, []string{"body"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/tasks", tc.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body)
			}
			body := decode[struct {
				Detail []usecase.FieldError `json:"detail"`
			}](t, rec)
			if len(body.Detail) != 1 {
				t.Fatalf("expected one detail entry, got %+v", body.Detail)
			}
			if diff := cmp.Diff(tc.loc, body.Detail[0].Loc); diff != "" {
				t.Fatalf("loc mismatch (-want +got):\n%s", diff)
			}
		})
	}
	rec := do(t, h, http.MethodGet, "/tasks", "")
	if items := decode[[]domain.Task](t, rec); len(items) != 0 {
		t.Fatalf("expected no tasks after failed creates, got %+v", items)
	}
}

func TestTaskByID_BadAndMissingIDs(t *testing.T) {
	h := newTestHandler(t)
	cases := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodGet, "/tasks/0", "", http.StatusUnprocessableEntity},
		{http.MethodGet, "/tasks/-3", "", http.StatusUnprocessableEntity},
		{http.MethodGet, "/tasks/abc", "", http.StatusUnprocessableEntity},
		{http.MethodGet, "/tasks/%2B1", "", http.StatusUnprocessableEntity},
		{http.MethodDelete, "/tasks/%2B1", "", http.StatusUnprocessableEntity},
		{http.MethodGet, "/tasks/7", "", http.StatusNotFound},
		{http.MethodPut, "/tasks/7", `{"title":"valid"}`, http.StatusNotFound},
		{http.MethodDelete, "/tasks/7", "", http.StatusNotFound},
		{http.MethodPut, "/tasks/7", `{"title":"no"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		if rec := do(t, h, tc.method, tc.target, tc.body); rec.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.target, tc.want, rec.Code)
		}
	}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadTaskFile(t *testing.T) {
	h := newTestHandler(t)
	body, ct := multipartBody(t, "file", "data.csv", bytes.Repeat([]byte("a"), 120))
	req := httptest.NewRequest(http.MethodPost, "/tasks/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	want := domain.UploadSummary{Filename: "data.csv", ContentType: "application/octet-stream", SizeInBytes: 120}
	if diff := cmp.Diff(want, decode[domain.UploadSummary](t, rec)); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	list := do(t, h, http.MethodGet, "/tasks", "")
	if items := decode[[]domain.Task](t, list); len(items) != 0 {
		t.Fatalf("upload must not create tasks, got %+v", items)
	}
}

func TestUploadTaskFile_Rejections(t *testing.T) {
	h := newTestHandler(t)
	cases := []struct {
		name, field, filename string
		want                  int
	}{
		{"txt extension", "file", "data.txt", http.StatusBadRequest},
		{"upper-case extension", "file", "data.CSV", http.StatusBadRequest},
		{"missing file field", "attachment", "data.csv", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartBody(t, tc.field, tc.filename, []byte("a,b\n1,2\n"))
			req := httptest.NewRequest(http.MethodPost, "/tasks/upload", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body)
			}
		})
	}

	rec := do(t, h, http.MethodPost, "/tasks/upload", `{"file":"data.csv"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("non-multipart: expected 422, got %d", rec.Code)
	}
}

func TestUploadTaskFile_TooLarge(t *testing.T) {
	h := New(usecase.NewTaskService(memory.New()), Options{DefaultLimit: 10, MaxUploadBytes: 1024})
	body, ct := multipartBody(t, "file", "big.csv", bytes.Repeat([]byte("a"), 10*1024))
	req := httptest.NewRequest(http.MethodPost, "/tasks/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body)
	}
	if diff := cmp.Diff(map[string]string{"detail": "Upload too large"}, decode[map[string]string](t, rec)); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestID_EchoesClientValue(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

type panicService struct{ Service }

func (panicService) List(domain.Page) ([]domain.Task, error) { panic("boom") }

func TestRecoverer_TurnsPanicInto500(t *testing.T) {
	h := New(panicService{}, Options{DefaultLimit: 10})
	rec := do(t, h, http.MethodGet, "/tasks", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if diff := cmp.Diff(map[string]string{"detail": "Internal Server Error"}, decode[map[string]string](t, rec)); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}
