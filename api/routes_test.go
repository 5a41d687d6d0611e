package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"tasklist/database"
	"tasklist/engine"
	"tasklist/handler"
	"tasklist/model"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	db, err := database.New(database.DriverSQLite, filepath.Join(t.TempDir(), "api.db"), logger)
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := httptest.NewServer(SetupRoutes(handler.NewHandler(db, engine.StrictnessStrict, logger)))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestCreateToggleDelete(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/tasks"

	resp := do(t, http.MethodPost, base, map[string]string{"title": "Buy milk", "dueDate": "2024-06-01", "priority": "high"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}
	var created model.Task
	decode(t, resp, &created)
	if created.Order != 1 || created.Priority != model.PriorityHigh || created.DueDate.String() != "2024-06-01" {
		t.Errorf("created = %+v", created)
	}

	resp = do(t, http.MethodPost, base, map[string]string{"title": "Walk dog"})
	var second model.Task
	decode(t, resp, &second)
	if second.Order != 2 || second.Priority != model.PriorityMedium {
		t.Errorf("second = %+v, want order 2 medium", second)
	}

	resp = do(t, http.MethodPatch, base+"/"+created.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PATCH status = %d", resp.StatusCode)
	}
	var toggled model.Task
	decode(t, resp, &toggled)
	if !toggled.Completed {
		t.Error("PATCH did not toggle completed")
	}

	resp = do(t, http.MethodDelete, base+"/"+created.ID, nil)
	var result map[string]interface{}
	decode(t, resp, &result)
	if result["success"] != true {
		t.Errorf("DELETE body = %v, want success true", result)
	}

	resp = do(t, http.MethodGet, base, nil)
	var tasks []model.Task
	decode(t, resp, &tasks)
	if len(tasks) != 1 || tasks[0].ID != second.ID {
		t.Errorf("tasks = %+v, want only second", tasks)
	}
}

func TestCreateValidation(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/tasks"

	do(t, http.MethodPost, base, map[string]string{"title": "Buy milk"})

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"empty", "  ", "Task title is required"},
		{"short", "ab", "Minimum 3 characters"},
		{"duplicate", "BUY MILK", "Duplicate task"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, base, map[string]string{"title": tt.title})
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			var body handler.Response
			decode(t, resp, &body)
			if body.Error == nil || body.Error.Code != "VALIDATION_ERROR" || body.Error.Message != tt.want {
				t.Errorf("error = %+v, want %q", body.Error, tt.want)
			}
		})
	}
}

func TestInvalidJSON(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/tasks", "application/json", bytes.NewBufferString("{"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t)
	for _, method := range []string{http.MethodPatch, http.MethodDelete} {
		resp := do(t, method, srv.URL+"/tasks/missing", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", method, resp.StatusCode)
		}
	}
	resp := do(t, http.MethodPut, srv.URL+"/tasks/missing", map[string]string{"title": "x"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("PUT status = %d, want 404", resp.StatusCode)
	}
}

func TestUpdateAndReorder(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/tasks"

	var tasks []model.Task
	for _, title := range []string{"Alpha", "Bravo", "Charlie"} {
		var created model.Task
		decode(t, do(t, http.MethodPost, base, map[string]string{"title": title}), &created)
		tasks = append(tasks, created)
	}

	resp := do(t, http.MethodPut, base+"/"+tasks[0].ID, map[string]string{"title": "  Alpha two "})
	var updated model.Task
	decode(t, resp, &updated)
	if updated.Title != "Alpha two" {
		t.Errorf("Title = %q, want Alpha two", updated.Title)
	}

	resp = do(t, http.MethodPut, base+"/"+tasks[0].ID, map[string]string{"title": " "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty PUT status = %d, want 400", resp.StatusCode)
	}

	reordered, _ := engine.Reorder(tasks, tasks[2].ID, tasks[0].ID)
	resp = do(t, http.MethodPost, base+"/reorder", map[string]interface{}{"tasks": reordered})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reorder status = %d", resp.StatusCode)
	}

	var listed []model.Task
	decode(t, do(t, http.MethodGet, base, nil), &listed)
	want := []string{tasks[2].ID, tasks[0].ID, tasks[1].ID}
	for i, task := range listed {
		if task.ID != want[i] || task.Order != i+1 {
			t.Errorf("listed[%d] = %s order %d, want %s order %d", i, task.Title, task.Order, want[i], i+1)
		}
	}
}

func TestStatsAndHealth(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/tasks"

	var a model.Task
	decode(t, do(t, http.MethodPost, base, map[string]string{"title": "Alpha"}), &a)
	do(t, http.MethodPost, base, map[string]string{"title": "Bravo"})
	do(t, http.MethodPatch, base+"/"+a.ID, nil)

	var stats engine.Stats
	decode(t, do(t, http.MethodGet, base+"/stats", nil), &stats)
	if stats.Total != 2 || stats.Completed != 1 || stats.Percent != 50 {
		t.Errorf("stats = %+v", stats)
	}

	resp := do(t, http.MethodGet, srv.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, http.MethodOptions, srv.URL+"/api/v1/tasks/abc", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("OPTIONS status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("missing Access-Control-Allow-Methods")
	}
}
