package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"client-signal-tracker/handlers"
	"client-signal-tracker/models"

	"github.com/gin-gonic/gin"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := models.NewSQLiteRepository(filepath.Join(t.TempDir(), "clients.db"))
	if err != nil {
		t.Fatalf("Failed to open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	h := handlers.NewClientHandler(repo, nil, nil, nil)

	router := gin.New()
	api := router.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/clients", h.ListClients)
		api.POST("/clients", h.CreateClient)
		api.GET("/clients/search", h.SearchClients)
		api.PUT("/clients/:id", h.UpdateClient)
		api.DELETE("/clients/:id", h.DeleteClient)
		api.POST("/reset-db", h.ResetDB)
		api.GET("/export-csv", h.ExportCSV)
	}
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeClient(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("Failed to decode response %s: %v", body, err)
	}
	return m
}

func TestCreateWithOnlyFullName(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/clients", `{"full_name": "Ada Lovelace"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
	}

	client := decodeClient(t, w.Body.Bytes())
	if client["full_name"] != "Ada Lovelace" {
		t.Errorf("full_name = %v", client["full_name"])
	}
	if client["status"] != "prospect" {
		t.Errorf("status = %v, want default prospect", client["status"])
	}
	for _, field := range []string{"company", "email", "phone", "go_factors", "no_go_factors", "notes"} {
		if client[field] != nil {
			t.Errorf("%s = %v, want null", field, client[field])
		}
	}
	if client["id"] == nil || client["created_at"] == nil {
		t.Error("expected assigned id and created_at")
	}
}

func TestCreateRejectsBlankFullName(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/clients", `{"full_name": "   "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "full_name") {
		t.Errorf("body %s should mention full_name", w.Body.String())
	}
}

func TestCreateRejectsBogusStatus(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/clients", `{"full_name": "Ada", "status": "bogus"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "status") {
		t.Errorf("body %s should mention status", w.Body.String())
	}
}

func TestCreateReportsAllValidationErrors(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/clients", `{"status": "bogus"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode errors: %v", err)
	}
	if len(resp.Errors) != 2 {
		t.Fatalf("got %d errors, want both full_name and status: %v", len(resp.Errors), resp.Errors)
	}
}

func TestListNewestFirst(t *testing.T) {
	router := setupRouter(t)

	for _, name := range []string{"First", "Second", "Third"} {
		w := doRequest(t, router, http.MethodPost, "/api/clients", `{"full_name": "`+name+`"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("create %s: status = %d", name, w.Code)
		}
	}

	w := doRequest(t, router, http.MethodGet, "/api/clients", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var clients []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &clients); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(clients) != 3 {
		t.Fatalf("got %d clients, want 3", len(clients))
	}
	// Records created within the same timestamp resolution fall back
	// to id descending, so newest creation always lists first.
	want := []string{"Third", "Second", "First"}
	for i, name := range want {
		if clients[i]["full_name"] != name {
			t.Errorf("clients[%d] = %v, want %q", i, clients[i]["full_name"], name)
		}
	}
}

func TestListEmptyIsArray(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/clients", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %s, want empty JSON array", w.Body.String())
	}
}

func TestUpdateMissingIDReturns404(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodPut, "/api/clients/42", `{"full_name": "Ghost"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	// The failed update must not create a record
	w = doRequest(t, router, http.MethodGet, "/api/clients", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("list = %s, want empty after failed update", w.Body.String())
	}
}

func TestUpdateOmittedStatusResetsToDefault(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/clients", `{"full_name": "Ada", "status": "active"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", w.Code)
	}
	created := decodeClient(t, w.Body.Bytes())
	id := created["id"].(float64)

	w = doRequest(t, router, http.MethodPut, "/api/clients/"+jsonID(id), `{"full_name": "Ada"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body %s", w.Code, w.Body.String())
	}

	updated := decodeClient(t, w.Body.Bytes())
	if updated["status"] != "prospect" {
		t.Errorf("status = %v, want reset to prospect when omitted", updated["status"])
	}
}

func TestUpdateInvalidPayload(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/clients", `{"full_name": "Ada"}`)
	created := decodeClient(t, w.Body.Bytes())
	id := created["id"].(float64)

	w = doRequest(t, router, http.MethodPut, "/api/clients/"+jsonID(id), `{"full_name": "", "status": "bogus"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDeleteClient(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/clients", `{"full_name": "Ada"}`)
	created := decodeClient(t, w.Body.Bytes())
	id := created["id"].(float64)

	w = doRequest(t, router, http.MethodDelete, "/api/clients/"+jsonID(id), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeClient(t, w.Body.Bytes())
	if resp["deleted"].(float64) != id {
		t.Errorf("deleted = %v, want %v", resp["deleted"], id)
	}

	w = doRequest(t, router, http.MethodGet, "/api/clients", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("list = %s, want empty after delete", w.Body.String())
	}
}

func TestDeleteMissingIDReturns404(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodDelete, "/api/clients/42", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestResetDB(t *testing.T) {
	router := setupRouter(t)

	for i := 0; i < 3; i++ {
		doRequest(t, router, http.MethodPost, "/api/clients", `{"full_name": "Client"}`)
	}

	w := doRequest(t, router, http.MethodPost, "/api/reset-db", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeClient(t, w.Body.Bytes())
	if resp["reset"] != true {
		t.Errorf("reset = %v, want true", resp["reset"])
	}

	w = doRequest(t, router, http.MethodGet, "/api/clients", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("list = %s, want empty after reset", w.Body.String())
	}
}

func TestExportCSVRoundTrip(t *testing.T) {
	router := setupRouter(t)

	names := []string{"First", "Second", "Third"}
	for _, name := range names {
		doRequest(t, router, http.MethodPost, "/api/clients", `{"full_name": "`+name+`"}`)
	}

	w := doRequest(t, router, http.MethodGet, "/api/export-csv", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, "client_signals.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != len(names)+1 {
		t.Fatalf("got %d lines, want header + %d rows", len(lines), len(names))
	}
	if !strings.HasPrefix(lines[0], "ID,Full Name,Company,Email,Phone,Status,Go Factors,No-Go Factors,Notes,Created At") {
		t.Errorf("header = %q", lines[0])
	}

	// Same order as the list: newest first
	for i, name := range []string{"Third", "Second", "First"} {
		if !strings.Contains(lines[i+1], name) {
			t.Errorf("row %d = %q, want %q", i+1, lines[i+1], name)
		}
	}
}

func TestExportCSVContainsCreatedValues(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/clients",
		`{"full_name": "Test User", "company": "Test Corp", "status": "prospect"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/api/export-csv", "")
	body := w.Body.String()
	if !strings.Contains(body, "Test User") {
		t.Error("export should contain the created full name")
	}
	if !strings.Contains(body, "Test Corp") {
		t.Error("export should contain the created company")
	}
}

func TestSearchUnavailableWithoutBackend(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/clients/search?q=ada", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 when no search backend is attached", w.Code)
	}
}

func TestHealth(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func jsonID(id float64) string {
	return strconv.Itoa(int(id))
}
