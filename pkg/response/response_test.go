package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var body Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name        string
		write       func(w http.ResponseWriter)
		wantStatus  int
		wantSuccess bool
		wantError   string
	}{
		{"success", func(w http.ResponseWriter) { Success(w, map[string]int{"n": 1}) }, http.StatusOK, true, ""},
		{"created", func(w http.ResponseWriter) { Created(w, "x") }, http.StatusCreated, true, ""},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "taken") }, http.StatusConflict, false, "taken"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "missing") }, http.StatusNotFound, false, "missing"},
		{"message", func(w http.ResponseWriter) { Message(w, http.StatusOK, "bye") }, http.StatusOK, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			body := decode(t, rec)
			if body.Success != tt.wantSuccess {
				t.Errorf("success = %v, want %v", body.Success, tt.wantSuccess)
			}
			if body.Error != tt.wantError {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}
		})
	}
}
