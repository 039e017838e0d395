package ops

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeStats struct{ reg, rep, locks int }

func (f fakeStats) RegistrationSessions() int { return f.reg }
func (f fakeStats) ReportSessions() int       { return f.rep }
func (f fakeStats) ActiveLockouts() int       { return f.locks }

func TestHealthz(t *testing.T) {
	r := NewRouter(fakeStats{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestStatsPayload(t *testing.T) {
	r := NewRouter(fakeStats{reg: 2, rep: 5, locks: 1})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var body map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["registration_sessions"] != 2 || body["report_sessions"] != 5 || body["active_lockouts"] != 1 {
		t.Fatalf("unexpected payload: %v", body)
	}
}
