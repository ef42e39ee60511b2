package transport_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/domreplay/recorder/internal/config"
	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/transport"
)

func newNoopOptions() config.RecordOptions {
	return config.RecordOptions{
		Emit: func(e event.Event, isCheckout bool) error { return nil },
	}
}

func TestHandleStartCreatesSession(t *testing.T) {
	reg := transport.NewRegistry(transport.RegistryOptions{IdleTimeout: time.Hour})
	defer reg.Close()

	srv := transport.NewServer(reg, newNoopOptions, nil)

	body, _ := json.Marshal(map[string]int{"viewport_width": 1024, "viewport_height": 768})
	req := httptest.NewRequest(http.MethodPost, "/record", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("handleStart: status = %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("handleStart: expected non-empty session id")
	}
	if reg.Len() != 1 {
		t.Fatalf("registry.Len() = %d, want 1", reg.Len())
	}

	delReq := httptest.NewRequest(http.MethodDelete, "/record/"+resp.ID, nil)
	delW := httptest.NewRecorder()
	srv.ServeHTTP(delW, delReq)
	if delW.Code != http.StatusNoContent {
		t.Fatalf("handleStop: status = %d, want %d", delW.Code, http.StatusNoContent)
	}
	if reg.Len() != 0 {
		t.Fatalf("registry.Len() after stop = %d, want 0", reg.Len())
	}
}

func TestHandleStopUnknownSession(t *testing.T) {
	reg := transport.NewRegistry(transport.RegistryOptions{IdleTimeout: time.Hour})
	defer reg.Close()
	srv := transport.NewServer(reg, newNoopOptions, nil)

	req := httptest.NewRequest(http.MethodDelete, "/record/does-not-exist", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("handleStop unknown: status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHealthz(t *testing.T) {
	reg := transport.NewRegistry(transport.RegistryOptions{IdleTimeout: time.Hour})
	defer reg.Close()
	srv := transport.NewServer(reg, newNoopOptions, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: status = %d, want %d", w.Code, http.StatusOK)
	}
}
