package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/verbo-app/roomsync/internal/debate"
	"github.com/verbo-app/roomsync/internal/realtime"
	"github.com/verbo-app/roomsync/internal/room"
	"github.com/verbo-app/roomsync/internal/shared"
	"github.com/verbo-app/roomsync/internal/store"
)

type stubBackend struct {
	mu        sync.Mutex
	joins     int
	statusErr error
}

func (s *stubBackend) Debate(ctx context.Context, id string) (*debate.Debate, error) {
	return &debate.Debate{ID: id, Status: debate.StatusActive, HostID: "u-host"}, nil
}

func (s *stubBackend) Participants(ctx context.Context, debateID string) ([]debate.Participant, error) {
	return nil, nil
}

func (s *stubBackend) Join(ctx context.Context, debateID, userID string, side debate.Side) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joins++
	return nil
}

func (s *stubBackend) Leave(ctx context.Context, debateID, userID string) error { return nil }

func (s *stubBackend) UpdateStatus(ctx context.Context, debateID string, status debate.Status) error {
	return s.statusErr
}

func (s *stubBackend) RecordStats(ctx context.Context, rec debate.StatsRecord) error { return nil }

type stubAudio struct {
	mu    sync.Mutex
	muted bool
}

func (s *stubAudio) RequestAccess(ctx context.Context) error { return nil }

func (s *stubAudio) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = !s.muted
	return s.muted
}

func (s *stubAudio) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *stubAudio) Live() bool  { return false }
func (s *stubAudio) StopStream() {}

type stubChannel struct {
	events chan realtime.Event
	once   sync.Once
}

func (s *stubChannel) Start(ctx context.Context)     {}
func (s *stubChannel) Events() <-chan realtime.Event { return s.events }
func (s *stubChannel) PushConnected() bool           { return false }
func (s *stubChannel) Close()                        { s.once.Do(func() { close(s.events) }) }

func newTestHandler(t *testing.T, backend *stubBackend) (*Handler, *room.Manager) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mgr := room.NewManager(room.ManagerConfig{
		DebateID: "d1",
		Identity: debate.Identity{UserID: "u-local", DisplayName: "Local"},
		Backend:  backend,
		Channel:  &stubChannel{events: make(chan realtime.Event)},
		Audio:    &stubAudio{},
		Store:    store.NewMemory(),
		Log:      log,
	})
	mgr.Start(context.Background())
	t.Cleanup(mgr.Close)

	return NewHandler(mgr, log), mgr
}

func doJSON(h echo.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestHandler_RoomView(t *testing.T) {
	h, _ := newTestHandler(t, &stubBackend{})

	rec := doJSON(h.Room, http.MethodGet, "/api/v1/room", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var view room.RoomView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Debate == nil || view.Debate.ID != "d1" {
		t.Fatalf("view debate = %+v", view.Debate)
	}
}

func TestHandler_JoinValidatesSide(t *testing.T) {
	h, _ := newTestHandler(t, &stubBackend{})

	rec := doJSON(h.Join, http.MethodPost, "/api/v1/room/join", `{"side":"undecided"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_JoinThenDuplicateConflicts(t *testing.T) {
	backend := &stubBackend{}
	h, mgr := newTestHandler(t, backend)

	rec := doJSON(h.Join, http.MethodPost, "/api/v1/room/join", `{"side":"agree"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("join status = %d: %s", rec.Code, rec.Body.String())
	}
	if !mgr.Session().Joined() {
		t.Fatal("session not joined after join call")
	}

	rec = doJSON(h.Join, http.MethodPost, "/api/v1/room/join", `{"side":"disagree"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate join status = %d, want 409", rec.Code)
	}
}

func TestHandler_SwitchOnceThenConflict(t *testing.T) {
	h, _ := newTestHandler(t, &stubBackend{})

	if rec := doJSON(h.Join, http.MethodPost, "/api/v1/room/join", `{"side":"agree"}`); rec.Code != http.StatusOK {
		t.Fatalf("join status = %d", rec.Code)
	}
	if rec := doJSON(h.Switch, http.MethodPost, "/api/v1/room/switch", `{"side":"disagree"}`); rec.Code != http.StatusOK {
		t.Fatalf("first switch status = %d", rec.Code)
	}
	rec := doJSON(h.Switch, http.MethodPost, "/api/v1/room/switch", `{"side":"agree"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second switch status = %d, want 409", rec.Code)
	}
}

func TestHandler_MuteTogglesAfterJoin(t *testing.T) {
	h, mgr := newTestHandler(t, &stubBackend{})

	// Mute without a joined session is a conflict.
	if rec := doJSON(h.Mute, http.MethodPost, "/api/v1/room/mute", ""); rec.Code != http.StatusConflict {
		t.Fatalf("mute before join status = %d, want 409", rec.Code)
	}

	if rec := doJSON(h.Join, http.MethodPost, "/api/v1/room/join", `{"side":"agree"}`); rec.Code != http.StatusOK {
		t.Fatalf("join status = %d", rec.Code)
	}

	rec := doJSON(h.Mute, http.MethodPost, "/api/v1/room/mute", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("mute status = %d", rec.Code)
	}
	var resp muteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode mute response: %v", err)
	}
	if !resp.Muted {
		t.Fatal("first toggle did not mute")
	}
	if !mgr.RoomView().Muted {
		t.Fatal("muted state missing from room view")
	}

	rec = doJSON(h.Mute, http.MethodPost, "/api/v1/room/mute", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode mute response: %v", err)
	}
	if resp.Muted {
		t.Fatal("second toggle did not unmute")
	}
}

func TestHandler_EndSurfacesAuthorization(t *testing.T) {
	backend := &stubBackend{statusErr: &shared.APIError{Status: 403, Message: "host only"}}
	h, _ := newTestHandler(t, backend)

	rec := doJSON(h.End, http.MethodPost, "/api/v1/room/end", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("end status = %d, want 403", rec.Code)
	}
}

func TestHandler_Leave(t *testing.T) {
	h, mgr := newTestHandler(t, &stubBackend{})

	if rec := doJSON(h.Join, http.MethodPost, "/api/v1/room/join", `{"side":"agree"}`); rec.Code != http.StatusOK {
		t.Fatalf("join status = %d", rec.Code)
	}
	rec := doJSON(h.Leave, http.MethodPost, "/api/v1/room/leave", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("leave status = %d, want 204", rec.Code)
	}
	if !mgr.Session().Leaving() {
		t.Fatal("session not leaving")
	}
}

func TestHealthHandler(t *testing.T) {
	_, mgr := newTestHandler(t, &stubBackend{})
	hh := NewHealthHandler(mgr)

	rec := doJSON(hh.Health, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" || resp.DebateID != "d1" {
		t.Fatalf("health = %+v", resp)
	}
}
