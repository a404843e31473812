package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beepcard/beep-tap/internal/config"
	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/infrastructure/auth"
	"github.com/beepcard/beep-tap/internal/infrastructure/camera"
	"github.com/beepcard/beep-tap/internal/infrastructure/kvstore"
	"github.com/beepcard/beep-tap/internal/infrastructure/repository/history"
	"github.com/beepcard/beep-tap/internal/interfaces/httpserver/handlers"
	"github.com/beepcard/beep-tap/internal/interfaces/httpserver/routes"
	"github.com/beepcard/beep-tap/internal/utils/idgen"
)

const testRoom = "3f2b8c1e-9d4a-4e6b-8f10-2a3b4c5d6e7f"

type fakeSession struct {
	mu      sync.Mutex
	status  tap.Status
	calls   []string
	stopped bool
}

func (f *fakeSession) Status() tap.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeSession) command(name string, state tap.State) (tap.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return tap.Status{}, tap.ErrCoordinatorStopped
	}
	f.calls = append(f.calls, name)
	f.status.State = state
	return f.status, nil
}

func (f *fakeSession) Focus(context.Context) (tap.Status, error) {
	return f.command("focus", tap.StateConnecting)
}

func (f *fakeSession) Blur(context.Context) (tap.Status, error) {
	return f.command("blur", tap.StateIdle)
}

func (f *fakeSession) Reconnect(context.Context) (tap.Status, error) {
	return f.command("reconnect", tap.StateConnecting)
}

func (f *fakeSession) ToggleCamera(context.Context) (tap.Status, error) {
	return f.command("toggle", f.status.State)
}

type harness struct {
	server     *HTTPServer
	session    *fakeSession
	gate       *camera.PromptGate
	recognizer *camera.FrameRecognizer
	store      *kvstore.MemoryStore
	history    *history.InMemoryRepository
}

func newHarness(t *testing.T, withPrompt bool) *harness {
	t.Helper()
	log := zerolog.Nop()
	cfg := &config.Config{ServiceName: "tap-agent-test", Environment: "test", ShutdownTimeout: time.Second}

	h := &harness{
		session: &fakeSession{status: tap.Status{State: tap.StateIdle, Facing: tap.FacingBack}},
		gate:    camera.NewPromptGate(5*time.Second, log),
		store:   kvstore.NewMemoryStore(),
		history: history.NewInMemoryRepository(10),
	}
	rec, err := camera.NewFrameRecognizer(time.Second, log)
	require.NoError(t, err)
	h.recognizer = rec

	var prompter handlers.PermissionPrompter
	if withPrompt {
		prompter = h.gate
	}
	validator, err := auth.NewValidator(context.Background(), cfg, log)
	require.NoError(t, err)

	tapHandler := handlers.NewTapHandler(h.session, prompter, h.recognizer, h.store, h.history, 20)
	h.server = New(cfg, log, routes.NewProvider(handlers.NewProvider(tapHandler), validator))
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCoreRoutes(t *testing.T) {
	h := newHarness(t, true)

	for _, path := range []string{"/", "/healthz", "/readyz", "/metrics"} {
		rec := h.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.NotEmpty(t, h.do(t, http.MethodGet, "/healthz", "").Header().Get("X-Request-ID"))
}

func TestSessionCommands(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, http.MethodGet, "/v1/tap/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "tap.status", body["object"])
	assert.Equal(t, "idle", body["state"])
	assert.Equal(t, false, body["scanner_active"])

	tests := []struct {
		method string
		path   string
		call   string
	}{
		{http.MethodPost, "/v1/tap/session", "focus"},
		{http.MethodPost, "/v1/tap/camera/toggle", "toggle"},
		{http.MethodPost, "/v1/tap/reconnect", "reconnect"},
		{http.MethodDelete, "/v1/tap/session", "blur"},
	}
	for _, tt := range tests {
		rec := h.do(t, tt.method, tt.path, "")
		assert.Equal(t, http.StatusOK, rec.Code, tt.path)
	}
	assert.Equal(t, []string{"focus", "toggle", "reconnect", "blur"}, h.session.calls)
}

func TestSessionCommandAfterShutdown(t *testing.T) {
	h := newHarness(t, true)
	h.session.stopped = true

	rec := h.do(t, http.MethodPost, "/v1/tap/session", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	errBody := decode(t, rec)["error"].(map[string]any)
	assert.Equal(t, "unavailable_error", errBody["type"])
}

func TestSelectCard(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, http.MethodGet, "/v1/tap/card", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPut, "/v1/tap/card", `{"card_id": "123456789"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "637805123456789", decode(t, rec)["card_id"])

	stored, ok, err := h.store.Get(context.Background(), tap.SelectedCardKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "637805123456789", stored)

	rec = h.do(t, http.MethodGet, "/v1/tap/card", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, body := range []string{`{"card_id": "12345"}`, `{"card_id": ""}`, `{}`, `not json`} {
		rec = h.do(t, http.MethodPut, "/v1/tap/card", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCameraPermissionPrompt(t *testing.T) {
	h := newHarness(t, true)

	rec := h.do(t, http.MethodGet, "/v1/tap/camera/permission", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["granted"])
	assert.Nil(t, body["pending"])

	rec = h.do(t, http.MethodPost, "/v1/tap/camera/permission", `{"granted": true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	result := make(chan bool, 1)
	go func() {
		granted, _ := h.gate.RequestPermission(context.Background())
		result <- granted
	}()
	require.Eventually(t, func() bool {
		_, ok := h.gate.Pending()
		return ok
	}, time.Second, 5*time.Millisecond)

	rec = h.do(t, http.MethodGet, "/v1/tap/camera/permission", "")
	assert.NotNil(t, decode(t, rec)["pending"])

	rec = h.do(t, http.MethodPost, "/v1/tap/camera/permission", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/tap/camera/permission", `{"granted": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case granted := <-result:
		assert.True(t, granted)
	case <-time.After(time.Second):
		t.Fatal("permission request not answered")
	}
	assert.True(t, h.gate.HasPermission())

	rec = h.do(t, http.MethodDelete, "/v1/tap/camera/permission", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["granted"])
	assert.False(t, h.gate.HasPermission())

	rec = h.do(t, http.MethodGet, "/v1/tap/camera/permission", "")
	assert.Equal(t, false, decode(t, rec)["granted"])
}

func TestCameraPermissionFixedByConfig(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(t, http.MethodGet, "/v1/tap/camera/permission", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = h.do(t, http.MethodDelete, "/v1/tap/camera/permission", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/tap/camera/permission", `{"granted": false}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitScans(t *testing.T) {
	h := newHarness(t, true)
	frame := `{"codes": [{"payload": "` + testRoom + `", "corners": [{"x": 510, "y": 140}, {"x": 680, "y": 140}, {"x": 680, "y": 900}, {"x": 510, "y": 900}]}]}`

	rec := h.do(t, http.MethodPost, "/v1/tap/scans", frame)
	assert.Equal(t, http.StatusConflict, rec.Code)

	h.recognizer.Activate(3)
	assert.Equal(t, true, decode(t, h.do(t, http.MethodGet, "/v1/tap/status", ""))["scanner_active"])

	rec = h.do(t, http.MethodPost, "/v1/tap/scans", frame)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["forwarded"])

	select {
	case scan := <-h.recognizer.Scans():
		assert.Equal(t, tap.Generation(3), scan.Gen)
		assert.Equal(t, testRoom, scan.Payload)
		assert.Len(t, scan.Corners, 4)
	case <-time.After(time.Second):
		t.Fatal("scan not forwarded")
	}

	rec = h.do(t, http.MethodPost, "/v1/tap/scans", frame)
	assert.EqualValues(t, 1, decode(t, rec)["debounced"])

	for _, body := range []string{`{"codes": []}`, `{}`, `[]`} {
		rec = h.do(t, http.MethodPost, "/v1/tap/scans", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestSubmitScans_UnreadableCodeKeepsTheRest(t *testing.T) {
	h := newHarness(t, true)
	h.recognizer.Activate(4)

	frame := `{"codes": [{"payload": "", "corners": []}, {"payload": "` + testRoom + `", "corners": [{"x": 510, "y": 140}, {"x": 680, "y": 140}, {"x": 680, "y": 900}, {"x": 510, "y": 900}]}]}`
	rec := h.do(t, http.MethodPost, "/v1/tap/scans", frame)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, decode(t, rec)["forwarded"])

	var payloads []string
	for len(payloads) < 2 {
		select {
		case scan := <-h.recognizer.Scans():
			assert.Equal(t, tap.Generation(4), scan.Gen)
			payloads = append(payloads, scan.Payload)
		case <-time.After(time.Second):
			t.Fatalf("only %d scans forwarded", len(payloads))
		}
	}
	assert.ElementsMatch(t, []string{"", testRoom}, payloads)

	rec = h.do(t, http.MethodPost, "/v1/tap/scans", `{"codes": [{"corners": []}]}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
}

func TestHistory(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	now := time.Now()

	ok := &tap.Attempt{CardID: "637805123456789", Room: testRoom, Result: tap.OutcomeSuccess, StartedAt: now.Add(-time.Second), FinishedAt: now}
	failed := &tap.Attempt{CardID: "637805123456789", Result: tap.OutcomeFailure, Reason: tap.ReasonOutcomeTimeout, StartedAt: now, FinishedAt: now.Add(time.Second)}
	require.NoError(t, h.history.Save(ctx, ok))
	require.NoError(t, h.history.Save(ctx, failed))

	rec := h.do(t, http.MethodGet, "/v1/tap/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, failed.ID, data[0].(map[string]any)["id"])

	rec = h.do(t, http.MethodGet, "/v1/tap/history?result=success", "")
	data = decode(t, rec)["data"].([]any)
	require.Len(t, data, 1)

	rec = h.do(t, http.MethodGet, "/v1/tap/history?result=pending", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/tap/history/"+ok.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testRoom, decode(t, rec)["room"])

	rec = h.do(t, http.MethodGet, "/v1/tap/history/"+idgen.NewAttemptID(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, id := range []string{"tap_missing", "peer_0123456789ab", strings.TrimPrefix(ok.ID, idgen.AttemptPrefix)} {
		rec = h.do(t, http.MethodGet, "/v1/tap/history/"+id, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
}
