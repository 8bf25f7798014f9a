package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/home-hub/home-hub/internal/application/notify"
	"github.com/home-hub/home-hub/internal/application/orchestrator"
	"github.com/home-hub/home-hub/internal/application/skills"
	"github.com/home-hub/home-hub/internal/domain/agent"
	"github.com/home-hub/home-hub/internal/domain/event"
	"github.com/home-hub/home-hub/internal/infrastructure/blob"
	"github.com/home-hub/home-hub/internal/infrastructure/hub"
	"github.com/home-hub/home-hub/internal/infrastructure/jsonstore"
	"github.com/home-hub/home-hub/internal/infrastructure/memory"
)

type testStack struct {
	srv      *httptest.Server
	orch     *orchestrator.Service
	settings *jsonstore.SettingsStore
	uploads  *blob.Store
}

func newStack(t *testing.T) *testStack {
	return newStackWithDelay(t, time.Millisecond)
}

func newStackWithDelay(t *testing.T, stepDelay time.Duration) *testStack {
	t.Helper()
	dataDir := t.TempDir()
	logger := zerolog.Nop()

	settings, err := jsonstore.NewSettingsStore(dataDir, logger)
	require.NoError(t, err)
	t.Cleanup(settings.Close)

	skillRepo, err := jsonstore.NewSkillRepository(dataDir, logger)
	require.NoError(t, err)
	artifacts, err := jsonstore.NewArtifactStore(dataDir, logger)
	require.NoError(t, err)
	uploads, err := blob.NewStore(dataDir, logger)
	require.NoError(t, err)

	eventHub := hub.NewHub(hub.DefaultBuffer, logger)
	t.Cleanup(eventHub.Stop)

	repo := memory.NewAgentRepository(eventHub, logger)
	notifySvc := notify.NewService(eventHub, settings, logger)
	executors := orchestrator.NewExecutors(artifacts, stepDelay)
	orch := orchestrator.NewService(repo, skillRepo, settings, executors, notifySvc, 200*time.Millisecond, logger)
	skillSvc := skills.NewService(skillRepo, logger)

	api := NewServer(orch, skillSvc, notifySvc, settings, artifacts, uploads, eventHub, logger)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)

	return &testStack{srv: srv, orch: orch, settings: settings, uploads: uploads}
}

func (ts *testStack) postJSON(t *testing.T, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp, decodeMap(t, resp)
}

func (ts *testStack) get(t *testing.T, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(ts.srv.URL + path)
	require.NoError(t, err)
	return resp, decodeMap(t, resp)
}

func decodeMap(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (ts *testStack) waitAgentStatus(t *testing.T, id, want string) map[string]interface{} {
	t.Helper()
	var last map[string]interface{}
	require.Eventually(t, func() bool {
		resp, body := ts.get(t, "/api/agents/"+id)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		last = body
		return body["status"] == want
	}, 3*time.Second, 10*time.Millisecond, "agent never reached %s", want)
	return last
}

func TestSpawnAgentLifecycle(t *testing.T) {
	ts := newStack(t)

	resp, body := ts.postJSON(t, "/api/agents", map[string]interface{}{
		"agent_type": "code",
		"goal":       "refactor the thermostat module",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, ok := body["agent_id"].(string)
	require.True(t, ok, "spawn response carries agent_id: %v", body)

	final := ts.waitAgentStatus(t, id, "completed")
	assert.Equal(t, float64(100), final["progress"])
	assert.Equal(t, "Agent completed successfully", final["message"])

	artifacts, ok := final["artifacts"].([]interface{})
	require.True(t, ok, "completed agent has a plan artifact")
	require.NotEmpty(t, artifacts)

	// Hydrated artifact listing.
	resp, listing := ts.get(t, "/api/agents/"+id+"/artifacts")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hydrated := listing["artifacts"].([]interface{})
	require.NotEmpty(t, hydrated)
	first := hydrated[0].(map[string]interface{})
	assert.Equal(t, id, first["agent_id"])
	assert.Equal(t, "plan", first["artifact_type"])

	// Single artifact fetch.
	resp, art := ts.get(t, "/api/artifacts/"+artifacts[0].(string))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, art["agent_id"])
}

func TestSpawnAgentValidation(t *testing.T) {
	ts := newStack(t)

	resp, body := ts.postJSON(t, "/api/agents", map[string]interface{}{
		"agent_type": "swarm",
		"goal":       "g",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_PARAM", body["error"])

	resp, _ = ts.postJSON(t, "/api/agents", map[string]interface{}{
		"agent_type": "code",
		"goal":       "g",
		"bogus":      true,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAgentLookupErrors(t *testing.T) {
	ts := newStack(t)

	resp, body := ts.get(t, "/api/agents/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["error"])

	resp, _ = ts.get(t, "/api/agents/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInterruptTerminalConflict(t *testing.T) {
	ts := newStack(t)

	_, body := ts.postJSON(t, "/api/agents", map[string]interface{}{
		"agent_type": "general",
		"goal":       "g",
	})
	id := body["agent_id"].(string)
	ts.waitAgentStatus(t, id, "completed")

	resp, errBody := ts.postJSON(t, "/api/agents/"+id+"/interrupt", map[string]interface{}{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NOT_INTERRUPTIBLE", errBody["error"])
}

func TestCleanupEndpoint(t *testing.T) {
	ts := newStack(t)

	_, body := ts.postJSON(t, "/api/agents", map[string]interface{}{
		"agent_type": "research",
		"goal":       "g",
	})
	id := body["agent_id"].(string)
	ts.waitAgentStatus(t, id, "completed")

	resp, result := ts.postJSON(t, "/api/agents/cleanup", map[string]interface{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), result["removed"])

	resp, _ = ts.get(t, "/api/agents/" + id)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListAgentsStatusFilter(t *testing.T) {
	ts := newStack(t)

	_, body := ts.postJSON(t, "/api/agents", map[string]interface{}{
		"agent_type": "testing",
		"goal":       "g",
	})
	id := body["agent_id"].(string)
	ts.waitAgentStatus(t, id, "completed")

	_, listing := ts.get(t, "/api/agents/?status=completed")
	require.Len(t, listing["agents"], 1)

	_, listing = ts.get(t, "/api/agents/?status=running")
	assert.Empty(t, listing["agents"])
}

func TestSkillEndpoints(t *testing.T) {
	ts := newStack(t)

	resp, listing := ts.get(t, "/api/skills/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	seeded := listing["skills"].([]interface{})
	require.Len(t, seeded, 4, "default skill library is seeded")

	resp, created := ts.postJSON(t, "/api/skills/", map[string]interface{}{
		"name":        "Deploy Bot",
		"description": "Rolls releases",
		"tags":        []string{"devops"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	skillID := created["id"].(string)

	resp, fetched := ts.get(t, "/api/skills/"+skillID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Deploy Bot", fetched["name"])

	req, err := http.NewRequest(http.MethodPut, ts.srv.URL+"/api/skills/"+skillID,
		strings.NewReader(`{"name":"Deploy Bot v2","description":"Rolls releases"}`))
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	updated := decodeMap(t, putResp)
	assert.Equal(t, "Deploy Bot v2", updated["name"])

	_, tags := ts.get(t, "/api/skills/tags")
	assert.Contains(t, tags["tags"], "devops")

	del, err := http.NewRequest(http.MethodDelete, ts.srv.URL+"/api/skills/"+skillID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(del)
	require.NoError(t, err)
	delResp.Body.Close()
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	resp, _ = ts.get(t, "/api/skills/"+skillID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSettingsEndpoints(t *testing.T) {
	ts := newStack(t)

	resp, doc := ts.get(t, "/api/settings/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	agents := doc["agents"].(map[string]interface{})
	assert.Equal(t, float64(5), agents["max_concurrent"])

	resp, merged := ts.postJSON(t, "/api/settings/", map[string]interface{}{
		"agents": map[string]interface{}{"max_concurrent": 2},
		"llm":    map[string]interface{}{"api_key": "sk-secret"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), merged["agents"].(map[string]interface{})["max_concurrent"])
	assert.Equal(t, "********", merged["llm"].(map[string]interface{})["api_key"], "secrets are masked on the way out")
	assert.Equal(t, "ollama", merged["llm"].(map[string]interface{})["provider"], "merge preserves sibling keys")

	_, schema := ts.get(t, "/api/settings/schema")
	assert.Contains(t, schema, "defaults")
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	ts := newStack(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("remember the milk"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.srv.URL+"/api/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	body := decodeMap(t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	uploadID := body["upload_id"].(string)
	assert.Equal(t, "notes.txt", body["filename"])

	dl, err := http.Get(ts.srv.URL + "/api/uploads/" + uploadID)
	require.NoError(t, err)
	defer dl.Body.Close()
	require.Equal(t, http.StatusOK, dl.StatusCode)
	content, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "remember the milk", string(content))

	missing, err := http.Get(ts.srv.URL + "/api/uploads/" + strings.Repeat("0", 64))
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newStack(t)

	resp, body := ts.get(t, "/api/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["observers"])
}

func TestWebSocketObserver(t *testing.T) {
	ts := newStack(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	ws, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer ws.Close(websocket.StatusNormalClosure, "")

	var greeting event.Message
	require.NoError(t, wsjson.Read(ctx, ws, &greeting))
	assert.Equal(t, event.TypeConnected, greeting.Type)

	// Ping and pong.
	require.NoError(t, wsjson.Write(ctx, ws, map[string]string{"type": "ping"}))
	var pong event.Message
	require.NoError(t, wsjson.Read(ctx, ws, &pong))
	assert.Equal(t, event.TypePong, pong.Type)

	// Unknown client messages are ignored, connection stays up.
	require.NoError(t, wsjson.Write(ctx, ws, map[string]string{"type": "shrug"}))

	// A spawned agent streams live updates to the observer.
	resp, err := http.Post(ts.srv.URL+"/api/agents", "application/json",
		strings.NewReader(`{"agent_type":"general","goal":"observe me"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	sawRunning := false
	for {
		var msg event.Message
		require.NoError(t, wsjson.Read(ctx, ws, &msg))
		if msg.Type != event.TypeAgentUpdate {
			continue
		}
		require.NotNil(t, msg.Agent)
		if msg.Agent.Status == agent.StatusRunning {
			sawRunning = true
		}
		if msg.Agent.Status == agent.StatusCompleted {
			break
		}
	}
	assert.True(t, sawRunning, "observer saw intermediate states, not just the terminal one")
}

func TestConcurrencyLimitOverHTTP(t *testing.T) {
	ts := newStackWithDelay(t, 300*time.Millisecond)

	resp, _ := ts.postJSON(t, "/api/settings/", map[string]interface{}{
		"agents": map[string]interface{}{"max_concurrent": 1},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	spawn, first := ts.postJSON(t, "/api/agents", map[string]interface{}{
		"agent_type": "general",
		"goal":       "slot holder",
	})
	require.Equal(t, http.StatusCreated, spawn.StatusCode)

	spawn, body := ts.postJSON(t, "/api/agents", map[string]interface{}{
		"agent_type": "general",
		"goal":       "rejected",
	})
	assert.Equal(t, http.StatusTooManyRequests, spawn.StatusCode)
	assert.Equal(t, "CAPACITY_EXCEEDED", body["error"])

	_, listing := ts.get(t, "/api/agents/")
	assert.Len(t, listing["agents"], 1, "rejected spawn leaves no record")

	ts.waitAgentStatus(t, first["agent_id"].(string), "completed")
}

func TestNotFoundRoutes(t *testing.T) {
	ts := newStack(t)

	for _, path := range []string{"/api/artifacts/not-a-uuid", "/api/artifacts/" + uuid.NewString()} {
		resp, err := http.Get(ts.srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, fmt.Sprintf("path %s", path))
	}
}
