package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regdraft-ai-api/internal/application/workspace"
	"regdraft-ai-api/internal/config"
	"regdraft-ai-api/internal/domain/entity"
	"regdraft-ai-api/internal/infrastructure/llm"
	"regdraft-ai-api/internal/interfaces/http/handler"
	"regdraft-ai-api/internal/interfaces/http/middleware"
	"regdraft-ai-api/internal/workflow/prompt"
	"regdraft-ai-api/pkg/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		ErrorCode string `json:"error_code"`
	} `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	store  *workspace.Store
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}

func newTestServer(t *testing.T, authEnabled bool, limiter middleware.RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App: config.AppConfig{Name: "regdraft-test", Env: "test"},
		LLM: config.LLMConfig{
			DefaultProvider: "gemini",
			Providers: map[string]config.ProviderConfig{
				"gemini":    {Type: "mock"},
				"openai":    {Type: "mock"},
				"anthropic": {Type: "mock"},
				"xai":       {Type: "mock"},
			},
		},
		Observability: config.ObservabilityConfig{Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}},
		Security: config.SecurityConfig{
			Auth:      config.AuthConfig{Enabled: authEnabled},
			RateLimit: config.RateLimitConfig{Enabled: limiter != nil, RequestsPerSecond: 5},
		},
	}

	generator := llm.NewClient(llm.NewEinoFactory(cfg), cfg.LLM.DefaultProvider)
	prompts := prompt.NewRegistry()
	store := workspace.NewStore(config.WorkspaceConfig{MaxSessions: 10}, nil)
	jwt := utils.NewJWTManager("test-secret", "regdraft-test", time.Hour)

	deps := Deps{Sessions: store, Limiter: limiter}
	var issuer handler.TokenIssuer
	if authEnabled {
		deps.Tokens = jwt
		issuer = jwt
	}

	r := New(cfg, Handlers{
		Health:    handler.NewHealthHandler("test", nil),
		Session:   handler.NewSessionHandler(store, issuer),
		Pipeline:  handler.NewPipelineHandler(workspace.NewPipeline(generator)),
		Summary:   handler.NewSummaryHandler(workspace.NewSummaryGenerator(generator, prompts)),
		Notes:     handler.NewNotesHandler(workspace.NewNotesTool(generator, prompts, false)),
		Dashboard: handler.NewDashboardHandler(nil, nil),
	}, deps)
	return &testServer{engine: r.Engine(), store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func createSession(t *testing.T, s *testServer) (string, string) {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/v1/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.SessionID)
	return created.SessionID, created.Token
}

func TestRouter_SessionTokenFlow(t *testing.T) {
	s := newTestServer(t, true, nil)
	_, token := createSession(t, s)
	require.NotEmpty(t, token)

	w, env := s.do(t, http.MethodGet, "/v1/session", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "2003", env.Error.ErrorCode)

	w, _ = s.do(t, http.MethodGet, "/v1/session", nil, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(t, http.MethodGet, "/v1/session", nil, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)

	var snap workspace.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 100, snap.Ledger.Mana)
	assert.Equal(t, 1, snap.Ledger.Level)
	assert.False(t, snap.Busy)
}

func TestRouter_HeaderSessionMode(t *testing.T) {
	s := newTestServer(t, false, nil)
	id, token := createSession(t, s)
	assert.Empty(t, token)

	w, _ := s.do(t, http.MethodGet, "/v1/agents", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodGet, "/v1/agents", nil, map[string]string{middleware.SessionIDHeader: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "4001", env.Error.ErrorCode)

	w, _ = s.do(t, http.MethodGet, "/v1/agents", nil, map[string]string{middleware.SessionIDHeader: id})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_PipelineRunAll(t *testing.T) {
	s := newTestServer(t, false, nil)
	id, _ := createSession(t, s)
	h := map[string]string{middleware.SessionIDHeader: id}

	w, env := s.do(t, http.MethodPost, "/v1/pipeline/run", map[string]string{"input": "Wearable ECG patch"}, h)
	require.Equal(t, http.StatusOK, w.Code)

	var result workspace.RunResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, workspace.PhaseCompleted, result.Status)
	assert.Equal(t, []string{"classifier", "predicate_matcher", "risk_analyzer"}, result.Executed)
	assert.Equal(t, 40, result.Ledger.Mana)
	assert.Equal(t, 30, result.Ledger.Experience)
	assert.Equal(t, "[Mock Output from gemini] Processed: Wearable ECG patch...", result.Outputs["classifier"])
	require.Len(t, result.Logs, 4)
	assert.Equal(t, "Starting pipeline run...", result.Logs[0].Msg)

	w, env = s.do(t, http.MethodGet, "/v1/dashboard?limit=2", nil, h)
	require.Equal(t, http.StatusOK, w.Code)
	var dash struct {
		Metrics struct {
			TotalRuns int `json:"total_runs"`
		} `json:"metrics"`
		Logs []struct {
			Msg string `json:"msg"`
		} `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	assert.Equal(t, 3, dash.Metrics.TotalRuns)
	require.Len(t, dash.Logs, 2)
	assert.Equal(t, "Agent Risk Analyzer completed.", dash.Logs[0].Msg)
}

func TestRouter_PreconditionFailuresAreNotHTTPErrors(t *testing.T) {
	s := newTestServer(t, false, nil)
	id, _ := createSession(t, s)
	h := map[string]string{middleware.SessionIDHeader: id}

	w, env := s.do(t, http.MethodPost, "/v1/pipeline/agents/risk_analyzer/run", nil, h)
	require.Equal(t, http.StatusOK, w.Code)
	var result workspace.RunResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, workspace.PhaseAborted, result.Status)
	assert.Equal(t, "No input available from previous step.", result.Reason)

	w, env = s.do(t, http.MethodPost, "/v1/summary/generate", map[string]string{"device_name": "CardioPatch"}, h)
	require.Equal(t, http.StatusOK, w.Code)
	var summary workspace.SummaryResult
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, workspace.PhaseAborted, summary.Status)
	assert.Equal(t, "Device name and description required.", summary.Reason)
}

func TestRouter_ValidationErrors(t *testing.T) {
	s := newTestServer(t, false, nil)
	id, _ := createSession(t, s)
	h := map[string]string{middleware.SessionIDHeader: id}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"model from another provider", http.MethodPut, "/v1/agents/classifier/model", map[string]string{"model": "gpt-4o"}, http.StatusBadRequest, "4003"},
		{"unknown agent model change", http.MethodPut, "/v1/agents/nope/model", map[string]string{"model": "gemini-2.5-flash"}, http.StatusNotFound, "4002"},
		{"unknown agent run", http.MethodPost, "/v1/pipeline/agents/nope/run", nil, http.StatusNotFound, "4002"},
		{"unknown agent output", http.MethodPut, "/v1/pipeline/outputs/nope", map[string]string{"output": "x"}, http.StatusNotFound, "4002"},
		{"bad notes mode", http.MethodPost, "/v1/notes/transform", map[string]string{"mode": "poem", "text": "x"}, http.StatusBadRequest, "1001"},
		{"bad preference", http.MethodPatch, "/v1/session/preferences", map[string]string{"theme_mode": "sepia"}, http.StatusBadRequest, "4007"},
		{"unknown summary model", http.MethodPost, "/v1/summary/generate", map[string]string{"device_name": "a", "device_description": "b", "model": "llama3"}, http.StatusBadRequest, "4003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, tt.method, tt.path, tt.body, h)
			assert.Equal(t, tt.status, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.ErrorCode)
		})
	}
}

func TestRouter_EditsAndTools(t *testing.T) {
	s := newTestServer(t, false, nil)
	id, _ := createSession(t, s)
	h := map[string]string{middleware.SessionIDHeader: id}

	w, _ := s.do(t, http.MethodPut, "/v1/agents/classifier/model", map[string]string{"model": "gemini-2.5-flash"}, h)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPut, "/v1/pipeline/outputs/classifier", map[string]string{"output": "Class II, DXH"}, h)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodPost, "/v1/pipeline/agents/predicate_matcher/run", nil, h)
	require.Equal(t, http.StatusOK, w.Code)
	var result workspace.RunResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "[Mock Output from gemini] Processed: Class II, DXH...", result.Outputs["predicate_matcher"])

	w, env = s.do(t, http.MethodPut, "/v1/summary", map[string]string{"document": "# Draft"}, h)
	require.Equal(t, http.StatusOK, w.Code)
	var st workspace.SummaryState
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, "# Draft", st.Document)

	w, env = s.do(t, http.MethodPost, "/v1/notes/transform", map[string]string{"mode": "Quiz", "text": "ISO 14971 notes"}, h)
	require.Equal(t, http.StatusOK, w.Code)
	var notes workspace.NotesResult
	require.NoError(t, json.Unmarshal(env.Data, &notes))
	assert.Equal(t, workspace.PhaseCompleted, notes.Status)
	assert.Equal(t, workspace.NotesQuiz, notes.Notes.Mode)
	assert.Equal(t, "[Mock Output from gemini] Processed: ISO 14971 notes...", notes.Notes.Result)
}

func TestRouter_BusySessionConflicts(t *testing.T) {
	s := newTestServer(t, false, nil)
	id, _ := createSession(t, s)
	sess, err := s.store.Get(id)
	require.NoError(t, err)
	require.NoError(t, sess.SetInput("original input"))
	require.NoError(t, sess.TryBegin(workspace.MarkerAll))
	defer sess.End()
	h := map[string]string{middleware.SessionIDHeader: id}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"run all", http.MethodPost, "/v1/pipeline/run", nil},
		{"run single", http.MethodPost, "/v1/pipeline/agents/classifier/run", nil},
		{"change model", http.MethodPut, "/v1/agents/classifier/model", map[string]string{"model": "gemini-2.5-flash"}},
		{"set input", http.MethodPut, "/v1/pipeline/input", map[string]string{"input": "replaced"}},
		{"set output", http.MethodPut, "/v1/pipeline/outputs/classifier", map[string]string{"output": "hand edit"}},
		{"summary", http.MethodPost, "/v1/summary/generate", map[string]string{"device_name": "a", "device_description": "b"}},
		{"notes", http.MethodPost, "/v1/notes/transform", map[string]string{"mode": "markdown", "text": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, tt.method, tt.path, tt.body, h)
			assert.Equal(t, http.StatusConflict, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "4004", env.Error.ErrorCode)
		})
	}

	assert.Equal(t, "original input", sess.Input())
	_, stored := sess.Output("classifier")
	assert.False(t, stored)
	agent, _, err := sess.Agent("classifier")
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultAgents()[0].Model, agent.Model)
	assert.Equal(t, 100, sess.Ledger().Mana)
}

func TestRouter_PipelineRunAll_ChunkedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"input in chunked body", `{"input":"Insulin pump"}`, "Insulin pump"},
		{"empty chunked body keeps stored input", "", "stored input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, false, nil)
			id, _ := createSession(t, s)
			sess, err := s.store.Get(id)
			require.NoError(t, err)
			require.NoError(t, sess.SetInput("stored input"))

			req := httptest.NewRequest(http.MethodPost, "/v1/pipeline/run", io.MultiReader(strings.NewReader(tt.body)))
			req.TransferEncoding = []string{"chunked"}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(middleware.SessionIDHeader, id)
			require.Equal(t, int64(-1), req.ContentLength)

			w := httptest.NewRecorder()
			s.engine.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)

			var env envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			var result workspace.RunResult
			require.NoError(t, json.Unmarshal(env.Data, &result))
			assert.Equal(t, "[Mock Output from gemini] Processed: "+tt.want+"...", result.Outputs["classifier"])
			assert.Equal(t, tt.want, sess.Input())
		})
	}
}

func TestRouter_RateLimited(t *testing.T) {
	s := newTestServer(t, false, denyLimiter{})

	w, _ := s.do(t, http.MethodPost, "/v1/sessions", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w, _ = s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_SystemEndpoints(t *testing.T) {
	s := newTestServer(t, false, nil)

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		w, _ := s.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w, env := s.do(t, http.MethodGet, "/v1/activity", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotNil(t, env.Error)
}
