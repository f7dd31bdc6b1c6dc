package server

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/cellexec/backend"
	"github.com/jonwraymond/cellexec/exec"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Exec == nil {
		e, err := exec.New(exec.Options{DisableCapture: true})
		require.NoError(t, err)
		opts.Exec = e
	}
	s, err := New(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, jsonAPI.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNew_RequiresExec(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestNew_RejectsBasePath(t *testing.T) {
	e, err := exec.New(exec.Options{DisableCapture: true})
	require.NoError(t, err)
	_, err = New(context.Background(), Options{Exec: e, BasePath: "kernel/"})
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestLiveness(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRun_Scenario(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/run", `{"cellId":"c1","code":"x = 1","predecessorIds":[],"capturedOut":["x"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "", body["output"])
	assert.Equal(t, "", body["error"])
	assert.Equal(t, "1", stringify(body["capturedOut"].(map[string]any)["x"]))

	rec = do(t, h, http.MethodPost, "/run", `{"cellId":"c2","code":"y = x + 1","predecessorIds":["c1"],"capturedOut":["y"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", stringify(decode(t, rec)["capturedOut"].(map[string]any)["y"]))

	rec = do(t, h, http.MethodPost, "/run", `{"cellId":"c3","code":"print(x)\nfail(\"boom\")","predecessorIds":["c1"]}`)
	require.Equal(t, http.StatusOK, rec.Code, "cell faults are reported with 200")
	body = decode(t, rec)
	assert.Contains(t, body["output"], "1")
	assert.Contains(t, body["error"], "boom")
	assert.Empty(t, body["capturedOut"])
}

func stringify(v any) string {
	data, _ := jsonAPI.Marshal(v)
	return string(data)
}

func TestRun_InjectedValues(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	rec := do(t, h, http.MethodPost, "/run",
		`{"cellId":"c1","code":"total = offset\nfor v in values:\n  total += v","capturedIn":{"values":[1,2,3],"offset":10},"capturedOut":["total"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "16", stringify(decode(t, rec)["capturedOut"].(map[string]any)["total"]))
}

func TestRun_Validation(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"cellId":`, "malformed"},
		{"missing code", `{"cellId":"c1"}`, "code"},
		{"missing cell id", `{"code":"x = 1"}`, "cellId"},
		{"wrong type", `{"cellId":1,"code":"x = 1"}`, "malformed"},
		{"blank cell id", `{"cellId":" ","code":"x = 1"}`, "cellId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/run", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, decode(t, rec)["detail"], tt.want)
		})
	}
}

func TestRun_BodyTooLarge(t *testing.T) {
	h := newTestServer(t, Options{MaxBodyBytes: 16}).Handler()
	rec := do(t, h, http.MethodPost, "/run", `{"cellId":"c1","code":"x = 1"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRun_MethodNotAllowed(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	rec := do(t, h, http.MethodGet, "/run", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBasePath(t *testing.T) {
	h := newTestServer(t, Options{BasePath: "/kernel"}).Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/kernel", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/kernel/", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/kernel/run", `{"cellId":"c","code":""}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/run", `{"cellId":"c","code":""}`).Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, Options{RateLimit: 0.001, RateBurst: 2}).Handler()
	body := `{"cellId":"c","code":""}`

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/run", body).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/run", body).Code)
	rec := do(t, h, http.MethodPost, "/run", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/", "").Code, "liveness is never limited")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, err := exec.New(exec.Options{DisableCapture: true, Registerer: reg})
	require.NoError(t, err)
	h := newTestServer(t, Options{Exec: e, Gatherer: reg}).Handler()

	do(t, h, http.MethodPost, "/run", `{"cellId":"c","code":"x = 1"}`)
	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cellexec_cells_total{outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "cellexec_store_entries 1")
}

func TestMetrics_DisabledWithoutGatherer(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics", "").Code)
}

func TestTools(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := do(t, h, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tools := decode(t, rec)["tools"].([]any)
	require.Len(t, tools, 3)
	var ids []string
	for _, tl := range tools {
		ids = append(ids, tl.(map[string]any)["id"].(string))
	}
	assert.ElementsMatch(t, []string{"kernel:cells", "kernel:reset", "kernel:run_cell"}, ids)

	rec = do(t, h, http.MethodGet, "/tools?q=execute+notebook&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tools = decode(t, rec)["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "kernel:run_cell", tools[0].(map[string]any)["id"])

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, http.MethodGet, "/tools?limit=0", "").Code)
}

func TestToolDoc(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := do(t, h, http.MethodGet, "/tools/kernel:run_cell?detail=full", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "run_cell", body["name"])
	assert.NotEmpty(t, body["summary"])
	assert.NotNil(t, body["inputSchema"])

	rec = do(t, h, http.MethodGet, "/tools/kernel:nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClose_UnregistersBackends(t *testing.T) {
	s := newTestServer(t, Options{})
	h := s.Handler()

	require.NoError(t, s.Close())
	assert.Empty(t, s.registry.Names())

	rec := do(t, h, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["tools"])

	_, err := s.agg.Execute(context.Background(), "kernel:cells", nil)
	assert.ErrorIs(t, err, backend.ErrBackendNotFound)

	require.NoError(t, s.Close(), "second Close")
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := newTestServer(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln, 5*time.Second) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/run", "application/json",
		strings.NewReader(`{"cellId":"c","code":"x = 1"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}
