package diag

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sessamekesh/turnlink/pkg/client"
	"github.com/sessamekesh/turnlink/pkg/message"
	"github.com/sessamekesh/turnlink/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixedStatus struct {
	status *client.Status
}

func (f fixedStatus) LatestStatus() *client.Status {
	return f.status
}

func get(t *testing.T, server *httptest.Server, path string) (*http.Response, string) {
	resp, err := http.Get(server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestRoutes_Status(t *testing.T) {
	d := CreateDiagServer(DiagServerParams{
		Status: fixedStatus{status: &client.Status{
			State:    "InGame",
			PlayerId: "p1",
			Turn:     12,
			Quality:  client.QualityStatus{Rating: "Good", AverageLatencyMs: 42},
		}},
		Gatherer: prometheus.NewRegistry(),
		Logger:   zaptest.NewLogger(t),
	})
	server := httptest.NewServer(d.Routes())
	defer server.Close()

	resp, body := get(t, server, "/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	assert.Equal(t, "InGame", decoded["state"])
	assert.Equal(t, "p1", decoded["playerId"])
	assert.Equal(t, 12.0, decoded["turn"])
	assert.Equal(t, "Good", decoded["quality"].(map[string]any)["rating"])
}

func TestRoutes_StatusUnavailable(t *testing.T) {
	d := CreateDiagServer(DiagServerParams{
		Status:   fixedStatus{},
		Gatherer: prometheus.NewRegistry(),
		Logger:   zaptest.NewLogger(t),
	})
	server := httptest.NewServer(d.Routes())
	defer server.Close()

	resp, _ := get(t, server, "/status")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRoutes_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.CreateMetrics(metrics.MetricsParams{Registry: reg})
	m.MessageSent(message.MessageKind_Ping)
	m.Desync()

	d := CreateDiagServer(DiagServerParams{Gatherer: reg, Logger: zaptest.NewLogger(t)})
	server := httptest.NewServer(d.Routes())
	defer server.Close()

	resp, body := get(t, server, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `turnlink_messages_sent_total{kind="Ping"} 1`)
	assert.Contains(t, body, "turnlink_desyncs_total 1")
}

func TestRoutes_Healthz(t *testing.T) {
	d := CreateDiagServer(DiagServerParams{Gatherer: prometheus.NewRegistry(), Logger: zaptest.NewLogger(t)})
	server := httptest.NewServer(d.Routes())
	defer server.Close()

	resp, body := get(t, server, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestDiagServer_StopsOnCancel(t *testing.T) {
	d := CreateDiagServer(DiagServerParams{
		ListenAddress: "127.0.0.1:0",
		Gatherer:      prometheus.NewRegistry(),
		Logger:        zaptest.NewLogger(t),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("diagnostics server did not stop")
	}
}
