// Package diag serves a small read-only HTTP surface for a running client:
// Prometheus metrics, the latest client status, and a liveness probe.
package diag

import (
	"context"
	"encoding/json"
	goerrs "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sessamekesh/turnlink/pkg/client"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// StatusSource is satisfied by *client.Client.
type StatusSource interface {
	LatestStatus() *client.Status
}

type DiagServerParams struct {
	ListenAddress string
	Status        StatusSource
	Gatherer      prometheus.Gatherer
	Logger        *zap.Logger
}

type DiagServer struct {
	params DiagServerParams
	log    *zap.Logger
}

func CreateDiagServer(params DiagServerParams) *DiagServer {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	if params.Gatherer == nil {
		params.Gatherer = prometheus.DefaultGatherer
	}

	return &DiagServer{
		params: params,
		log:    logger.With(zap.String("component", "DiagServer")),
	}
}

func (d *DiagServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", healthz)
	r.Get("/status", d.status)
	r.Handle("/metrics", promhttp.HandlerFor(d.params.Gatherer, promhttp.HandlerOpts{}))
	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (d *DiagServer) status(w http.ResponseWriter, r *http.Request) {
	if d.params.Status == nil {
		http.Error(w, "no client attached", http.StatusServiceUnavailable)
		return
	}
	status := d.params.Status.LatestStatus()
	if status == nil {
		http.Error(w, "status not yet published", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		d.log.Warn("Failed to write status response", zap.Error(err))
	}
}

// Start serves until ctx is cancelled, then shuts the server down gracefully.
func (d *DiagServer) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              d.params.ListenAddress,
		Handler:           d.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		d.log.Info("Starting diagnostics server", zap.String("address", d.params.ListenAddress))
		if err := server.ListenAndServe(); !goerrs.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			d.log.Error("Diagnostics server stopped unexpectedly", zap.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownRelease()
	if err := server.Shutdown(shutdownCtx); err != nil {
		d.log.Error("Failed to gracefully shut down diagnostics server", zap.Error(err))
		return err
	}
	d.log.Info("Diagnostics server shut down")
	return nil
}
