package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hanamilabs/frc-clock-bot/internal/domain"
	"github.com/hanamilabs/frc-clock-bot/internal/ports"
	"github.com/hanamilabs/frc-clock-bot/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

var ErrServerClosed = http.ErrServerClosed

type ConnectivityCheck func(ctx context.Context) error

type HealthServer struct {
	logger        *slog.Logger
	httpServer    *http.Server
	startedAt     time.Time
	tba           ConnectivityCheck
	transport     ConnectivityCheck
	transportName string
	history       ports.TickHistory
}

type serviceCheck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type healthResponse struct {
	UptimeSeconds int64        `json:"uptimeSeconds"`
	TBA           serviceCheck `json:"tba"`
	Transport     struct {
		Name string `json:"name"`
		serviceCheck
	} `json:"transport"`
}

type tickItem struct {
	ID         string `json:"id"`
	At         string `json:"at"`
	Candidate  string `json:"candidate"`
	Outcome    string `json:"outcome"`
	TeamNumber int    `json:"teamNumber,omitempty"`
	Nickname   string `json:"nickname,omitempty"`
	Error      string `json:"error,omitempty"`
}

func NewHealthServer(
	port int,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
	transportName string,
	tba ConnectivityCheck,
	transport ConnectivityCheck,
	history ports.TickHistory,
) *HealthServer {
	server := &HealthServer{
		logger:        logger,
		startedAt:     time.Now(),
		tba:           tba,
		transport:     transport,
		history:       history,
		transportName: transportName,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.healthHandler)
	mux.HandleFunc("/ticks", server.ticksHandler)
	if metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	server.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server
}

func (s *HealthServer) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *HealthServer) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *HealthServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res := healthResponse{UptimeSeconds: int64(time.Since(s.startedAt).Seconds())}
	res.Transport.Name = s.transportName

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		res.TBA = runCheck(ctx, s.tba)
	}()

	go func() {
		defer wg.Done()
		res.Transport.serviceCheck = runCheck(ctx, s.transport)
	}()

	wg.Wait()

	status := http.StatusOK
	if !res.TBA.OK || !res.Transport.OK {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, res)
}

func (s *HealthServer) ticksHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		http.Error(w, "tick history requires STORE_BACKEND=sqlite", http.StatusNotFound)
		return
	}
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := s.history.RecentTicks(r.Context(), limit)
	if err != nil {
		s.logger.Error("load tick history failed", "error", err)
		http.Error(w, "tick history unavailable", http.StatusInternalServerError)
		return
	}
	items := lo.Map(runs, func(run domain.TickRun, _ int) tickItem {
		return tickItem{
			ID:         run.ID,
			At:         run.At.Format(time.RFC3339),
			Candidate:  run.Candidate,
			Outcome:    string(run.Outcome),
			TeamNumber: run.TeamNumber,
			Nickname:   run.Nickname,
			Error:      run.Error,
		}
	})
	s.writeJSON(w, http.StatusOK, map[string]any{"ticks": items})
}

func (s *HealthServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode json response failed", "error", err)
	}
}

func runCheck(ctx context.Context, check ConnectivityCheck) serviceCheck {
	if check == nil {
		return serviceCheck{OK: true}
	}
	return checkFromErr(check(ctx))
}

func checkFromErr(err error) serviceCheck {
	if err == nil {
		return serviceCheck{OK: true}
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "unknown error"
	}
	return serviceCheck{OK: false, Error: msg}
}

func IsServerClosed(err error) bool {
	return errors.Is(err, ErrServerClosed)
}
