package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
)

type alerter interface {
	Snapshot() domain.TriggerState
	TriggerManual(ctx context.Context) (*domain.TriggerRecord, domain.NoFireReason, error)
	MaxTriggers() int
	Complete() bool
}

// Server exposes a small operator surface: trigger state inspection and a
// manual trigger endpoint.
type Server struct {
	Addr    string
	Alerter alerter
	l       *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(l *zap.Logger, addr string, a alerter) *Server {
	return &Server{Addr: addr, Alerter: a, l: l}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/trigger", s.handleTrigger)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusResponse struct {
	TriggerCount       int                    `json:"trigger_count"`
	MaxTriggers        int                    `json:"max_triggers"`
	Complete           bool                   `json:"complete"`
	LastTriggerDate    string                 `json:"last_trigger_date,omitempty"`
	ReferenceClose     string                 `json:"reference_close,omitempty"`
	ReferenceCloseDate string                 `json:"reference_close_date,omitempty"`
	TriggerHistory     []domain.TriggerRecord `json:"trigger_history"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := s.Alerter.Snapshot()
	resp := statusResponse{
		TriggerCount:       state.TriggerCount,
		MaxTriggers:        s.Alerter.MaxTriggers(),
		Complete:           s.Alerter.Complete(),
		LastTriggerDate:    state.LastTriggerDate,
		ReferenceCloseDate: state.ReferenceCloseDate,
		TriggerHistory:     state.TriggerHistory,
	}
	if !state.ReferenceClose.IsZero() {
		resp.ReferenceClose = state.ReferenceClose.String()
	}
	if resp.TriggerHistory == nil {
		resp.TriggerHistory = []domain.TriggerRecord{}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type triggerResponse struct {
	Fired  bool                  `json:"fired"`
	Reason domain.NoFireReason   `json:"reason,omitempty"`
	Record *domain.TriggerRecord `json:"record,omitempty"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	record, reason, err := s.Alerter.TriggerManual(r.Context())
	if err != nil {
		s.l.Error("manual trigger failed", zap.Error(err))
		http.Error(w, "manual trigger failed", http.StatusInternalServerError)
		return
	}

	if record == nil {
		s.writeJSON(w, http.StatusConflict, triggerResponse{Fired: false, Reason: reason})
		return
	}
	s.writeJSON(w, http.StatusOK, triggerResponse{Fired: true, Record: record})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Warn("write response", zap.Error(err))
	}
}
