// Package health serves the keeper's operational HTTP surface: liveness,
// a status snapshot of the engine and host, and Prometheus metrics.
package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/solheir/heirkeeper/internal/engine"
	"github.com/solheir/heirkeeper/pkg/logging"
	"github.com/solheir/heirkeeper/pkg/models"
)

// Server exposes /healthz, /status and /metrics
type Server struct {
	keeper    *engine.Keeper
	logger    *logging.Logger
	startTime time.Time
	network   string
	operator  string
	httpSrv   *http.Server
}

// NewServer creates the health server
func NewServer(addr string, keeper *engine.Keeper, network, operator string, logger *logging.Logger) *Server {
	s := &Server{
		keeper:    keeper,
		logger:    logger,
		startTime: time.Now(),
		network:   network,
		operator:  operator,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start listens in the background
func (s *Server) Start() {
	go func() {
		s.logger.Info("health server listening", logging.Fields{"addr": s.httpSrv.Addr})
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("health server error", logging.Fields{"error": err.Error()})
		}
	}()
}

// HTTPServer exposes the underlying server for shutdown registration
func (s *Server) HTTPServer() *http.Server {
	return s.httpSrv
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

type statusResponse struct {
	Running       bool                `json:"running"`
	Network       string              `json:"network"`
	Operator      string              `json:"operator"`
	UptimeSeconds float64             `json:"uptime_seconds"`
	LastCycle     *models.CycleReport `json:"last_cycle,omitempty"`
	Host          hostStats           `json:"host"`
}

type hostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsed    uint64  `json:"memory_used_bytes"`
	MemoryPercent float64 `json:"memory_percent"`
	Goroutines    int     `json:"goroutines"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	host := hostStats{Goroutines: runtime.NumGoroutine()}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		host.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		host.MemoryUsed = vm.Used
		host.MemoryPercent = vm.UsedPercent
	}

	resp := statusResponse{
		Running:       s.keeper.Running(),
		Network:       s.network,
		Operator:      s.operator,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		LastCycle:     s.keeper.LastReport(),
		Host:          host,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode status", logging.Fields{"error": err.Error()})
	}
}
