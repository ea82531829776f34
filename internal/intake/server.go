// Package intake is the thin HTTP surface: webhook signal ingestion
// and read-only reporting. It validates and inserts; all execution
// logic lives in the engine.
package intake

import (
	"net/http"
	"strconv"
	"strings"

	"main/internal/contract"
	"main/internal/model"
	"main/internal/pnl"
	"main/internal/store"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/decimal"
	"github.com/yanun0323/logs"
)

// Server serves the intake and reporting routes.
type Server struct {
	store *store.Store
	ref   *contract.Reference
}

func NewServer(st *store.Store, ref *contract.Reference) *Server {
	return &Server{store: st, ref: ref}
}

type webhookRequest struct {
	Symbol   string          `json:"symbol"`
	Action   string          `json:"action"`
	Price    decimal.Decimal `json:"price"`
	Volume   int             `json:"volume"`
	Strategy string          `json:"strategy"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Router builds the HTTP mux, including the prometheus endpoint for
// the gatherer backing the engine's counters.
func (s *Server) Router(gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /api/signals", s.handleSignals)
	mux.HandleFunc("GET /api/profits", s.handleProfits)
	mux.HandleFunc("GET /api/account", s.handleAccount)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := sonic.ConfigFastest.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "invalid request body"})
		return
	}

	if req.Symbol == "" || req.Action == "" || req.Strategy == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "missing required fields"})
		return
	}
	price, err := strconv.ParseFloat(req.Price.String(), 64)
	if err != nil || price <= 0 {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "invalid price"})
		return
	}

	sig := model.Signal{
		Symbol:   req.Symbol,
		Action:   model.Action(strings.ToUpper(req.Action)),
		Price:    price,
		Volume:   req.Volume,
		Strategy: req.Strategy,
	}
	if err := s.store.InsertPending(&sig); err != nil {
		logs.Errorf("webhook insert: %+v", err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{Error: "store unavailable"})
		return
	}

	logs.Infof("received signal: %s %s price:%v volume:%d strategy:%s",
		sig.Symbol, sig.Action, sig.Price, sig.Volume, sig.Strategy)
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Signal received"})
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := s.store.Recent(200)
	if err != nil {
		logs.Errorf("list signals: %+v", err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{Error: "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: signals})
}

func (s *Server) handleProfits(w http.ResponseWriter, r *http.Request) {
	filled, err := s.store.Filled()
	if err != nil {
		logs.Errorf("list filled signals: %+v", err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{Error: "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data:    pnl.Reconstruct(s.ref, filled),
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	acc, ok, err := s.store.Account()
	if err != nil {
		logs.Errorf("read account: %+v", err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{Error: "store unavailable"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, apiResponse{Error: "no account data available"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: acc})
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigFastest.NewEncoder(w).Encode(body); err != nil {
		logs.Errorf("encode response: %+v", err)
	}
}
