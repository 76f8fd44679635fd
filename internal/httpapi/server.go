package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"csms/internal/config"
	"csms/internal/models"
	"csms/internal/repo"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ConnectionLister reports which charge points currently hold a socket.
type ConnectionLister interface {
	Connected() []string
}

// Server is the administrative read/write surface. It shares the persistence
// store with the message engine but never participates in OCPP traffic.
type Server struct {
	Cfg          config.Config
	ChargePoints *repo.ChargePointsRepo
	Statuses     *repo.ConnectorStatusRepo
	Transactions *repo.TransactionsRepo
	MeterValues  *repo.MeterValuesRepo
	ConfigKeys   *repo.ConfigKeysRepo
	Connections  ConnectionLister
	Gatherer     prometheus.Gatherer
}

func NewServer(
	cfg config.Config,
	chargePoints *repo.ChargePointsRepo,
	statuses *repo.ConnectorStatusRepo,
	transactions *repo.TransactionsRepo,
	meterValues *repo.MeterValuesRepo,
	configKeys *repo.ConfigKeysRepo,
	connections ConnectionLister,
	gatherer prometheus.Gatherer,
) *Server {
	return &Server{
		Cfg:          cfg,
		ChargePoints: chargePoints,
		Statuses:     statuses,
		Transactions: transactions,
		MeterValues:  meterValues,
		ConfigKeys:   configKeys,
		Connections:  connections,
		Gatherer:     gatherer,
	}
}

// Routes wires the admin API. The OCPP WebSocket endpoint is mounted by main
// on the same router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1/chargepoints", func(r chi.Router) {
		r.Use(RequestID)
		r.Get("/connected", s.ListConnected)
		r.Get("/{chargePointId}", s.GetChargePoint)
		r.Get("/{chargePointId}/status", s.ListConnectorStatus)
		r.Get("/{chargePointId}/transactions", s.ListTransactions)
		r.Get("/{chargePointId}/energy", s.GetEnergyWindow)
		r.Get("/{chargePointId}/config", s.ListConfigKeys)
		r.With(func(next http.Handler) http.Handler {
			return RequireBearer(s.Cfg.AdminAPIKey, next)
		}).Put("/{chargePointId}/config/{key}", s.PutConfigKey)
	})
}

func (s *Server) ListConnected(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"chargePointIds": s.Connections.Connected()})
}

func (s *Server) GetChargePoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chargePointId")
	cp, err := s.ChargePoints.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if cp == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]any{
		"id":          cp.ID,
		"ocppVersion": cp.OcppVersion,
		"model":       cp.Model,
		"vendor":      cp.Vendor,
		"lastBoot":    cp.LastBoot,
	})
}

func (s *Server) ListConnectorStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chargePointId")
	items, err := s.Statuses.ListLatest(r.Context(), id)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, ev := range items {
		out = append(out, map[string]any{
			"connectorId": ev.ConnectorID,
			"status":      ev.Status,
			"errorCode":   ev.ErrorCode,
			"ts":          ev.Ts,
		})
	}
	writeJSON(w, out)
}

func (s *Server) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chargePointId")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	items, err := s.Transactions.ListByChargePoint(r.Context(), id, limit)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, tx := range items {
		out = append(out, map[string]any{
			"transactionId": tx.ID,
			"connectorId":   tx.ConnectorID,
			"idTag":         tx.IdTag,
			"meterStart":    tx.MeterStart,
			"startTs":       tx.StartTs,
			"meterStop":     tx.MeterStop,
			"stopTs":        tx.StopTs,
			"status":        tx.Status,
		})
	}
	writeJSON(w, out)
}

func (s *Server) GetEnergyWindow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chargePointId")
	from, err1 := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	to, err2 := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err1 != nil || err2 != nil || !to.After(from) {
		http.Error(w, "from/to must be RFC3339 with to > from", http.StatusBadRequest)
		return
	}
	total, err := s.MeterValues.EnergyTotal(r.Context(), id, from, to)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"chargePointId": id,
		"from":          from,
		"to":            to,
		"energyWh":      total,
	})
}

func (s *Server) ListConfigKeys(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chargePointId")
	items, err := s.ConfigKeys.List(r.Context(), id)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, ck := range items {
		out = append(out, map[string]any{
			"key":       ck.Key,
			"value":     ck.Value,
			"updatedAt": ck.UpdatedAt,
		})
	}
	writeJSON(w, out)
}

type putConfigKeyReq struct {
	Value string `json:"value"`
}

func (s *Server) PutConfigKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chargePointId")
	key := chi.URLParam(r, "key")

	var req putConfigKeyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	if err := s.ConfigKeys.Upsert(r.Context(), models.ConfigKey{
		ChargePointID: id,
		Key:           key,
		Value:         req.Value,
	}); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
