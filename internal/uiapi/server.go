package uiapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/awaistahir/offgrid/internal/catalog"
	"github.com/awaistahir/offgrid/internal/engine"
	"github.com/awaistahir/offgrid/internal/inventory"
	"github.com/awaistahir/offgrid/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const version = "1.0.0"

type Server struct {
	store     *store.Store
	inventory *inventory.Service
	cfg       engine.Config
	curve     engine.IrradianceCurve
	logger    *slog.Logger
}

// NewServer creates an API server. A nil curve uses the reference profile.
func NewServer(st *store.Store, cfg engine.Config, curve engine.IrradianceCurve, logger *slog.Logger) *Server {
	if curve == nil {
		curve = engine.ReferenceCurve()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:     st,
		inventory: inventory.NewService(st),
		cfg:       cfg,
		curve:     curve,
		logger:    logger,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for local development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/config", s.handleGetConfig)
		r.Get("/irradiance", s.handleGetIrradiance)

		r.Get("/loads", s.handleGetLoads)
		r.Post("/loads", s.handleCreateLoad)
		r.Get("/loads/{id}", s.handleGetLoad)
		r.Put("/loads/{id}", s.handleUpdateLoad)
		r.Delete("/loads/{id}", s.handleDeleteLoad)
		r.Post("/loads/{id}/toggle", s.handleToggleLoad)

		r.Get("/catalog", s.handleGetCatalog)
		r.Put("/catalog", s.handleReplaceCatalog)

		r.Post("/size", s.handleSize)
		r.Get("/costs", s.handleCosts)

		r.Get("/inventory", s.handleGetInventory)
		r.Post("/inventory/movements", s.handleStockMovement)
		r.Get("/sales", s.handleGetSales)
		r.Post("/sales", s.handleCreateSale)
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"version":   version,
		"sun_hours": s.cfg.SunHours(s.curve),
	})
}

type configResponse struct {
	GridCostPerKWh   float64                 `json:"grid_cost_per_kwh"`
	Currency         string                  `json:"currency"`
	LifetimeYears    float64                 `json:"lifetime_years"`
	ReferenceVoltage float64                 `json:"reference_voltage"`
	SystemVoltage    float64                 `json:"system_voltage"`
	BatteryPolicy    engine.BatteryPolicy    `json:"battery_policy"`
	SunHoursMode     engine.SunHoursMode     `json:"sun_hours_mode"`
	FixedSunHours    float64                 `json:"fixed_sun_hours"`
	DepthOfDischarge map[engine.Tier]float64 `json:"depth_of_discharge"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, configResponse(s.cfg))
}

func (s *Server) handleGetIrradiance(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.curve)
}

func (s *Server) handleGetLoads(w http.ResponseWriter, r *http.Request) {
	loads, err := s.store.GetLoads(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, loads)
}

func (s *Server) handleCreateLoad(w http.ResponseWriter, r *http.Request) {
	var load engine.ApplianceLoad
	if err := json.NewDecoder(r.Body).Decode(&load); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := catalog.ValidateLoads([]engine.ApplianceLoad{load}); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if load.ID == "" {
		load.ID = uuid.NewString()
	}
	if err := s.store.SaveLoad(r.Context(), load); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, load)
}

func (s *Server) handleGetLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	load, err := s.store.GetLoad(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, load)
}

func (s *Server) handleUpdateLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var load engine.ApplianceLoad
	if err := json.NewDecoder(r.Body).Decode(&load); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := catalog.ValidateLoads([]engine.ApplianceLoad{load}); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.store.GetLoad(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}

	load.ID = id
	if err := s.store.SaveLoad(r.Context(), load); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, load)
}

func (s *Server) handleDeleteLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteLoad(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted", "id": id})
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleToggleLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.SetLoadEnabled(r.Context(), id, req.Enabled); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "enabled": req.Enabled})
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCatalog(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleReplaceCatalog(w http.ResponseWriter, r *http.Request) {
	var c engine.Catalog
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	normalized := engine.Catalog{}
	for f, tiers := range c {
		family, ok := engine.ParseFamily(string(f))
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown family: "+string(f))
			return
		}
		for t, entries := range tiers {
			tier, ok := engine.ParseTier(string(t))
			if !ok {
				respondError(w, http.StatusBadRequest, "unknown tier: "+string(t))
				return
			}
			for _, e := range entries {
				e.Name = strings.TrimSpace(e.Name)
				normalized.Add(family, tier, e)
			}
		}
	}
	c = normalized
	if err := catalog.ValidateCatalog(c); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.ReplaceCatalog(r.Context(), c); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.store.SeedStock(r.Context(), inventory.Seed(c, inventory.DefaultStock)); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// SizeRequest optionally overrides the stored loads and the tariff
type SizeRequest struct {
	Loads          []engine.ApplianceLoad `json:"loads,omitempty"`
	GridCostPerKWh *float64               `json:"grid_cost_per_kwh,omitempty"`
	LifetimeYears  *float64               `json:"lifetime_years,omitempty"`
}

// report runs the engine over the stored catalog and the requested or stored loads
func (s *Server) report(r *http.Request, req SizeRequest) (engine.Report, int, error) {
	ctx := r.Context()
	loads := req.Loads
	if loads == nil {
		var err error
		if loads, err = s.store.GetLoads(ctx); err != nil {
			return engine.Report{}, http.StatusInternalServerError, err
		}
	} else if err := catalog.ValidateLoads(loads); err != nil {
		return engine.Report{}, http.StatusBadRequest, err
	}

	c, err := s.store.GetCatalog(ctx)
	if err != nil {
		return engine.Report{}, http.StatusInternalServerError, err
	}

	cfg := s.cfg
	if req.GridCostPerKWh != nil {
		cfg.GridCostPerKWh = *req.GridCostPerKWh
	}
	if req.LifetimeYears != nil {
		cfg.LifetimeYears = *req.LifetimeYears
	}
	if err := cfg.Validate(); err != nil {
		return engine.Report{}, http.StatusBadRequest, err
	}

	report := engine.Run(loads, c, s.curve, cfg)
	s.logger.DebugContext(ctx, "sizing run",
		slog.Int("loads", len(loads)),
		slog.Float64("dailyKWh", report.DailyKWh),
		slog.Float64("panelWatts", report.Sizing.PanelWatts),
		slog.Float64("batteryAh", report.Sizing.BatteryAh),
	)
	return report, http.StatusOK, nil
}

func (s *Server) handleSize(w http.ResponseWriter, r *http.Request) {
	var req SizeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	report, status, err := s.report(r, req)
	if err != nil {
		respondError(w, status, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

type costSeries struct {
	Tier   engine.Tier        `json:"tier"`
	Points []engine.CostPoint `json:"points"`
}

func (s *Server) handleCosts(w http.ResponseWriter, r *http.Request) {
	report, status, err := s.report(r, SizeRequest{})
	if err != nil {
		respondError(w, status, err.Error())
		return
	}

	// the chart has one point per whole year
	years := int(math.Round(s.cfg.LifetimeYears))
	series := []costSeries{}
	for _, t := range report.Tiers {
		series = append(series, costSeries{
			Tier:   t.Tier,
			Points: engine.CumulativeCosts(t.Financial.SystemCost, report.DailyKWh, s.cfg.GridCostPerKWh, years),
		})
	}
	respondJSON(w, http.StatusOK, series)
}

func (s *Server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	items, err := s.inventory.Stock(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, items)
}

type movementRequest struct {
	Family   string `json:"family"`
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	// Direction is "in" to receive stock or "out" to issue it
	Direction string `json:"direction"`
}

func (s *Server) handleStockMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	family, ok := engine.ParseFamily(req.Family)
	if !ok || req.Product == "" {
		respondError(w, http.StatusBadRequest, "family and product are required")
		return
	}

	var qty int
	var err error
	switch req.Direction {
	case "in":
		qty, err = s.inventory.Receive(r.Context(), family, req.Product, req.Quantity)
	case "out":
		qty, err = s.inventory.Issue(r.Context(), family, req.Product, req.Quantity)
	default:
		respondError(w, http.StatusBadRequest, "direction must be in or out")
		return
	}
	if err != nil {
		respondInventoryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inventory.Item{Family: family, Product: req.Product, Quantity: qty})
}

func (s *Server) handleGetSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.inventory.Sales(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

type saleRequest struct {
	Tier     string `json:"tier"`
	Customer string `json:"customer"`
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tier, ok := engine.ParseTier(req.Tier)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown tier: "+req.Tier)
		return
	}

	report, status, err := s.report(r, SizeRequest{})
	if err != nil {
		respondError(w, status, err.Error())
		return
	}
	var kit engine.Kit
	for _, t := range report.Tiers {
		if t.Tier == tier {
			kit = t.Kit
		}
	}

	sale, err := s.inventory.Sell(r.Context(), tier, kit, req.Customer, s.cfg.Currency)
	if err != nil {
		respondInventoryError(w, err)
		return
	}
	s.logger.InfoContext(r.Context(), "kit sold",
		slog.String("sale", sale.ID),
		slog.String("tier", string(tier)),
		slog.String("total", sale.Total.String()),
	)
	respondJSON(w, http.StatusCreated, sale)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

func respondInventoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrNegativeQuantity):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, inventory.ErrInsufficientStock), errors.Is(err, inventory.ErrIncompleteKit):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
