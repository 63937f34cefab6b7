package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"star-core/internal/ast"
	"star-core/internal/conformance"
	"star-core/internal/events"
	"star-core/internal/monitor"
	"star-core/internal/parser"
	"star-core/internal/profile"
	"star-core/internal/runtime"
	"star-core/internal/strategy"
	"star-core/internal/transform"
	"star-core/internal/transpile"
	"star-core/pkg/db"
	"star-core/pkg/i18n"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type sourceRequest struct {
	Source string `json:"source" binding:"required"`
}

type runRequest struct {
	Source  string `json:"source" binding:"required"`
	Profile string `json:"profile"`
}

type conformanceRequest struct {
	Samples []conformance.Sample `json:"samples"`
}

type listRunsQuery struct {
	Limit int `form:"limit"`
}

func (q *listRunsQuery) normalize() {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
}

// runSummary is the response of POST /api/run.
type runSummary struct {
	RunID       string            `json:"run_id"`
	Profile     string            `json:"profile,omitempty"`
	Indicators  []string          `json:"indicators"`
	Plots       []map[string]any  `json:"plots"`
	Bindings    map[string]any    `json:"bindings"`
	Order       []string          `json:"order"`
	Inputs      map[string]any    `json:"inputs"`
	Position    strategy.Position `json:"position"`
	RealizedPnL float64           `json:"realized_pnl"`
	PnL         float64           `json:"pnl"`
	Orders      []strategy.Order  `json:"orders"`
	Trades      []strategy.Trade  `json:"trades"`
	Entries     []strategy.Entry  `json:"entries"`
	Exits       []strategy.Exit   `json:"exits"`
	Ops         int               `json:"ops"`
	OpLimit     int               `json:"op_limit"`
	DurationMs  float64           `json:"duration_ms"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

// parse returns the program for source, served from the cache when possible.
func (s *Server) parse(source string) *ast.Program {
	if p, ok := s.Cache.Get(source); ok {
		if s.Metrics != nil {
			s.Metrics.CacheHit()
		}
		return p
	}
	var timer *monitor.Timer
	if s.Metrics != nil {
		s.Metrics.CacheMiss()
		timer = monitor.NewTimer(s.Metrics.ParseLatency)
	}
	p := parser.Parse(source)
	if timer != nil {
		timer.Stop()
	}
	s.Cache.Set(source, p)
	return p
}

func (s *Server) parseScript(c *gin.Context) {
	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", i18n.Get("InvalidRequest"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": s.parse(req.Source)})
}

func (s *Server) transformScript(c *gin.Context) {
	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", i18n.Get("InvalidRequest"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": transform.Program(s.parse(req.Source))})
}

func (s *Server) transpileScript(c *gin.Context) {
	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", i18n.Get("InvalidRequest"))
		return
	}
	module, err := transpile.ToModule(req.Source)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "TRANSPILE_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"star":   transpile.Render(transform.Program(s.parse(req.Source))),
		"module": json.RawMessage(module),
	})
}

// runConfig resolves the runtime configuration for an optional profile name.
func (s *Server) runConfig(name string) (runtime.Config, error) {
	if name == "" {
		return s.Runtime, nil
	}
	if s.Profiles == nil {
		return runtime.Config{}, fmt.Errorf("%w: %q", profile.ErrUnknownProfile, name)
	}
	return s.Profiles.Config(name, s.Runtime)
}

func (s *Server) runScript(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", i18n.Get("InvalidRequest"))
		return
	}
	cfg, err := s.runConfig(req.Profile)
	if err != nil {
		respondError(c, http.StatusBadRequest, "UNKNOWN_PROFILE", fmt.Sprintf("%s: %q", i18n.Get("UnknownProfile"), req.Profile))
		return
	}

	prog := transform.Program(s.parse(req.Source))
	runID := uuid.NewString()
	log.Printf(i18n.Get("RunStarted"), runID, req.Profile, cfg.OpLimit)
	s.publish(events.EventRunStarted, events.RunStarted{RunID: runID, Profile: req.Profile, OpLimit: cfg.OpLimit})

	start := time.Now()
	res, runErr := runtime.RunProgram(prog, cfg)
	elapsed := time.Since(start)
	if s.Metrics != nil {
		s.Metrics.RunLatency.RecordDuration(elapsed)
	}

	summary := summarize(res, runID, req.Profile, elapsed)
	for i, p := range res.Plots {
		s.publish(events.EventPlot, events.PlotRecorded{RunID: runID, Index: i, Title: p.Title})
	}
	for _, t := range summary.Trades {
		s.publish(events.EventOrderFilled, events.OrderFilled{RunID: runID, ID: t.ID, Side: t.Side, Qty: t.Qty, Price: t.Price})
	}

	record := db.Run{
		ID:          runID,
		Profile:     req.Profile,
		Source:      req.Source,
		Status:      db.RunCompleted,
		Plots:       len(summary.Plots),
		Ops:         summary.Ops,
		RealizedPnL: summary.RealizedPnL,
		DurationMs:  elapsed.Milliseconds(),
	}

	if runErr != nil {
		kind := errorKind(runErr)
		if s.Metrics != nil {
			s.Metrics.RunFailed(kind == "op_limit")
		}
		if kind == "op_limit" {
			log.Printf(i18n.Get("RunOpLimit"), runID, cfg.OpLimit)
		} else {
			log.Printf(i18n.Get("RunFailed"), runID, kind, runErr)
		}
		s.publish(events.EventRunFailed, events.RunFailed{RunID: runID, Kind: kind, Error: runErr.Error()})
		record.Status = db.RunFailed
		record.ErrorKind = kind
		record.Error = runErr.Error()
		s.persist(c, record, summary.Trades)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   runErr.Error(),
			"kind":    kind,
			"run_id":  runID,
			"partial": summary,
		})
		return
	}

	if s.Metrics != nil {
		s.Metrics.RunFinished(len(summary.Plots), len(summary.Trades))
	}
	log.Printf(i18n.Get("RunCompleted"), runID, len(summary.Plots), len(summary.Trades), summary.Ops, elapsed)
	s.publish(events.EventRunCompleted, events.RunCompleted{
		RunID:       runID,
		Plots:       len(summary.Plots),
		Trades:      len(summary.Trades),
		RealizedPnL: summary.RealizedPnL,
		Ops:         summary.Ops,
		Duration:    elapsed,
	})
	s.persist(c, record, summary.Trades)
	c.JSON(http.StatusOK, summary)
}

func summarize(res *runtime.Result, runID, profileName string, elapsed time.Duration) runSummary {
	env := res.Env
	order, values := env.Bindings()
	bindings := make(map[string]any, len(values))
	for k, v := range values {
		bindings[k] = runtime.Export(v)
	}
	inputs := make(map[string]any)
	for k, v := range env.Inputs() {
		inputs[k] = runtime.Export(v)
	}
	plots := make([]map[string]any, 0, len(res.Plots))
	for _, p := range res.Plots {
		plots = append(plots, runtime.ExportPlot(p))
	}

	eng := env.Strategy()
	return runSummary{
		RunID:       runID,
		Profile:     profileName,
		Indicators:  res.Indicators,
		Plots:       plots,
		Bindings:    bindings,
		Order:       order,
		Inputs:      inputs,
		Position:    eng.Position(),
		RealizedPnL: eng.RealizedPnL(),
		PnL:         eng.PnL(),
		Orders:      eng.Orders(),
		Trades:      eng.Trades(),
		Entries:     eng.Entries(),
		Exits:       eng.Exits(),
		Ops:         env.Ops(),
		OpLimit:     env.OpLimit(),
		DurationMs:  float64(elapsed.Microseconds()) / 1000,
	}
}

func errorKind(err error) string {
	var rerr *runtime.RuntimeError
	if errors.As(err, &rerr) {
		return rerr.Kind()
	}
	return "runtime"
}

func (s *Server) publish(e events.Event, payload any) {
	if s.Bus != nil {
		s.Bus.Publish(e, payload)
	}
}

func (s *Server) persist(c *gin.Context, run db.Run, trades []strategy.Trade) {
	if s.DB == nil {
		return
	}
	rows := make([]db.RunTrade, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, db.RunTrade{
			TradeID:    t.ID,
			Side:       t.Side,
			Qty:        t.Qty,
			Price:      t.Price,
			Commission: t.Commission,
			PnL:        t.PnL,
		})
	}
	if _, err := s.DB.CreateRun(c.Request.Context(), run, rows); err != nil {
		log.Printf(i18n.Get("RunPersistFailed"), run.ID, err)
	}
}

func (s *Server) listRuns(c *gin.Context) {
	if s.DB == nil {
		respondError(c, http.StatusServiceUnavailable, "STORE_DISABLED", i18n.Get("StoreDisabled"))
		return
	}
	var q listRunsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", i18n.Get("InvalidRequest"))
		return
	}
	q.normalize()

	runs, err := s.DB.Queries().ListRuns(c.Request.Context(), q.Limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getRun(c *gin.Context) {
	if s.DB == nil {
		respondError(c, http.StatusServiceUnavailable, "STORE_DISABLED", i18n.Get("StoreDisabled"))
		return
	}
	id := c.Param("id")
	q := s.DB.Queries()
	run, err := q.GetRun(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", i18n.Get("RunNotFound"))
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	trades, err := q.ListTrades(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "trades": trades})
}

func (s *Server) getRunEvents(c *gin.Context) {
	if s.DB == nil {
		respondError(c, http.StatusServiceUnavailable, "STORE_DISABLED", i18n.Get("StoreDisabled"))
		return
	}
	evts, err := s.DB.Queries().ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, evts)
}

func (s *Server) listProfiles(c *gin.Context) {
	names := []string{}
	if s.Profiles != nil {
		names = s.Profiles.Names()
	}
	c.JSON(http.StatusOK, gin.H{"profiles": names})
}

func (s *Server) runConformance(c *gin.Context) {
	var req conformanceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", i18n.Get("InvalidRequest"))
			return
		}
	}
	samples := req.Samples
	if len(samples) == 0 {
		samples = conformance.BuiltinSamples()
	}
	c.JSON(http.StatusOK, conformance.Default().Run(samples))
}

// getMetrics returns run metrics.
func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		respondError(c, http.StatusServiceUnavailable, "METRICS_UNAVAILABLE", "metrics not available")
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

// getPromMetrics returns a minimal Prometheus text exposition of key metrics.
func (s *Server) getPromMetrics(c *gin.Context) {
	if s.Metrics == nil {
		c.String(http.StatusServiceUnavailable, "# metrics not available\n")
		return
	}
	snapshot := s.Metrics.GetSnapshot()

	var b strings.Builder
	// Counters
	fmt.Fprintf(&b, "star_runs_total %d\n", snapshot.Runs)
	fmt.Fprintf(&b, "star_run_errors_total %d\n", snapshot.RunErrors)
	fmt.Fprintf(&b, "star_op_limit_aborts_total %d\n", snapshot.OpLimitAborts)
	fmt.Fprintf(&b, "star_plots_total %d\n", snapshot.Plots)
	fmt.Fprintf(&b, "star_fills_total %d\n", snapshot.Fills)
	fmt.Fprintf(&b, "star_cache_hits_total %d\n", snapshot.CacheHits)
	fmt.Fprintf(&b, "star_cache_misses_total %d\n", snapshot.CacheMisses)
	fmt.Fprintf(&b, "star_api_requests_total %d\n", snapshot.Requests)

	// Gauges for latency (ms)
	writeLatency := func(prefix string, ls monitor.LatencyStats) {
		if ls.Count == 0 {
			return
		}
		fmt.Fprintf(&b, "star_%s_latency_ms_avg %f\n", prefix, ls.Avg)
		fmt.Fprintf(&b, "star_%s_latency_ms_p50 %f\n", prefix, ls.P50)
		fmt.Fprintf(&b, "star_%s_latency_ms_p95 %f\n", prefix, ls.P95)
		fmt.Fprintf(&b, "star_%s_latency_ms_p99 %f\n", prefix, ls.P99)
	}
	writeLatency("run", snapshot.RunLatency)
	writeLatency("parse", snapshot.ParseLatency)
	writeLatency("api", snapshot.RequestLatency)

	fmt.Fprintf(&b, "star_goroutines %d\n", snapshot.GoroutineCount)
	fmt.Fprintf(&b, "star_heap_alloc_bytes %d\n", snapshot.HeapAlloc)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, b.String())
}
