package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanlens/usi-cli/internal/calculator"
	"github.com/urbanlens/usi-cli/internal/classify"
	"github.com/urbanlens/usi-cli/internal/dataset"
	"github.com/urbanlens/usi-cli/internal/normalize"
	"github.com/urbanlens/usi-cli/internal/projector"
	"github.com/urbanlens/usi-cli/internal/report"
	"github.com/urbanlens/usi-cli/internal/resolve"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the map and calculator API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		source, _ := cmd.Flags().GetString("source")
		if source == "" {
			source = cfg.Dataset.Source
		}

		candidates, err := initCandidates()
		if err != nil {
			return err
		}

		loader := initLoader()
		if st := openCachedStore(ctx); st != nil {
			defer st.Close() //nolint:errcheck
			loader = loader.WithCache(storeCache{st: st})
		}

		env := &serverEnv{
			loader:     loader,
			candidates: candidates,
			source:     source,
			slots:      cfg.Server.Slots,
			categories: cfg.Calculator.Categories,
		}

		// Warm the dataset up front; the server still starts when the
		// source is unreachable, answering 503 until a refresh succeeds.
		if source != "" {
			if _, err := env.refresh(ctx, source); err != nil {
				zap.L().Warn("initial dataset load failed",
					zap.String("source", source),
					zap.Error(err),
				)
			}
		}

		router := buildRouter(env, cfg.Server.CORSOrigins)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("source", source))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().String("source", "", "dataset URL or file path (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// serverEnv holds the loader and the latest projected dataset. The
// dataset is replaced wholesale on refresh; readers always see a
// consistent snapshot.
type serverEnv struct {
	loader     *dataset.Loader
	candidates resolve.Candidates
	source     string
	slots      map[string]string
	categories []string

	mu       sync.RWMutex
	models   []projector.ViewModel
	keys     resolve.KeySet
	counts   map[classify.Tier]int
	loadedAt time.Time
}

// refresh reloads and reprojects the dataset. A reload started after
// this one supersedes it; superseded results are discarded by the
// loader and reported as dataset.ErrSuperseded.
func (env *serverEnv) refresh(ctx context.Context, source string) (int, error) {
	col, err := env.loader.Load(ctx, source)
	if err != nil {
		return 0, err
	}

	models, keys := projector.ProjectAll(ctx, col, env.candidates)
	counts := report.Tally(col.Records, keys)

	env.mu.Lock()
	env.models = models
	env.keys = keys
	env.counts = counts
	env.loadedAt = col.LoadedAt
	env.source = source
	env.mu.Unlock()

	zap.L().Info("dataset refreshed",
		zap.String("source", source),
		zap.Int("cities", len(models)),
	)
	return len(models), nil
}

// snapshot returns the current dataset view, or ok=false when no load
// has succeeded yet.
func (env *serverEnv) snapshot() (models []projector.ViewModel, counts map[classify.Tier]int, loadedAt time.Time, source string, ok bool) {
	env.mu.RLock()
	defer env.mu.RUnlock()
	if env.loadedAt.IsZero() {
		return nil, nil, time.Time{}, "", false
	}
	return env.models, env.counts, env.loadedAt, env.source, true
}

func buildRouter(env *serverEnv, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/cities", env.handleCities)
		api.Get("/summary", env.handleSummary)
		api.Get("/breakdown", env.handleBreakdownQuery)
		api.Post("/breakdown", env.handleBreakdownBody)
		api.Post("/refresh", env.handleRefresh)
		api.Get("/layout", env.handleLayout)
	})

	return r
}

func (env *serverEnv) handleCities(w http.ResponseWriter, r *http.Request) {
	models, _, loadedAt, source, ok := env.snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no dataset loaded")
		return
	}

	q := r.URL.Query()
	tier := classify.Tier(q.Get("tier"))
	var minScore float64
	if n := normalize.ToNumeric(q.Get("minScore")); n != nil {
		minScore = *n
	}
	models = filterCities(models, tier, minScore)

	writeJSON(w, http.StatusOK, map[string]any{
		"source":    source,
		"loaded_at": loadedAt,
		"count":     len(models),
		"cities":    models,
	})
}

func (env *serverEnv) handleSummary(w http.ResponseWriter, _ *http.Request) {
	_, counts, loadedAt, source, ok := env.snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no dataset loaded")
		return
	}

	tiers := make([]map[string]any, 0, len(classify.AllTiers))
	for _, tier := range classify.AllTiers {
		tiers = append(tiers, map[string]any{
			"tier":  tier,
			"label": tier.Label(),
			"color": classify.ColorOf(tier),
			"count": counts[tier],
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"source":    source,
		"loaded_at": loadedAt,
		"total":     report.Total(counts),
		"tiers":     tiers,
	})
}

// handleBreakdownQuery expands the compact share representation carried
// in calculator links (income, housingPct, foodPct) into a pre-filled
// breakdown. Absent or unparseable parameters default to 0.
func (env *serverEnv) handleBreakdownQuery(w http.ResponseWriter, r *http.Request) {
	params := calculator.ParseQuery(r.URL.Query())
	shares := calculator.ExpandFromShares(params.Income, params.HousingPct, params.FoodPct)

	items := calculator.ItemsFromShares(env.categories, shares)
	writeBreakdown(w, calculator.ComputeBreakdown(params.Income, items))
}

// handleBreakdownBody recomputes a breakdown from user-edited amounts.
func (env *serverEnv) handleBreakdownBody(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Income    float64               `json:"income"`
		LineItems []calculator.LineItem `json:"line_items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writeBreakdown(w, calculator.ComputeBreakdown(req.Income, req.LineItems))
}

func writeBreakdown(w http.ResponseWriter, b calculator.Breakdown) {
	writeJSON(w, http.StatusOK, map[string]any{
		"breakdown": b,
		"slices":    b.ChartSlices(),
		"overspent": b.Overspent(),
	})
}

func (env *serverEnv) handleRefresh(w http.ResponseWriter, r *http.Request) {
	env.mu.RLock()
	source := env.source
	env.mu.RUnlock()
	if r.Body != nil && r.ContentLength > 0 {
		var req struct {
			Source string `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Source != "" {
			source = req.Source
		}
	}
	if source == "" {
		writeError(w, http.StatusBadRequest, "no dataset source configured")
		return
	}

	count, err := env.refresh(r.Context(), source)
	if err != nil {
		if eris.Is(err, dataset.ErrSuperseded) {
			writeError(w, http.StatusConflict, "refresh superseded by a newer request")
			return
		}
		zap.L().Error("refresh failed", zap.String("source", source), zap.Error(err))
		writeError(w, http.StatusBadGateway, "dataset load failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "refreshed",
		"source": source,
		"count":  count,
	})
}

// handleLayout tells frontends which presentation slot each logical
// output renders into, keeping page structure out of client code.
func (env *serverEnv) handleLayout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"slots": env.slots})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
