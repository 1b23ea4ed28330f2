package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/optimizer-cli/internal/accuracy"
	"github.com/sells-group/optimizer-cli/internal/analysis"
	"github.com/sells-group/optimizer-cli/internal/compare"
	"github.com/sells-group/optimizer-cli/internal/extract"
	"github.com/sells-group/optimizer-cli/internal/judge"
	"github.com/sells-group/optimizer-cli/internal/model"
	"github.com/sells-group/optimizer-cli/internal/optimizer"
	"github.com/sells-group/optimizer-cli/internal/promptgen"
	"github.com/sells-group/optimizer-cli/internal/registry"
	"github.com/sells-group/optimizer-cli/internal/store"
	"github.com/sells-group/optimizer-cli/pkg/anthropic"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for runs, prompt history, and triggering optimizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
			summaries, err := st.ListRuns(req.Context(), store.RunFilter{
				TestModel: req.URL.Query().Get("model"),
				Limit:     limit,
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, summaries)
		})

		r.Get("/runs/{runID}", func(w http.ResponseWriter, req *http.Request) {
			report, err := st.GetRun(req.Context(), chi.URLParam(req, "runID"))
			if err != nil {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeJSON(w, http.StatusOK, report)
		})

		r.Get("/fields/{fieldKey}/history", func(w http.ResponseWriter, req *http.Request) {
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
			records, err := st.PromptHistory(req.Context(), chi.URLParam(req, "fieldKey"), limit)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, records)
		})

		r.Get("/fields/{fieldKey}/best", func(w http.ResponseWriter, req *http.Request) {
			best, err := st.BestPrompt(req.Context(), chi.URLParam(req, "fieldKey"))
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			if best == nil {
				writeError(w, http.StatusNotFound, eris.New("no stored prompt for field"))
				return
			}
			writeJSON(w, http.StatusOK, best)
		})

		r.Post("/optimize", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				AccuracyData string `json:"accuracy_data"`
				Fields       string `json:"fields"`
				Model        string `json:"model"`
				MaxDocs      int    `json:"max_docs"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
				return
			}
			if body.AccuracyData == "" || body.Fields == "" {
				writeError(w, http.StatusBadRequest, eris.New("accuracy_data and fields are required"))
				return
			}
			if cfg.Anthropic.Key == "" {
				writeError(w, http.StatusInternalServerError, eris.New("anthropic.key not configured"))
				return
			}

			data, err := accuracy.Load(body.AccuracyData)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			reg, err := registry.LoadFields(body.Fields)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}

			runCfg := serveRunConfig(body.Model, body.MaxDocs)

			// Run asynchronously; results land in the store.
			go func() {
				report, err := runOptimization(ctx, data, reg, runCfg)
				if err != nil {
					zap.L().Error("optimization run failed", zap.Error(err))
					return
				}
				if err := st.SaveRun(ctx, report); err != nil {
					zap.L().Error("saving run failed",
						zap.String("run_id", report.RunID), zap.Error(err))
					return
				}
				zap.L().Info("optimization run stored",
					zap.String("run_id", report.RunID),
					zap.Int("improved", report.ImprovedCount()))
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func serveRunConfig(modelAlias string, maxDocs int) optimizer.RunConfig {
	runCfg := optimizer.RunConfig{
		TestModel:             resolveModel(modelAlias),
		MaxDocs:               cfg.Optimizer.MaxDocs,
		MaxIterations:         cfg.Optimizer.MaxIterations,
		TargetAccuracy:        cfg.Optimizer.TargetAccuracy,
		HoldoutRatio:          cfg.Optimizer.HoldoutRatio,
		HoldoutThreshold:      cfg.Optimizer.HoldoutThreshold,
		Deterministic:         cfg.Optimizer.Deterministic,
		FieldConcurrency:      cfg.Optimizer.FieldConcurrency,
		ExtractionConcurrency: cfg.Optimizer.ExtractionConcurrency,
		AnalysisIterations:    cfg.Optimizer.AnalysisIterations,
		RepairAttempts:        cfg.Optimizer.RepairAttempts,
	}
	if maxDocs > 0 {
		runCfg.MaxDocs = maxDocs
	}
	return runCfg
}

// runOptimization wires the collaborators for one run and executes it.
func runOptimization(ctx context.Context, data *accuracy.Data, reg *model.FieldRegistry, runCfg optimizer.RunConfig) (*model.RunReport, error) {
	client := anthropic.NewMetered(anthropic.NewClient(cfg.Anthropic.Key))
	docs := extract.NewDirSource(cfg.Documents.Dir)

	extractor := extract.NewAnthropicService(client, docs, runCfg.TestModel, cfg.Anthropic.RequestsPerS)
	generator := promptgen.New(client, cfg.Anthropic.SonnetModel)
	comparer := compare.New(judge.New(client, cfg.Anthropic.HaikuModel))
	analyzer := analysis.New(client, docs, cfg.Anthropic.HaikuModel)

	controller := optimizer.NewController(extractor, generator, comparer, analyzer, runCfg)
	coord := optimizer.NewCoordinator(controller, runCfg)

	report, err := optimizer.Optimize(ctx, coord, data, reg, runCfg, nil)
	if err != nil {
		return nil, err
	}
	usage := client.Usage()
	usage.LogCost(runCfg.TestModel, "run")
	report.Usage = model.UsageSummary{
		InputTokens:      usage.InputTokens,
		OutputTokens:     usage.OutputTokens,
		CacheReadTokens:  usage.CacheReadInputTokens,
		EstimatedCostUSD: usage.EstimateCost(runCfg.TestModel),
	}
	return report, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
