package main

import (
	"encoding/json"
	"fmt"
	"os"

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

var optimizeFlags struct {
	accuracyData  string
	fieldsFile    string
	docsDir       string
	modelAlias    string
	maxDocs       int
	maxIterations int
	target        float64
	holdoutRatio  float64
	deterministic bool
	concurrency   int
	docType       string
	instructions  string
	output        string
	save          bool
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize failing field prompts against past accuracy data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("optimize"); err != nil {
			return err
		}

		data, err := accuracy.Load(optimizeFlags.accuracyData)
		if err != nil {
			return err
		}
		reg, err := registry.LoadFields(optimizeFlags.fieldsFile)
		if err != nil {
			return err
		}

		runCfg := runConfigFromFlags()
		client := anthropic.NewMetered(anthropic.NewClient(cfg.Anthropic.Key))
		docsDir := optimizeFlags.docsDir
		if docsDir == "" {
			docsDir = cfg.Documents.Dir
		}
		docs := extract.NewDirSource(docsDir)

		extractor := extract.NewAnthropicService(client, docs, runCfg.TestModel, cfg.Anthropic.RequestsPerS)
		generator := promptgen.New(client, cfg.Anthropic.SonnetModel)
		comparer := compare.New(judge.New(client, cfg.Anthropic.HaikuModel))
		analyzer := analysis.New(client, docs, cfg.Anthropic.HaikuModel)

		controller := optimizer.NewController(extractor, generator, comparer, analyzer, runCfg)
		coord := optimizer.NewCoordinator(controller, runCfg)

		report, err := optimizer.Optimize(cmd.Context(), coord, data, reg, runCfg,
			func(done, total int, fr model.FieldResult) {
				status := "no improvement"
				if fr.Error != "" {
					status = "failed"
				} else if fr.Improved {
					status = fmt.Sprintf("%.0f%% -> %.0f%%", fr.InitialAccuracy*100, fr.FinalAccuracy*100)
				}
				fmt.Printf("[%d/%d] %-30s %s\n", done, total, fr.FieldKey, status)
			})
		if err != nil {
			return err
		}

		usage := client.Usage()
		usage.LogCost(runCfg.TestModel, "run")
		report.Usage = model.UsageSummary{
			InputTokens:      usage.InputTokens,
			OutputTokens:     usage.OutputTokens,
			CacheReadTokens:  usage.CacheReadInputTokens,
			EstimatedCostUSD: usage.EstimateCost(runCfg.TestModel),
		}

		printReport(report)

		if optimizeFlags.output != "" {
			if err := writeReportJSON(report, optimizeFlags.output); err != nil {
				return err
			}
			fmt.Printf("\nreport written to %s\n", optimizeFlags.output)
		}

		if optimizeFlags.save {
			st, err := store.Open(cmd.Context(), cfg.Store.Driver, cfg.Store.DatabaseURL)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}
			if err := st.SaveRun(cmd.Context(), report); err != nil {
				return err
			}
			zap.L().Info("run saved", zap.String("run_id", report.RunID))
		}

		return nil
	},
}

func runConfigFromFlags() optimizer.RunConfig {
	runCfg := optimizer.RunConfig{
		TestModel:             resolveModel(optimizeFlags.modelAlias),
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
		DocTypeHint:           optimizeFlags.docType,
		CustomInstructions:    optimizeFlags.instructions,
	}
	if optimizeFlags.maxDocs > 0 {
		runCfg.MaxDocs = optimizeFlags.maxDocs
	}
	if optimizeFlags.maxIterations > 0 {
		runCfg.MaxIterations = optimizeFlags.maxIterations
	}
	if optimizeFlags.target > 0 {
		runCfg.TargetAccuracy = optimizeFlags.target
	}
	if optimizeFlags.holdoutRatio >= 0 {
		runCfg.HoldoutRatio = optimizeFlags.holdoutRatio
	}
	if optimizeFlags.deterministic {
		runCfg.Deterministic = true
	}
	if optimizeFlags.concurrency > 0 {
		runCfg.FieldConcurrency = optimizeFlags.concurrency
	}
	return runCfg
}

// resolveModel maps a friendly alias to the configured model ID; anything
// else is passed through as a full model identifier.
func resolveModel(alias string) string {
	switch alias {
	case "", "haiku":
		return cfg.Anthropic.HaikuModel
	case "sonnet":
		return cfg.Anthropic.SonnetModel
	case "opus":
		return cfg.Anthropic.OpusModel
	default:
		return alias
	}
}

func printReport(report *model.RunReport) {
	fmt.Printf("\nrun %s: %d fields, %d improved, %d converged, %s\n",
		report.RunID, len(report.Results), report.ImprovedCount(), report.ConvergedCount(),
		report.Duration.Round(1e9))
	if report.Usage.InputTokens > 0 {
		fmt.Printf("tokens: %d in / %d out, est. $%.4f\n",
			report.Usage.InputTokens, report.Usage.OutputTokens, report.Usage.EstimatedCostUSD)
	}
	for _, fr := range report.Results {
		marker := " "
		if fr.Converged {
			marker = "*"
		}
		fmt.Printf("%s %-30s initial %.0f%%  final %.0f%%  iterations %d\n",
			marker, fr.FieldKey, fr.InitialAccuracy*100, fr.FinalAccuracy*100, fr.IterationCount)
		if fr.Error != "" {
			fmt.Printf("    error: %s\n", fr.Error)
		}
	}
}

func writeReportJSON(report *model.RunReport, path string) error {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal report")
	}
	return eris.Wrapf(os.WriteFile(path, raw, 0644), "write %s", path)
}

func init() {
	f := optimizeCmd.Flags()
	f.StringVar(&optimizeFlags.accuracyData, "accuracy-data", "", "path to accuracy dataset JSON (required)")
	f.StringVar(&optimizeFlags.fieldsFile, "fields", "", "path to field definitions YAML (required)")
	f.StringVar(&optimizeFlags.docsDir, "docs", "", "document text directory (default from config)")
	f.StringVar(&optimizeFlags.modelAlias, "model", "haiku", "test model: haiku, sonnet, opus, or a full model ID")
	f.IntVar(&optimizeFlags.maxDocs, "max-docs", 0, "max sampled documents (default from config)")
	f.IntVar(&optimizeFlags.maxIterations, "max-iterations", 0, "max iterations per field (default from config)")
	f.Float64Var(&optimizeFlags.target, "target", 0, "target accuracy in (0,1] (default from config)")
	f.Float64Var(&optimizeFlags.holdoutRatio, "holdout-ratio", -1, "holdout fraction in [0,1) (default from config)")
	f.BoolVar(&optimizeFlags.deterministic, "deterministic", false, "score llm-judge fields with near-exact comparison")
	f.IntVar(&optimizeFlags.concurrency, "concurrency", 0, "concurrent fields (default from config)")
	f.StringVar(&optimizeFlags.docType, "doc-type", "", "document type hint for the prompt generator")
	f.StringVar(&optimizeFlags.instructions, "instructions", "", "extra requirements passed to the prompt generator")
	f.StringVar(&optimizeFlags.output, "output", "", "write the full report JSON to this path")
	f.BoolVar(&optimizeFlags.save, "save", false, "persist the run report to the store")
	optimizeCmd.MarkFlagRequired("accuracy-data")
	optimizeCmd.MarkFlagRequired("fields")
	rootCmd.AddCommand(optimizeCmd)
}
