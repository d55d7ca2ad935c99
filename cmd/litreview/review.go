// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litreview/internal/cache"
	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/report"
	"github.com/pdiddy/litreview/internal/review"
	"github.com/pdiddy/litreview/internal/search"
	"github.com/pdiddy/litreview/pkg/types"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run a full literature review for a title and abstract",
	Long: `Review runs the complete discovery pipeline: plan generation, iterative
search with query refinement, relevance filtering, deduplication, clustering,
insight extraction, and review synthesis. Artifacts are written to the output
directory: literature_review.md, references.bib, research_plan.md,
progress_report.md, key_insights.md, and metadata.yaml.

Interrupting the run (Ctrl-C) stops it at the next search boundary and still
writes artifacts for the papers gathered so far.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, abstract, err := titleAndAbstract(cmd)
		if err != nil {
			return err
		}

		cfg := pipelineConfig()
		agent, err := buildAgent(cfg)
		if err != nil {
			return err
		}
		defer agent.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, runErr := agent.Run(ctx, title, abstract)
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			return runErr
		}
		if runErr != nil {
			fmt.Fprintln(os.Stderr, "run interrupted; writing partial results")
		}

		outDir, _ := cmd.Flags().GetString("output")
		if outDir == "" {
			outDir = cfg.Review.OutputDir
		}
		if err := report.WriteArtifacts(outDir, result); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "selected %d papers (%d found, %d after filtering)\n",
			result.Progress.Selected, result.Progress.TotalFound, result.Progress.AfterFiltering)
		fmt.Fprintf(os.Stderr, "artifacts written to %s\n", outDir)
		return nil
	},
}

// buildAgent wires the cache, search client, and generation engine into a
// review agent using the merged configuration and flag overrides.
func buildAgent(cfg types.PipelineConfig) (*review.Agent, error) {
	var store *cache.Store
	if cfg.Cache.Enabled {
		s, err := cache.Open(cfg.Cache.Dir, cfg.Cache.MaxAge)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: cache disabled: %v\n", err)
		} else {
			store = s
		}
	}

	searcher := search.NewClient(cfg.Search, store)
	engine := llm.NewEngine(llm.NewClaude(cfg.LLM, store), cfg.LLM)

	opts := review.OptionsFromConfig(cfg.Review, cfg.Search)
	agent, err := review.NewAgent(searcher, engine, store, opts, os.Stderr)
	if err != nil {
		store.Close()
		return nil, err
	}
	return agent, nil
}

// titleAndAbstract resolves the user's paper description from flags, with
// --abstract-file taking precedence over --abstract.
func titleAndAbstract(cmd *cobra.Command) (string, string, error) {
	title, _ := cmd.Flags().GetString("title")
	if strings.TrimSpace(title) == "" {
		return "", "", fmt.Errorf("--title is required")
	}

	abstract, _ := cmd.Flags().GetString("abstract")
	if path, _ := cmd.Flags().GetString("abstract-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", "", fmt.Errorf("reading abstract file: %w", err)
		}
		abstract = string(data)
	}
	if strings.TrimSpace(abstract) == "" {
		return "", "", fmt.Errorf("an abstract is required (--abstract or --abstract-file)")
	}
	return title, abstract, nil
}

func init() {
	reviewCmd.Flags().String("title", "", "title of the paper you are writing")
	reviewCmd.Flags().String("abstract", "", "abstract of the paper you are writing")
	reviewCmd.Flags().String("abstract-file", "", "read the abstract from a file")
	reviewCmd.Flags().String("output", "", "output directory (default from config)")
	reviewCmd.Flags().Int("target", 0, "number of papers to select")
	reviewCmd.Flags().Int("iterations", 0, "maximum search iterations")
	reviewCmd.Flags().Float64("threshold", 0, "relevance threshold in [0,1]")
	reviewCmd.Flags().Bool("expand-refs", false, "follow references of top papers when under target")
	reviewCmd.Flags().Int("year-from", 0, "earliest publication year")
	reviewCmd.Flags().Int("year-to", 0, "latest publication year")

	viper.BindPFlag("review.target_papers", reviewCmd.Flags().Lookup("target"))
	viper.BindPFlag("review.max_iterations", reviewCmd.Flags().Lookup("iterations"))
	viper.BindPFlag("review.relevance_threshold", reviewCmd.Flags().Lookup("threshold"))
	viper.BindPFlag("review.expand_references", reviewCmd.Flags().Lookup("expand-refs"))
	viper.BindPFlag("review.year_from", reviewCmd.Flags().Lookup("year-from"))
	viper.BindPFlag("review.year_to", reviewCmd.Flags().Lookup("year-to"))

	rootCmd.AddCommand(reviewCmd)
}
