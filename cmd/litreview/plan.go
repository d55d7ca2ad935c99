// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/cache"
	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/report"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate and print a research plan without searching",
	Long: `Plan generates the research plan for a title and abstract and prints it as
Markdown, without running any searches. Useful for previewing the questions,
keywords, and search strategies a full review run would start from.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, abstract, err := titleAndAbstract(cmd)
		if err != nil {
			return err
		}

		cfg := pipelineConfig()
		var store *cache.Store
		if cfg.Cache.Enabled {
			if s, err := cache.Open(cfg.Cache.Dir, cfg.Cache.MaxAge); err == nil {
				store = s
				defer store.Close()
			}
		}

		engine := llm.NewEngine(llm.NewClaude(cfg.LLM, store), cfg.LLM)
		plan, err := engine.GeneratePlan(cmd.Context(), title, abstract)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v (showing fallback plan)\n", err)
		}

		fmt.Print(report.RenderPlan(plan))
		return nil
	},
}

func init() {
	planCmd.Flags().String("title", "", "title of the paper you are writing")
	planCmd.Flags().String("abstract", "", "abstract of the paper you are writing")
	planCmd.Flags().String("abstract-file", "", "read the abstract from a file")

	rootCmd.AddCommand(planCmd)
}
