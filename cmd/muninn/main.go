// Package main provides the Muninn CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hverdal/muninn/pkg/config"
	"github.com/hverdal/muninn/pkg/muninn"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var cfgFile string
	var inMemory bool
	var dataDir string

	rootCmd := &cobra.Command{
		Use:   "muninn",
		Short: "Muninn - Knowledge Graph Reasoning Engine",
		Long: `Muninn is a knowledge graph reasoning engine: it learns concepts
from free text, links them with typed weighted associations, and answers
questions by discovering multiple reasoning paths and fusing them into a
consensus answer with calibrated confidence.

Features:
  • Adaptive learning with idempotent, strength-based reinforcement
  • Three path search strategies (best-first, breadth-first, bidirectional)
  • Multi-path consensus with outlier and diversity penalties
  • LRU query result cache
  • BadgerDB persistence with write-through durability`,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "in-memory", false, "Run without persistence")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory")

	loadConfig := func() (*config.Config, error) {
		cfg := config.Default()
		if cfgFile != "" {
			if err := cfg.LoadFile(cfgFile); err != nil {
				return nil, err
			}
		}
		cfg.LoadFromEnv()
		if inMemory {
			cfg.Storage.InMemory = true
		}
		if dataDir != "" {
			cfg.Storage.DataDir = dataDir
		}
		return cfg, cfg.Validate()
	}

	openEngine := func() (*muninn.Engine, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		logger, err := muninn.NewLogger(cfg.Logging)
		if err != nil {
			return nil, err
		}
		return muninn.Open(cfg, logger)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Muninn v%s (%s)\n", version, commit)
		},
	})

	learnCmd := &cobra.Command{
		Use:   "learn [content]",
		Short: "Learn a concept from free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _ := cmd.Flags().GetString("source")
			category, _ := cmd.Flags().GetString("category")

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			id, err := engine.Learn(strings.Join(args, " "), source, category)
			if err != nil {
				return err
			}
			fmt.Printf("learned concept %s\n", id)
			return nil
		},
	}
	learnCmd.Flags().String("source", "cli", "Content source label")
	learnCmd.Flags().String("category", "", "Concept category")
	rootCmd.AddCommand(learnCmd)

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against the knowledge graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			asJSON, _ := cmd.Flags().GetBool("json")

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			result, err := engine.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(result)
			}

			fmt.Printf("answer:     %s\n", result.PrimaryAnswer)
			fmt.Printf("confidence: %.2f (consensus %.2f, %d supporting path(s))\n",
				result.Confidence, result.ConsensusStrength, len(result.SupportingPaths))
			for _, alt := range result.AlternativeAnswers {
				fmt.Printf("also:       %s (%.2f)\n", alt.Answer, alt.Confidence)
			}
			fmt.Println(result.ReasoningExplanation)
			return nil
		},
	}
	askCmd.Flags().Duration("timeout", 30*time.Second, "Query timeout")
	askCmd.Flags().Bool("json", false, "Emit the full result as JSON")
	rootCmd.AddCommand(askCmd)

	explainCmd := &cobra.Command{
		Use:   "explain [question]",
		Short: "Answer a question and show the reasoning behind it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detailed, _ := cmd.Flags().GetBool("detailed")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			explanation, err := engine.Explain(ctx, strings.Join(args, " "), detailed)
			if err != nil {
				return err
			}
			return printJSON(explanation)
		},
	}
	explainCmd.Flags().Bool("detailed", false, "Include per-path step sequences")
	explainCmd.Flags().Duration("timeout", 30*time.Second, "Query timeout")
	rootCmd.AddCommand(explainCmd)

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search concepts by content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			hits := engine.SearchConcepts(strings.Join(args, " "), limit)
			if len(hits) == 0 {
				fmt.Println("no matching concepts")
				return nil
			}
			for _, hit := range hits {
				fmt.Printf("%-36s  strength %.2f  %s\n", hit.ID, hit.Strength, hit.Content)
			}
			return nil
		},
	}
	searchCmd.Flags().Int("limit", 10, "Maximum results")
	rootCmd.AddCommand(searchCmd)

	suggestCmd := &cobra.Command{
		Use:   "suggest [partial query]",
		Short: "Suggest complete questions for a partial query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			max, _ := cmd.Flags().GetInt("max")

			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			for _, s := range engine.Suggest(strings.Join(args, " "), max) {
				fmt.Println(s)
			}
			return nil
		},
	}
	suggestCmd.Flags().Int("max", 5, "Maximum suggestions")
	rootCmd.AddCommand(suggestCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show graph, cache and storage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()
			return printJSON(engine.Stats())
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "optimize",
		Short: "Run the maintenance sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			report := engine.Optimize()
			fmt.Printf("strengthened %d concept(s), removed %d weak association(s), pruned %d cache entr(ies)\n",
				report.ConceptsStrengthened, report.WeakAssociationsRemoved, report.CacheEntriesPruned)
			return nil
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
