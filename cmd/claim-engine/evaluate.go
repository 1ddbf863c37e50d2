// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/claim-engine/internal/engine"
	"github.com/pdiddy/claim-engine/internal/seed"
	"github.com/pdiddy/claim-engine/internal/verdictstore"
	"github.com/pdiddy/claim-engine/pkg/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [file|-]",
	Short: "Score the claims in an article or post",
	Long: `Evaluate reads text from a file, or from stdin when the argument is "-"
or omitted, and prints the article verdict.

Media items are read from a YAML or JSON list passed with --media, each with
optional timestamp, event_time and reverse_search_hint fields. With --store
the verdict is cached in the SQLite verdict store and an identical
submission inside the store TTL is answered from it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	snap, err := snapshotFromFlags(cmd, args, os.Stdin)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	if seedOnly, _ := cmd.Flags().GetBool("seed-only"); seedOnly {
		if err := snap.Validate(engineCfg.MaxTextBytes); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "seed:        %d\nfingerprint: %s\n", seed.Derive(snap), seed.Fingerprint(snap))
		return nil
	}

	e, err := engine.FromConfig(engineCfg, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var v *types.ArticleVerdict
	if useStore, _ := cmd.Flags().GetBool("store"); useStore {
		store, err := verdictstore.NewStore(engineCfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		var hit bool
		v, hit, err = e.EvaluateStored(ctx, store, snap)
		if err != nil {
			return err
		}
		if hit {
			fmt.Fprintf(os.Stderr, "Served from verdict store (evaluation %s)\n", v.EvaluationID)
		}
	} else {
		v, err = e.Evaluate(ctx, snap)
		if err != nil {
			return err
		}
	}

	logger.Debug("verdict ready", zap.String("evaluation_id", v.EvaluationID))
	return writeVerdict(os.Stdout, v, format)
}

// snapshotFromFlags assembles a ContentSnapshot from the positional argument
// and the --source, --timestamp and --media flags.
func snapshotFromFlags(cmd *cobra.Command, args []string, stdin io.Reader) (types.ContentSnapshot, error) {
	var snap types.ContentSnapshot

	text, err := readText(args, stdin)
	if err != nil {
		return snap, err
	}
	snap.Text = text
	snap.Source, _ = cmd.Flags().GetString("source")

	if ts, _ := cmd.Flags().GetString("timestamp"); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return snap, fmt.Errorf("parsing --timestamp %q: %w", ts, err)
		}
		snap.Timestamp = t
	}

	if path, _ := cmd.Flags().GetString("media"); path != "" {
		media, err := readMedia(path)
		if err != nil {
			return snap, err
		}
		snap.Media = media
	}
	return snap, nil
}

func readText(args []string, stdin io.Reader) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}

// readMedia parses a YAML list of media items. JSON input parses too since
// it is valid YAML.
func readMedia(path string) ([]types.MediaItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading media file: %w", err)
	}
	var media []types.MediaItem
	if err := yaml.Unmarshal(data, &media); err != nil {
		return nil, fmt.Errorf("parsing media file %s: %w", path, err)
	}
	return media, nil
}

func checkFormat(format string) error {
	switch format {
	case "json", "yaml", "table":
		return nil
	}
	return fmt.Errorf("unsupported format %q: use json, yaml or table", format)
}

// writeVerdict renders v as indented JSON, YAML, or a human-readable table.
func writeVerdict(w io.Writer, v *types.ArticleVerdict, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding verdict: %w", err)
		}
		return enc.Close()
	case "table":
		return writeVerdictTable(w, v)
	}
	return checkFormat(format)
}

func writeVerdictTable(w io.Writer, v *types.ArticleVerdict) error {
	fmt.Fprintf(w, "Evaluation:  %s\n", v.EvaluationID)
	fmt.Fprintf(w, "Fingerprint: %s\n", v.Fingerprint)
	fmt.Fprintf(w, "Score:       %.2f (uncertainty %.2f)\n\n", v.FinalScore, v.Uncertainty)

	if len(v.Claims) > 0 {
		fmt.Fprintf(w, "%-4s  %-50s  %-6s  %s\n", "#", "Claim", "Score", "Uncertainty")
		fmt.Fprintln(w, strings.Repeat("-", 78))
		for i, c := range v.Claims {
			fmt.Fprintf(w, "%-4d  %-50s  %-6.2f  %.2f\n", i+1, truncate(c.Claim, 50), c.FinalScore, c.Uncertainty)
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "%-32s  %-6s  %s\n", "Layer", "Mean", "Max uncertainty")
		fmt.Fprintln(w, strings.Repeat("-", 58))
		for _, l := range v.LayerBreakdown {
			fmt.Fprintf(w, "%-32s  %-6.2f  %.2f\n", l.Layer, l.MeanScore, l.MaxUncertainty)
		}
		fmt.Fprintln(w)

		sa := v.SourceAgreement
		fmt.Fprintf(w, "Sources: %d agreed, %d disagreed, %d uncertain\n\n",
			len(sa.Agreed), len(sa.Disagreed), len(sa.Uncertain))
	}

	_, err := fmt.Fprintln(w, v.Explanation)
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	evaluateCmd.Flags().String("source", "", "declared source URL or domain")
	evaluateCmd.Flags().String("timestamp", "", "publication time (RFC 3339)")
	evaluateCmd.Flags().String("media", "", "YAML or JSON file listing media items")
	evaluateCmd.Flags().String("format", "table", "output format: json, yaml or table")
	evaluateCmd.Flags().Bool("store", false, "serve and record verdicts through the verdict store")
	evaluateCmd.Flags().Bool("seed-only", false, "print the seed and fingerprint without evaluating")
	evaluateCmd.Flags().String("reputation", "", "YAML file with high and medium source domain lists")

	viper.BindPFlag("reputation_file", evaluateCmd.Flags().Lookup("reputation"))

	rootCmd.AddCommand(evaluateCmd)
}
