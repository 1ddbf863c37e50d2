// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/claim-engine/internal/verdictstore"
)

var verdictsCmd = &cobra.Command{
	Use:   "verdicts",
	Short: "Inspect and maintain the verdict store",
	Long: `Verdicts manages the SQLite store that evaluate --store writes to. Stored
verdicts are keyed by the content fingerprint and served until the store TTL
expires.`,
}

var verdictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored verdicts, newest first",
	RunE:  runVerdictsList,
}

func runVerdictsList(cmd *cobra.Command, args []string) error {
	store, err := verdictstore.NewStore(engineCfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatEntries(os.Stdout, entries, jsonOutput)
}

func formatEntries(w io.Writer, entries []verdictstore.Entry, jsonOutput bool) error {
	if jsonOutput {
		if entries == nil {
			entries = []verdictstore.Entry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No stored verdicts.")
		return nil
	}

	fmt.Fprintf(w, "%-16s  %-36s  %-6s  %-11s  %s\n",
		"Fingerprint", "Evaluation", "Score", "Uncertainty", "Stored")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, e := range entries {
		fmt.Fprintf(w, "%-16s  %-36s  %-6.2f  %-11.2f  %s\n",
			truncate(e.Fingerprint, 16), e.EvaluationID, e.FinalScore, e.Uncertainty,
			e.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "\n%d verdicts\n", len(entries))
	return nil
}

var verdictsShowCmd = &cobra.Command{
	Use:   "show <fingerprint>",
	Short: "Print a stored verdict",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerdictsShow,
}

func runVerdictsShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	store, err := verdictstore.NewStore(engineCfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	v, ok, err := store.Get(context.Background(), args[0], time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no fresh verdict for fingerprint %s", args[0])
	}
	return writeVerdict(os.Stdout, v, format)
}

var verdictsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete verdicts older than the store TTL",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := verdictstore.NewStore(engineCfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Purge(context.Background(), time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d expired verdict(s)\n", n)
		return nil
	},
}

func init() {
	verdictsListCmd.Flags().Bool("json", false, "output as JSON")
	verdictsShowCmd.Flags().String("format", "json", "output format: json, yaml or table")

	verdictsCmd.AddCommand(verdictsListCmd)
	verdictsCmd.AddCommand(verdictsShowCmd)
	verdictsCmd.AddCommand(verdictsPurgeCmd)

	rootCmd.AddCommand(verdictsCmd)
}
