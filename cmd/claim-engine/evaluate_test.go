// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/claim-engine/internal/engine"
	"github.com/pdiddy/claim-engine/internal/verdictstore"
	"github.com/pdiddy/claim-engine/pkg/types"
)

func newEvaluateFlags(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().String("source", "", "")
	cmd.Flags().String("timestamp", "", "")
	cmd.Flags().String("media", "", "")
	for k, v := range flags {
		require.NoError(t, cmd.Flags().Set(k, v))
	}
	return cmd
}

func TestSnapshotFromFlags(t *testing.T) {
	dir := t.TempDir()
	media := writeFile(t, dir, "media.yaml", "- timestamp: 200000\n  event_time: 0\n- reverse_search_hint: https://tineye.example/x\n")
	article := writeFile(t, dir, "article.txt", "The sky is green. The president resigned yesterday.")

	cmd := newEvaluateFlags(t, map[string]string{
		"source":    "example.com",
		"timestamp": "2026-01-02T03:04:05Z",
		"media":     media,
	})
	snap, err := snapshotFromFlags(cmd, []string{article}, strings.NewReader("ignored"))
	require.NoError(t, err)

	assert.Equal(t, "The sky is green. The president resigned yesterday.", snap.Text)
	assert.Equal(t, "example.com", snap.Source)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), snap.Timestamp)
	require.Len(t, snap.Media, 2)
	assert.Equal(t, 200000.0, *snap.Media[0].Timestamp)
	assert.Equal(t, 0.0, *snap.Media[0].EventTime)
	assert.Nil(t, snap.Media[1].Timestamp)
	assert.Equal(t, "https://tineye.example/x", snap.Media[1].ReverseSearchHint)
}

func TestSnapshotFromFlags_Stdin(t *testing.T) {
	for _, args := range [][]string{nil, {"-"}} {
		snap, err := snapshotFromFlags(newEvaluateFlags(t, nil), args, strings.NewReader("From stdin we read this."))
		require.NoError(t, err)
		assert.Equal(t, "From stdin we read this.", snap.Text)
	}
}

func TestSnapshotFromFlags_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		flags map[string]string
		args  []string
	}{
		{"bad timestamp", map[string]string{"timestamp": "yesterday"}, nil},
		{"missing media", map[string]string{"media": dir + "/nope.yaml"}, nil},
		{"bad media", map[string]string{"media": writeFile(t, dir, "bad.yaml", "timestamp: [")}, nil},
		{"missing file", nil, []string{dir + "/missing.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := snapshotFromFlags(newEvaluateFlags(t, tt.flags), tt.args, strings.NewReader(""))
			assert.Error(t, err)
		})
	}
}

func sampleVerdict(t *testing.T) *types.ArticleVerdict {
	t.Helper()
	e := engine.New(types.DefaultEngineConfig(), engine.Components{})
	v, err := e.Evaluate(context.Background(), types.ContentSnapshot{
		Text:   "The sky is green. The president resigned yesterday.",
		Source: "example.com",
	})
	require.NoError(t, err)
	return v
}

func TestWriteVerdict(t *testing.T) {
	v := sampleVerdict(t)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeVerdict(&buf, v, "json"))
		var got types.ArticleVerdict
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, v.Fingerprint, got.Fingerprint)
		assert.Len(t, got.Claims, 2)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeVerdict(&buf, v, "yaml"))
		var got map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, v.EvaluationID, got["evaluation_id"])
		assert.Contains(t, buf.String(), "layer_breakdown:")
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeVerdict(&buf, v, "table"))
		out := buf.String()
		assert.Contains(t, out, v.Fingerprint)
		assert.Contains(t, out, "The sky is green.")
		assert.Contains(t, out, types.LayerCrossSource)
		assert.Contains(t, out, v.Explanation)
	})

	t.Run("table without claims", func(t *testing.T) {
		var buf bytes.Buffer
		empty := &types.ArticleVerdict{Uncertainty: 1, Explanation: "No claims detected. Insufficient evidence."}
		require.NoError(t, writeVerdict(&buf, empty, "table"))
		assert.NotContains(t, buf.String(), "Layer")
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, writeVerdict(&bytes.Buffer{}, v, "xml"))
	})
}

func TestFormatEntries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatEntries(&buf, nil, false))
	assert.Equal(t, "No stored verdicts.\n", buf.String())

	buf.Reset()
	require.NoError(t, formatEntries(&buf, nil, true))
	assert.JSONEq(t, "[]", buf.String())

	buf.Reset()
	entries := []verdictstore.Entry{{
		Fingerprint:  strings.Repeat("ab", 32),
		EvaluationID: "0b6c2a9e-8f8c-4c55-9a68-4a3f0e3c1d21",
		FinalScore:   0.62,
		Uncertainty:  0.3,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, formatEntries(&buf, entries, false))
	assert.Contains(t, buf.String(), "ababababababa...")
	assert.Contains(t, buf.String(), "1 verdicts")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", truncate(strings.Repeat("é", 20), 10))
}
