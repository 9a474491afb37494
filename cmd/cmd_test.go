package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/ctfwatch/ctfwatch/pkg/ingest"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	root := New()
	for _, name := range []string{"run", "ingest", "migrate", "check", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestIngestFlags(t *testing.T) {
	cmd := NewIngest()
	for _, name := range []string{"source", "limit", "now", "db-data-source", "sources-limit", "config"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestVersionOutput(t *testing.T) {
	root := New()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "ctfwatch development")
	assert.Contains(t, out.String(), "go/version")
}

func TestCheckFailsOnMissingConfigFile(t *testing.T) {
	root := New()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"check", "--config", t.TempDir() + "/missing.toml"})
	err := root.Execute()
	require.Error(t, err)
}

func TestReportOutcomes(t *testing.T) {
	var out bytes.Buffer
	err := reportOutcomes(context.Background(), &out, []ingest.Outcome{
		{Summary: ingest.Summary{Source: "ctftime", Fetched: 3, Created: 2}},
		{Summary: ingest.Summary{Source: "rss"}, Err: errors.New("upstream down")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 sources failed")
	assert.Contains(t, out.String(), "ctftime: Successfully ingested 3 events (2 new)")
	assert.Contains(t, out.String(), "rss: failed: upstream down")

	out.Reset()
	require.NoError(t, reportOutcomes(context.Background(), &out, []ingest.Outcome{
		{Summary: ingest.Summary{Source: "rss", Fetched: 1}},
	}))
}
