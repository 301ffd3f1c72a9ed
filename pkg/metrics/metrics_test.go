package metrics_test

import (
	"blocklist/pkg/metrics"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := metrics.New()

	r.Invalid("manual", 3)
	r.Diff("manual", 2, 1)
	r.Diff("manual", 1, 0)
	r.Lookup("manual", 10*time.Millisecond, true)
	r.Lookup("manual", 20*time.Millisecond, false)
	r.Written("manual", 5, 120, time.Unix(1700000000, 0))

	n, err := testutil.GatherAndCount(r.Gatherer())
	require.NoError(t, err)
	require.Equal(t, 8, n)

	path := filepath.Join(t.TempDir(), "blocklist.prom")
	require.NoError(t, r.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	require.Contains(t, out, `blocklist_invalid_entries_total{list="manual"} 3`)
	require.Contains(t, out, `blocklist_added_entries_total{list="manual"} 3`)
	require.Contains(t, out, `blocklist_removed_entries_total{list="manual"} 1`)
	require.Contains(t, out, `blocklist_enrichment_failures_total{list="manual"} 1`)
	require.Contains(t, out, `blocklist_entries{list="manual"} 5`)
	require.Contains(t, out, `blocklist_last_success_timestamp_seconds{list="manual"} 1.7e+09`)
}

func TestRecorder_Nil(t *testing.T) {
	var r *metrics.Recorder
	require.NotPanics(t, func() {
		r.Invalid("x", 1)
		r.Diff("x", 1, 1)
		r.Lookup("x", time.Second, false)
		r.Written("x", 1, 1, time.Now())
	})
	require.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}
