package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	PointsSampledTotal.Add(3)
	ClusterSize.WithLabelValues("0").Set(2)
	StageDurationMs.WithLabelValues("cluster").Observe(12)

	path := filepath.Join(t.TempDir(), "poi.prom")
	require.NoError(t, WriteTextfile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "poi_points_sampled_total")
	assert.Contains(t, out, `poi_cluster_size{cluster="0"} 2`)
	assert.Contains(t, out, `poi_stage_duration_ms_count{stage="cluster"} 1`)
}
