package p3if

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/p3if/pkg/config"
	"github.com/orneryd/p3if/pkg/model"
)

// seed adds a property, a process and a relationship linking them.
func seed(t *testing.T, fw *Framework) (propID, procID, relID string) {
	t.Helper()
	s := fw.Store()

	prop := model.NewProperty("Temperature")
	prop.Domain = "Manufacturing"
	propID, err := s.AddPattern(prop)
	require.NoError(t, err)

	proc := model.NewProcess("Heat Treatment")
	proc.Domain = "Manufacturing"
	procID, err = s.AddPattern(proc)
	require.NoError(t, err)

	rel, err := model.NewRelationship(propID, procID, "", 0.8, 0.9)
	require.NoError(t, err)
	relID, err = s.AddRelationship(rel)
	require.NoError(t, err)
	return propID, procID, relID
}

func TestOpen_Defaults(t *testing.T) {
	fw, err := Open(nil, nil, nil)
	require.NoError(t, err)
	defer fw.Close()

	assert.Equal(t, config.BackendMemory, fw.Config().Storage.Backend)
	assert.NotNil(t, fw.Store())
	assert.NotNil(t, fw.Analytics())
	assert.NotNil(t, fw.Telemetry())
	assert.Equal(t, 500, fw.Store().QueryCache().Stats().Capacity)
	assert.Equal(t, 200, fw.Store().MetricsCache().Stats().Capacity)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "cassandra"

	_, err := Open(cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestOpen_TelemetryDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.Enabled = false
	reg := prometheus.NewRegistry()

	fw, err := Open(cfg, nil, reg)
	require.NoError(t, err)
	defer fw.Close()

	assert.Nil(t, fw.Telemetry())
	seed(t, fw)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestOpen_TelemetryRecordsMutations(t *testing.T) {
	reg := prometheus.NewRegistry()
	fw, err := Open(config.Default(), nil, reg)
	require.NoError(t, err)
	defer fw.Close()

	seed(t, fw)

	n, err := testutil.GatherAndCount(reg, "p3if_store_mutations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "add_pattern and add_relationship series")

	_, err = Open(config.Default(), nil, reg)
	assert.Error(t, err, "second framework on the same registry collides")
}

func TestOpen_BadgerRehydrates(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendBadger
	cfg.Storage.DataDir = t.TempDir()

	fw, err := Open(cfg, nil, nil)
	require.NoError(t, err)
	propID, procID, relID := seed(t, fw)
	require.NoError(t, fw.Close())

	reopened, err := Open(cfg, nil, nil)
	require.NoError(t, err)
	defer reopened.Close()

	s := reopened.Store()
	assert.Equal(t, 2, s.PatternCount())
	assert.Equal(t, 1, s.RelationshipCount())
	_, ok := s.GetPattern(propID)
	assert.True(t, ok)
	rels := s.GetRelationshipsByPattern(procID)
	require.Len(t, rels, 1)
	assert.Equal(t, relID, rels[0].ID)
}

func TestOpen_RehydrationKeepsInvalidRelationships(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendBadger
	cfg.Storage.DataDir = t.TempDir()

	fw, err := Open(cfg, nil, nil)
	require.NoError(t, err)
	seed(t, fw)

	// Moving the property onto the occupied process slot leaves the
	// relationship with a single dimension.
	changed, err := fw.Store().HotSwapDimension(model.DimensionProperty, model.DimensionProcess)
	require.NoError(t, err)
	require.Equal(t, 1, changed)
	require.NoError(t, fw.Close())

	reopened, err := Open(cfg, nil, nil)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 2, reopened.Store().PatternCount())
	assert.Equal(t, 1, reopened.Store().RelationshipCount())

	report := reopened.Store().ValidateFramework()
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "relationship", report.Errors[0].Entity)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Storage.Backend = config.BackendRedis
	cfg.Storage.Redis.Addr = mr.Addr()

	fw, err := Open(cfg, nil, nil)
	require.NoError(t, err)
	propID, _, _ := seed(t, fw)
	require.NoError(t, fw.Close())

	assert.True(t, mr.Exists("p3if:pattern:"+propID))

	reopened, err := Open(cfg, nil, nil)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, 2, reopened.Store().PatternCount())
	assert.Equal(t, 1, reopened.Store().RelationshipCount())
}

func TestOpen_RedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendRedis
	cfg.Storage.Redis.Addr = "127.0.0.1:1"
	cfg.Storage.Redis.Timeout = 200 * time.Millisecond

	_, err := Open(cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open persistent storage")
}

func TestFramework_Prewarm(t *testing.T) {
	cfg := config.Default()
	cfg.Pool.Workers = 2

	fw, err := Open(cfg, nil, nil)
	require.NoError(t, err)
	defer fw.Close()
	seed(t, fw)

	require.NoError(t, fw.Prewarm(context.Background()))
	assert.Equal(t, 1, fw.Store().MetricsCache().Len())
	assert.Equal(t, 4, fw.Store().QueryCache().Len())
	assert.EqualValues(t, 5, fw.PoolStats().Completed)

	before := fw.Store().QueryCache().Stats().Hits
	fw.Analytics().DomainSimilarity()
	assert.Equal(t, before+1, fw.Store().QueryCache().Stats().Hits)
}

func TestFramework_Close(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendBadger
	cfg.Storage.InMemory = true

	fw, err := Open(cfg, nil, nil)
	require.NoError(t, err)
	seed(t, fw)

	require.NoError(t, fw.Close())
	require.NoError(t, fw.Close(), "second close is a no-op")

	assert.ErrorIs(t, fw.Prewarm(context.Background()), ErrClosed)

	// The in-memory view stays readable and writable.
	assert.Equal(t, 2, fw.Store().PatternCount())
	_, err = fw.Store().AddPattern(model.NewPerspective("Operator"))
	assert.NoError(t, err)
}
