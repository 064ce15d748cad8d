package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/orneryd/p3if/pkg/model"
)

func newTestBadger(t *testing.T) *BadgerPersistence {
	t.Helper()
	b, err := NewBadgerPersistenceInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBadgerPersistence_SaveLoad(t *testing.T) {
	b := newTestBadger(t)

	// Ids deliberately sort opposite to insertion order.
	z := model.NewProperty("Zeta")
	z.ID = "z"
	a := model.NewProcess("Alpha")
	a.ID = "a"
	r, err := model.NewRelationship("z", "a", "", 0.4, 0.6)
	require.NoError(t, err)

	require.NoError(t, b.SavePattern(z))
	require.NoError(t, b.SavePattern(a))
	require.NoError(t, b.SaveRelationship(r))

	// Re-saving keeps the original position.
	z.Description = "updated"
	require.NoError(t, b.SavePattern(z))

	patterns, rels, err := b.LoadAll()
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "z", patterns[0].ID)
	assert.Equal(t, "updated", patterns[0].Description)
	assert.Equal(t, model.DimensionProcess, patterns[1].Type())
	require.Len(t, rels, 1)
	assert.Equal(t, r.ID, rels[0].ID)
	assert.Equal(t, 0.4, rels[0].Strength)
}

func TestBadgerPersistence_DeleteAndClear(t *testing.T) {
	b := newTestBadger(t)

	p := model.NewProperty("P")
	c := model.NewProcess("C")
	r, _ := model.NewRelationship(p.ID, c.ID, "", 0.5, 0.5)
	require.NoError(t, b.SavePattern(p))
	require.NoError(t, b.SavePattern(c))
	require.NoError(t, b.SaveRelationship(r))

	require.NoError(t, b.DeleteRelationship(r.ID))
	require.NoError(t, b.DeletePattern(p.ID))
	require.NoError(t, b.DeletePattern("never-stored"))

	patterns, rels, err := b.LoadAll()
	require.NoError(t, err)
	assert.Len(t, patterns, 1)
	assert.Empty(t, rels)

	require.NoError(t, b.Clear())
	patterns, _, err = b.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestBadgerPersistence_StoreRehydration(t *testing.T) {
	b := newTestBadger(t)
	s := NewStore(Options{Persistence: b})

	p := model.NewProperty("P")
	c := model.NewProcess("C")
	v := model.NewPerspective("V")
	s.AddPatternsBatch([]*model.Pattern{p, c, v})
	r, _ := model.NewRelationship(p.ID, c.ID, v.ID, 0.7, 0.7)
	_, err := s.AddRelationship(r)
	require.NoError(t, err)

	_, err = s.HotSwapDimension(model.DimensionPerspective, model.DimensionProperty)
	require.NoError(t, err)
	require.True(t, s.RemovePattern(p.ID))

	patterns, rels, err := b.LoadAll()
	require.NoError(t, err)

	restored := NewStore(Options{})
	res := restored.Restore(patterns, rels)
	assert.Zero(t, res.Failed)
	assert.Equal(t, s.PatternCount(), restored.PatternCount())
	assert.Equal(t, s.RelationshipCount(), restored.RelationshipCount())

	got, ok := restored.GetRelationship(r.ID)
	require.True(t, ok)
	assert.Equal(t, v.ID, got.PropertyID)
	assert.Empty(t, got.PerspectiveID)
}

func TestBadgerPersistence_Closed(t *testing.T) {
	b, err := NewBadgerPersistenceInMemory()
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "close is idempotent")

	assert.ErrorIs(t, b.SavePattern(model.NewProperty("P")), ErrStorageClosed)
	_, _, err = b.LoadAll()
	assert.ErrorIs(t, err, ErrStorageClosed)
}

func TestZapBadgerLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := ZapBadgerLogger(zap.New(core))

	l.Errorf("compaction failed: %d", 3)
	l.Warningf("slow write")
	l.Infof("replaying value log")
	l.Debugf("level %d", 0)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "compaction failed: 3", entries[0].Message)
	assert.Equal(t, "badger", entries[0].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[3].Level)
}

func TestBadgerPersistence_WithLogger(t *testing.T) {
	b, err := NewBadgerPersistence(BadgerOptions{
		InMemory: true,
		Logger:   ZapBadgerLogger(zap.NewNop()),
	})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.SavePattern(model.NewProperty("Logged")))
}
