package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alekhya6767/Avatar-Talk/pipeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordChunkAndHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	results := []pipeline.Result{
		{SourceText: "one", TranslatedText: "uno", Success: true,
			Timings: pipeline.Timings{pipeline.StageTotal: 1200 * time.Millisecond}},
		{SourceText: "two", TranslatedText: "dos", Success: true,
			Timings: pipeline.Timings{pipeline.StageTotal: 800 * time.Millisecond}},
	}
	for i, r := range results {
		require.NoError(t, s.RecordChunk(ctx, "session-a", uint64(i+1), r))
	}
	require.NoError(t, s.RecordChunk(ctx, "session-b", 1, pipeline.Result{
		SourceText: "other", TranslatedText: "otro", Success: true,
		Timings: pipeline.Timings{},
	}))

	history, err := s.SessionHistory(ctx, "session-a")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, uint64(1), history[0].Seq)
	assert.Equal(t, "one", history[0].SourceText)
	assert.Equal(t, "uno", history[0].TranslatedText)
	assert.True(t, history[0].Success)
	assert.InDelta(t, 1.2, history[0].TotalSeconds, 0.001)
	assert.Equal(t, uint64(2), history[1].Seq)
}

func TestStore_RecordFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordChunk(ctx, "session-a", 1, pipeline.Result{
		Error:   "no speech detected in input audio",
		Timings: pipeline.Timings{pipeline.StageTotal: 100 * time.Millisecond},
	}))

	history, err := s.SessionHistory(ctx, "session-a")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Contains(t, history[0].Error, "no speech")
}

func TestStore_Recent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordBatch(ctx, pipeline.Result{
			SourceText: string(rune('a' + i)), Success: true, Timings: pipeline.Timings{},
		}))
	}

	recent, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "e", recent[0].SourceText, "most recent record comes first")
}
