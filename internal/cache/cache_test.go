package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bharatcrest/hrmatcher/internal/models"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "matched_42", Key("42"))
	assert.Equal(t, "matched_job-req-7", Key("job-req-7"))
}

func reportWithScores(id, position string, scores ...float64) models.MatchReport {
	candidates := make([]models.CandidateResult, len(scores))
	for i, score := range scores {
		candidates[i] = models.CandidateResult{Score: score}
	}
	return models.MatchReport{
		JobRequirementID: id,
		Position:         position,
		Candidates:       candidates,
		Timestamp:        time.Now().Format(time.RFC3339),
	}
}

func TestMemoryCachePutGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	report := reportWithScores("1", "Software Developer", 85.5, 60.0)
	report.Candidates[0].Name = "John Doe"
	report.Candidates[0].Matched = true
	require.NoError(t, c.Put(ctx, "1", report))

	got, ok, err := c.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, report, got)
	assert.Equal(t, "Software Developer", got.Position)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()

	got, ok, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, got)
}

func TestMemoryCacheKeyIsolation(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "1", reportWithScores("1", "Developer", 10)))
	require.NoError(t, c.Put(ctx, "2", reportWithScores("2", "Analyst", 20)))

	got, ok, err := c.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10.0, got.Candidates[0].Score)
	assert.Equal(t, "Developer", got.Position)
}

func TestMemoryCachePutReplacesWholesale(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "1", reportWithScores("1", "Developer", 10, 20)))
	require.NoError(t, c.Put(ctx, "1", reportWithScores("1", "Developer", 99)))

	got, ok, err := c.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, 99.0, got.Candidates[0].Score)
}

func TestMemoryCacheExpiry(t *testing.T) {
	current := time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "1", reportWithScores("1", "Developer", 10)))

	// Just inside the TTL the entry is live.
	current = current.Add(TTL - time.Second)
	_, ok, err := c.Get(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Past the TTL it reads as a miss.
	current = current.Add(2 * time.Second)
	got, ok, err := c.Get(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, got)
}
