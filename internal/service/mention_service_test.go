package service

import (
	"context"
	"testing"
	"time"

	"clubhouse/internal/mention"
	"clubhouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMentionService_Suggest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, name := range []string{"alex", "alice", "alina", "alma", "alto", "alvin", "bob"} {
		f.user(t, name)
	}
	svc := NewMentionService(f.profiles)
	ctx := context.Background()

	got, err := svc.Suggest(ctx, "@Al")
	require.NoError(t, err)
	require.Len(t, got, mention.MaxSuggestions)
	assert.Equal(t, "alex", got[0].Username)

	got, err = svc.Suggest(ctx, "bo")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].Username)

	got, err = svc.Suggest(ctx, " @ ")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMentionService_LookupFeedsSuggester(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.user(t, "alice")
	s := mention.NewSuggester(NewMentionService(f.profiles).Lookup(), 5*time.Millisecond)
	t.Cleanup(s.Close)

	results := make(chan []models.Profile, 1)
	s.Query("ali", func(p []models.Profile, err error) {
		assert.NoError(t, err)
		results <- p
	})

	select {
	case got := <-results:
		require.Len(t, got, 1)
		assert.Equal(t, "alice", got[0].Username)
	case <-time.After(5 * time.Second):
		t.Fatal("suggestion was not delivered")
	}
}
