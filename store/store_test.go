package store

import (
	"context"
	"testing"
	"time"

	"github.com/roundwise/roundwise/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// storeSuite runs the Store contract against an implementation.
func storeSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create then get empty conversation", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Create(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		conv, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, conv.ID)
		assert.Empty(t, conv.Messages)
		assert.WithinDuration(t, time.Now(), conv.CreatedAt, 5*time.Second)
	})

	t.Run("get unknown id", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "no-such-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("append unknown id", func(t *testing.T) {
		s := newStore(t)
		err := s.Append(ctx, "no-such-id", types.NewUserMessage("hi"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("append preserves order and payloads", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Create(ctx)
		require.NoError(t, err)

		stage0 := &types.Stage0Payload{
			NormalizedProblem: "Should we adopt microservices?",
			KeyDimensions:     []string{"Cost", "Skills"},
			ProposedAgents: []types.Agent{
				{AgentID: "expert_1", RoleName: "Technical Expert", RoleMission: "m", Model: "test/a"},
			},
		}
		stage4 := &types.Stage4Payload{Scorings: map[string]types.Stage4Entry{
			"expert_1": {
				RoleName:  "Technical Expert",
				Scores:    []types.ScoreEntry{{ID: "1", Text: "Pilot", Points: 10}},
				Reasoning: "Pilot derisks",
			},
		}}

		require.NoError(t, s.Append(ctx, id, types.NewUserMessage("problem statement")))
		require.NoError(t, s.Append(ctx, id, types.NewAssistantMessage("Gatekeeper Analysis: ...").WithStage0(stage0)))
		require.NoError(t, s.Append(ctx, id, types.NewAssistantMessage("Stage 4: Final Scoring complete").WithStage4(stage4)))

		conv, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.Len(t, conv.Messages, 3)

		assert.Equal(t, types.RoleUser, conv.Messages[0].Role)
		assert.Equal(t, "problem statement", conv.Messages[0].Content)
		assert.Nil(t, conv.Messages[0].Stage0)

		require.NotNil(t, conv.Messages[1].Stage0)
		assert.Equal(t, stage0, conv.Messages[1].Stage0)
		assert.Nil(t, conv.Messages[1].Stage4)

		require.NotNil(t, conv.Messages[2].Stage4)
		assert.Equal(t, stage4, conv.Messages[2].Stage4)
	})

	t.Run("list newest first with message counts", func(t *testing.T) {
		s := newStore(t)
		first, err := s.Create(ctx)
		require.NoError(t, err)
		second, err := s.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, s.Append(ctx, second, types.NewUserMessage("hi")))

		summaries, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)

		byID := make(map[string]types.ConversationSummary, 2)
		for _, sum := range summaries {
			byID[sum.ID] = sum
		}
		assert.Equal(t, 0, byID[first].MessageCount)
		assert.Equal(t, 1, byID[second].MessageCount)

		for i := 1; i < len(summaries); i++ {
			assert.False(t, summaries[i-1].CreatedAt.Before(summaries[i].CreatedAt),
				"summaries must be ordered newest first")
		}
	})

	t.Run("get returns an isolated copy", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, s.Append(ctx, id, types.NewUserMessage("original")))

		conv, err := s.Get(ctx, id)
		require.NoError(t, err)
		conv.Messages[0].Content = "mutated"
		conv.Messages = append(conv.Messages, types.NewUserMessage("extra"))

		again, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.Len(t, again.Messages, 1)
		assert.Equal(t, "original", again.Messages[0].Content)
	})
}

func TestMemoryStore(t *testing.T) {
	storeSuite(t, func(t *testing.T) Store {
		return NewMemory()
	})
}

func TestSQLiteStore(t *testing.T) {
	storeSuite(t, func(t *testing.T) Store {
		s, err := NewSQLite(t.TempDir()+"/conversations.db", zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
