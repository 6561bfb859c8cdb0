package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/roundwise/roundwise/internal/progress"
	"github.com/roundwise/roundwise/store"
	"github.com/roundwise/roundwise/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Coordinator advances a conversation through the deliberation stages. It
// reconstructs stage inputs from the conversation's message log, enforces
// stage preconditions, serializes concurrent advances of the same
// conversation and appends exactly one assistant message per successful
// stage.
type Coordinator struct {
	store   store.Store
	stages  *Stages
	tracker progress.Tracker
	logger  *zap.Logger
	tracer  trace.Tracer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ScoringResult is the caller-facing stage-4 outcome: the payload plus the
// ranking derived from it.
type ScoringResult struct {
	Payload      *types.Stage4Payload  `json:"payload"`
	LabelToModel map[string]string     `json:"label_to_model"`
	Rankings     []types.AggregateRank `json:"aggregate_rankings"`
}

// NewCoordinator creates a coordinator over the given store and stage set.
func NewCoordinator(st store.Store, stages *Stages, tracker progress.Tracker, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:   st,
		stages:  stages,
		tracker: tracker,
		logger:  logger.With(zap.String("component", "coordinator")),
		tracer:  otel.Tracer("roundwise/pipeline"),
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-conversation execution lock. The conversation
// log is the unit of isolation; this lock is the single-writer discipline
// at the read-then-append boundary.
func (c *Coordinator) lockFor(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}

// logState holds the most recent payload per stage type, reconstructed
// from the message log.
type logState struct {
	stage0 *types.Stage0Payload
	stage1 *types.Stage1Payload
	stage2 *types.Stage2Payload
	stage3 *types.Stage3Payload
}

// reconstruct folds over the message sequence from newest to oldest,
// short-circuiting per stage type once found. Later messages shadow
// earlier ones of the same stage type.
func reconstruct(conv *types.Conversation) logState {
	var st logState
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		m := conv.Messages[i]
		if st.stage0 == nil && m.Stage0 != nil {
			st.stage0 = m.Stage0
		}
		if st.stage1 == nil && m.Stage1 != nil {
			st.stage1 = m.Stage1
		}
		if st.stage2 == nil && m.Stage2 != nil {
			st.stage2 = m.Stage2
		}
		if st.stage3 == nil && m.Stage3 != nil {
			st.stage3 = m.Stage3
		}
		if st.stage0 != nil && st.stage1 != nil && st.stage2 != nil && st.stage3 != nil {
			break
		}
	}
	return st
}

// SubmitProblem records the user's problem statement and runs the
// gatekeeper stage.
func (c *Coordinator) SubmitProblem(ctx context.Context, conversationID, problem string) (*types.Stage0Payload, error) {
	lock := c.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := c.load(ctx, conversationID); err != nil {
		return nil, err
	}

	var payload *types.Stage0Payload
	err := c.runStage(ctx, conversationID, "stage0", func(ctx context.Context) error {
		if err := c.store.Append(ctx, conversationID, types.NewUserMessage(problem)); err != nil {
			return c.appendError(err)
		}

		payload = c.stages.RunGatekeeper(ctx, problem)

		msg := types.NewAssistantMessage("Gatekeeper Analysis: " + payload.NormalizedProblem).WithStage0(payload)
		if err := c.store.Append(ctx, conversationID, msg); err != nil {
			return c.appendError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// ConfirmRoles runs the initial expert analysis with the confirmed agents.
// When agents is empty, the proposal from the latest stage-0 payload is
// used as-is.
func (c *Coordinator) ConfirmRoles(ctx context.Context, conversationID string, agents []types.Agent) (*types.Stage1Payload, error) {
	lock := c.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := c.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	st := reconstruct(conv)
	if st.stage0 == nil {
		return nil, precondition("no initial context found")
	}
	if len(agents) == 0 {
		agents = st.stage0.ProposedAgents
	}

	var payload *types.Stage1Payload
	err = c.runStage(ctx, conversationID, "stage1", func(ctx context.Context) error {
		payload = c.stages.RunInitialAnalysis(ctx, st.stage0.NormalizedProblem, st.stage0.KeyDimensions, agents)

		msg := types.NewAssistantMessage("Stage 1: Initial Expert Analyses complete").WithStage1(payload)
		if err := c.store.Append(ctx, conversationID, msg); err != nil {
			return c.appendError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// RequestRebuttal runs the pairwise rebuttal stage.
func (c *Coordinator) RequestRebuttal(ctx context.Context, conversationID string) (*types.Stage2Payload, error) {
	lock := c.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := c.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	st := reconstruct(conv)
	if st.stage0 == nil {
		return nil, precondition("no initial context found")
	}
	if st.stage1 == nil {
		return nil, precondition("stage 2 requires a stage 1 result")
	}

	var payload *types.Stage2Payload
	err = c.runStage(ctx, conversationID, "stage2", func(ctx context.Context) error {
		var stageErr error
		payload, stageErr = c.stages.RunRebuttal(ctx, st.stage0.NormalizedProblem, agentsFor(st), st.stage1)
		if stageErr != nil {
			return stageErr
		}

		msg := types.NewAssistantMessage("Stage 2: Expert Rebuttals complete").WithStage2(payload)
		if err := c.store.Append(ctx, conversationID, msg); err != nil {
			return c.appendError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// RequestSynthesis runs the notary synthesis stage.
func (c *Coordinator) RequestSynthesis(ctx context.Context, conversationID string) (*types.Stage3Payload, error) {
	lock := c.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := c.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	st := reconstruct(conv)
	if st.stage0 == nil {
		return nil, precondition("no initial context found")
	}
	if st.stage1 == nil {
		return nil, precondition("stage 3 requires a stage 1 result")
	}
	if st.stage2 == nil {
		return nil, precondition("stage 3 requires a stage 2 result")
	}

	var payload *types.Stage3Payload
	err = c.runStage(ctx, conversationID, "stage3", func(ctx context.Context) error {
		payload = c.stages.RunSynthesis(ctx, st.stage0.NormalizedProblem, st.stage1, st.stage2)

		msg := types.NewAssistantMessage("Stage 3: Notary Synthesis complete").WithStage3(payload)
		if err := c.store.Append(ctx, conversationID, msg); err != nil {
			return c.appendError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// RequestScoring runs the scoring stage and derives the aggregate ranking
// from the just-produced result. Stage 2 is deliberately not required:
// scoring reasons over stage-1 context and stage-3 solutions only. The
// label map from the latest stage-2 payload is returned for display when
// one exists.
func (c *Coordinator) RequestScoring(ctx context.Context, conversationID string) (*ScoringResult, error) {
	lock := c.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := c.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	st := reconstruct(conv)
	if st.stage0 == nil {
		return nil, precondition("no initial context found")
	}
	if st.stage1 == nil {
		return nil, precondition("stage 4 requires a stage 1 result")
	}
	if st.stage3 == nil {
		return nil, precondition("stage 4 requires a stage 3 result")
	}

	result := &ScoringResult{LabelToModel: map[string]string{}}
	if st.stage2 != nil {
		result.LabelToModel = st.stage2.LabelToModel
	}

	err = c.runStage(ctx, conversationID, "stage4", func(ctx context.Context) error {
		result.Payload = c.stages.RunScoring(ctx, st.stage3.ProposedSolutions, st.stage1, agentsFor(st))
		result.Rankings = AggregateRanking(result.Payload)

		msg := types.NewAssistantMessage("Stage 4: Final Scoring complete").WithStage4(result.Payload)
		if err := c.store.Append(ctx, conversationID, msg); err != nil {
			return c.appendError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// load fetches a conversation, mapping a missing id to a typed not-found
// error.
func (c *Coordinator) load(ctx context.Context, id string) (*types.Conversation, error) {
	conv, err := c.store.Get(ctx, id)
	if err == store.ErrNotFound {
		return nil, types.NewError(types.ErrNotFound, "conversation not found").
			WithHTTPStatus(http.StatusNotFound)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "load conversation").
			WithHTTPStatus(http.StatusInternalServerError).WithCause(err)
	}
	return conv, nil
}

// runStage wraps one stage execution with the progress marker, a trace
// span, run metrics and panic containment. A panicking stage surfaces as
// an internal fault with the marker cleared and nothing appended.
func (c *Coordinator) runStage(ctx context.Context, conversationID, stage string, fn func(ctx context.Context) error) (err error) {
	start := time.Now()

	if c.tracker != nil {
		if terr := c.tracker.Set(ctx, conversationID, stage); terr != nil {
			c.logger.Warn("progress marker set failed", zap.String("stage", stage), zap.Error(terr))
		}
		defer func() {
			if terr := c.tracker.Clear(context.WithoutCancel(ctx), conversationID); terr != nil {
				c.logger.Warn("progress marker clear failed", zap.String("stage", stage), zap.Error(terr))
			}
		}()
	}

	ctx, span := c.tracer.Start(ctx, "pipeline."+stage,
		trace.WithAttributes(attribute.String("conversation.id", conversationID)),
	)
	defer span.End()

	defer func() {
		outcome := "success"
		if r := recover(); r != nil {
			c.logger.Error("stage execution panicked",
				zap.String("stage", stage),
				zap.String("conversation_id", conversationID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = types.NewError(types.ErrInternalError, fmt.Sprintf("internal fault during %s", stage)).
				WithHTTPStatus(http.StatusInternalServerError)
			outcome = "panic"
		} else if err != nil {
			outcome = "error"
		}
		c.stages.recordStage(stage, outcome, time.Since(start))
	}()

	return fn(ctx)
}

func (c *Coordinator) appendError(err error) error {
	if err == store.ErrNotFound {
		return types.NewError(types.ErrNotFound, "conversation not found").
			WithHTTPStatus(http.StatusNotFound)
	}
	return types.NewError(types.ErrInternalError, "append stage result").
		WithHTTPStatus(http.StatusInternalServerError).WithCause(err)
}

// agentsFor resolves the agent list later stages operate on. The roster
// recorded with the stage-1 result is authoritative once it exists: it
// carries any caller edits to the stage-0 proposal. The proposal itself
// only serves conversations whose stage-1 payload predates the recorded
// roster.
func agentsFor(st logState) []types.Agent {
	if st.stage1 != nil && len(st.stage1.Agents) > 0 {
		return st.stage1.Agents
	}
	return st.stage0.ProposedAgents
}

func precondition(msg string) *types.Error {
	return types.NewError(types.ErrPreconditionFailed, msg).WithHTTPStatus(http.StatusBadRequest)
}
