// Package advisor answers student questions about courses by retrieving
// matching courses from the vector index and asking the chat provider.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/llm"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/metrics"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/studyplan"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/vectorindex"
)

// State is a step of a chat turn.
type State string

const (
	StateNoContext          State = "no_context"
	StateResolvingStudyPlan State = "resolving_study_plan"
	StateRetrieving         State = "retrieving"
	StateGenerating         State = "generating"
	StateDone               State = "done"
	StateError              State = "error"
)

// UnavailableMessage is the answer when the index or the chat provider fails.
const UnavailableMessage = "I'm sorry, the course database is temporarily unavailable. Please try again in a few minutes."

const (
	hintLogin          = "Note: please log in again so I can tailor course information to your study program."
	hintForbidden      = "Note: you do not have access to this study plan, so this answer is not tailored to your study program."
	hintPlanNotFound   = "Note: the selected study plan could not be found, so this answer covers courses from all study programs."
	hintNoContext      = "Note: your study plan could not be loaded right now, so this answer covers courses from all study programs."
	hintRecommendation = "Tip: select a study plan to get recommendations tailored to your study program."
)

// PlanResolver looks up study plans.
type PlanResolver interface {
	Lookup(ctx context.Context, id, bearer string) studyplan.Outcome
}

// Request is one chat question.
type Request struct {
	Question    string
	SessionID   string
	StudyPlanID string
	// Bearer is the caller's credential, forwarded to the study-plan service.
	Bearer string
}

// ChatTurn is the outcome of one request.
type ChatTurn struct {
	Question    string
	StudyPlanID string
	// ProgramID is empty when no study program was resolved.
	ProgramID   string
	ProgramName string
	Hits        []vectorindex.Hit
	Answer      string
	CourseCodes []string
	Hint        string
	States      []State
	Err         error
}

func (t *ChatTurn) enter(s State) { t.States = append(t.States, s) }

// Final returns the last state the turn reached.
func (t *ChatTurn) Final() State {
	if len(t.States) == 0 {
		return StateNoContext
	}
	return t.States[len(t.States)-1]
}

// Config holds the engine's collaborators. Plans may be nil when no
// study-plan service is configured.
type Config struct {
	Embedder  llm.Embedder
	Index     vectorindex.Index
	Provider  llm.Provider
	Plans     PlanResolver
	TopK      int
	MaxTokens int
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
}

// Engine holds the initialized handles shared by all chat requests. It is
// read-only after construction.
type Engine struct {
	embedder  llm.Embedder
	index     vectorindex.Index
	provider  llm.Provider
	plans     PlanResolver
	topK      int
	maxTokens int
	log       *logger.Logger
	metrics   *metrics.Metrics
}

func New(cfg Config) (*Engine, error) {
	if cfg.Embedder == nil || cfg.Index == nil || cfg.Provider == nil {
		return nil, errors.New("advisor: embedder, index and provider are required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Engine{
		embedder:  cfg.Embedder,
		index:     cfg.Index,
		provider:  cfg.Provider,
		plans:     cfg.Plans,
		topK:      cfg.TopK,
		maxTokens: cfg.MaxTokens,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
	}, nil
}

// Ask runs one chat turn. It never fails: collaborator errors degrade the
// answer and are reported in ChatTurn.Err.
func (e *Engine) Ask(ctx context.Context, req Request) *ChatTurn {
	turn := &ChatTurn{Question: req.Question, StudyPlanID: strings.TrimSpace(req.StudyPlanID)}
	turn.enter(StateNoContext)
	log := e.log.With("session_id", req.SessionID)

	if turn.StudyPlanID != "" {
		turn.enter(StateResolvingStudyPlan)
		turn.Hint = e.resolvePlan(ctx, turn, req.Bearer)
	}

	turn.enter(StateRetrieving)
	hits, err := e.retrieve(ctx, turn)
	if err != nil {
		log.Warn("retrieval failed", "error", err)
		return e.fail(turn, err)
	}
	turn.Hits = hits

	turn.enter(StateGenerating)
	start := time.Now()
	answer, err := e.provider.Generate(ctx, renderPrompt(hits, req.Question), e.maxTokens)
	e.metrics.ObserveStage("generate", time.Since(start))
	if err != nil {
		log.Warn("generation failed", "error", err)
		return e.fail(turn, err)
	}
	answer = llm.StripCodeFence(answer)
	if answer == "" {
		return e.fail(turn, errors.New("empty answer from chat provider"))
	}

	turn.enter(StateDone)
	turn.Answer = answer
	e.finish(turn)
	e.metrics.ChatOutcome(string(StateDone))
	log.Info("chat answered", "hits", len(hits), "program", turn.ProgramID, "codes", len(turn.CourseCodes))
	return turn
}

func (e *Engine) resolvePlan(ctx context.Context, turn *ChatTurn, bearer string) string {
	if e.plans == nil {
		return hintNoContext
	}
	start := time.Now()
	out := e.plans.Lookup(ctx, turn.StudyPlanID, bearer)
	e.metrics.ObserveStage("study_plan", time.Since(start))

	switch out.Status {
	case studyplan.Resolved:
		turn.ProgramID = out.Plan.ProgramID()
		turn.ProgramName = out.Plan.StudyProgramName
		return ""
	case studyplan.Unauthorized:
		return hintLogin
	case studyplan.Forbidden:
		return hintForbidden
	case studyplan.NotFound:
		return hintPlanNotFound
	default:
		return hintNoContext
	}
}

func (e *Engine) retrieve(ctx context.Context, turn *ChatTurn) ([]vectorindex.Hit, error) {
	text := turn.Question
	if turn.ProgramName != "" {
		text = fmt.Sprintf("Study program: %s\n%s", turn.ProgramName, turn.Question)
	}

	start := time.Now()
	vec, err := llm.EmbedOne(ctx, e.embedder, text)
	e.metrics.ObserveStage("embed", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	start = time.Now()
	hits, err := e.index.Search(ctx, vec, e.topK, turn.ProgramID)
	e.metrics.ObserveStage("search", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	out := hits[:0:0]
	for _, h := range hits {
		if turn.ProgramID != "" && h.StudyProgramID != turn.ProgramID {
			continue
		}
		out = append(out, h)
		if len(out) == e.topK {
			break
		}
	}
	return out, nil
}

func (e *Engine) fail(turn *ChatTurn, err error) *ChatTurn {
	turn.enter(StateError)
	turn.Err = err
	turn.Answer = UnavailableMessage
	e.finish(turn)
	e.metrics.ChatOutcome(string(StateError))
	return turn
}

// finish extracts course codes and appends the contextual hint.
func (e *Engine) finish(turn *ChatTurn) {
	turn.CourseCodes = ExtractCourseCodes(turn.Question, turn.Answer)
	if turn.Hint == "" && turn.ProgramID == "" && IsRecommendation(turn.Question) {
		turn.Hint = hintRecommendation
	}
	if turn.Hint != "" {
		turn.Answer += "\n\n" + turn.Hint
	}
}

// Ping checks the vector index.
func (e *Engine) Ping(ctx context.Context) error {
	return e.index.Ping(ctx)
}
