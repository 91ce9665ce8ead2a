package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/catalog"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/metrics"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/studyplan"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/vectorindex"
)

type fakeEmbedder struct {
	texts []string
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.texts = append(f.texts, texts...)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakeIndex struct {
	hits      []vectorindex.Hit
	err       error
	programID string
	limit     int
}

func (f *fakeIndex) Search(_ context.Context, _ []float64, limit int, programID string) ([]vectorindex.Hit, error) {
	f.programID, f.limit = programID, limit
	if f.err != nil {
		return nil, f.err
	}
	var out []vectorindex.Hit
	for _, h := range f.hits {
		if programID == "" || h.StudyProgramID == programID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeIndex) Upsert(context.Context, []vectorindex.Point) error { return nil }
func (f *fakeIndex) Dimension() int                                    { return 3 }
func (f *fakeIndex) Ping(context.Context) error                        { return f.err }
func (f *fakeIndex) Close() error                                      { return nil }

type fakeProvider struct {
	answer string
	err    error
	prompt string
}

func (f *fakeProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func (f *fakeProvider) IsConfigured() bool { return true }

type fakePlans struct {
	outcome studyplan.Outcome
	bearer  string
}

func (f *fakePlans) Lookup(_ context.Context, _ string, bearer string) studyplan.Outcome {
	f.bearer = bearer
	return f.outcome
}

func hit(id, name, program string, score float64) vectorindex.Hit {
	return vectorindex.Hit{
		CourseInfo: catalog.CourseInfo{ModuleID: id, Name: name, StudyProgramID: program, Content: name + " content"},
		Score:      score,
	}
}

func sampleHits() []vectorindex.Hit {
	return []vectorindex.Hit{
		hit("IN2064", "Machine Learning", "121", 0.91),
		hit("IN2346", "Introduction to Deep Learning", "200", 0.88),
		hit("IN2003", "Efficient Algorithms", "121", 0.52),
	}
}

func resolvedPlan(program string) studyplan.Outcome {
	return studyplan.Outcome{Status: studyplan.Resolved, Plan: &studyplan.Plan{
		StudyProgramID:   json.Number(program),
		StudyProgramName: "M.Sc. Information Systems",
	}}
}

type fixture struct {
	embedder *fakeEmbedder
	index    *fakeIndex
	provider *fakeProvider
	plans    *fakePlans
	metrics  *metrics.Metrics
	engine   *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		embedder: &fakeEmbedder{},
		index:    &fakeIndex{hits: sampleHits()},
		provider: &fakeProvider{answer: "You could take IN2064 Machine Learning."},
		plans:    &fakePlans{},
		metrics:  metrics.New(),
	}
	e, err := New(Config{
		Embedder: f.embedder,
		Index:    f.index,
		Provider: f.provider,
		Plans:    f.plans,
		TopK:     5,
		Metrics:  f.metrics,
	})
	require.NoError(t, err)
	f.engine = e
	return f
}

func TestAskWithoutStudyPlan(t *testing.T) {
	f := newFixture(t)
	turn := f.engine.Ask(context.Background(), Request{Question: "Tell me about machine learning courses"})

	assert.Equal(t, []State{StateNoContext, StateRetrieving, StateGenerating, StateDone}, turn.States)
	assert.Empty(t, f.index.programID)
	assert.Equal(t, 5, f.index.limit)
	assert.Len(t, turn.Hits, 3)
	assert.Equal(t, "You could take IN2064 Machine Learning.", turn.Answer)
	assert.Equal(t, []string{"IN2064"}, turn.CourseCodes)
	assert.NoError(t, turn.Err)
	assert.Contains(t, f.provider.prompt, "Question: Tell me about machine learning courses")
	assert.Contains(t, f.provider.prompt, "[1] IN2064 Machine Learning")

	n, err := testutil.GatherAndCount(f.metrics.Registry(), "advisor_chat_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAskResolvedStudyPlanFiltersHits(t *testing.T) {
	f := newFixture(t)
	f.plans.outcome = resolvedPlan("121")

	turn := f.engine.Ask(context.Background(), Request{
		Question:    "Which courses should I take next semester?",
		StudyPlanID: "42",
		Bearer:      "tok",
	})

	assert.Equal(t, []State{StateNoContext, StateResolvingStudyPlan, StateRetrieving, StateGenerating, StateDone}, turn.States)
	assert.Equal(t, "tok", f.plans.bearer)
	assert.Equal(t, "121", turn.ProgramID)
	assert.Equal(t, "121", f.index.programID)
	require.NotEmpty(t, turn.Hits)
	for _, h := range turn.Hits {
		assert.Equal(t, "121", h.StudyProgramID)
	}
	assert.True(t, strings.HasPrefix(f.embedder.texts[0], "Study program: M.Sc. Information Systems\n"))
	assert.NotContains(t, turn.Answer, hintRecommendation)
}

func TestAskDropsHitsFromOtherPrograms(t *testing.T) {
	f := newFixture(t)
	f.plans.outcome = resolvedPlan("121")
	leaky := &leakyIndex{fakeIndex{hits: sampleHits()}}
	e, err := New(Config{Embedder: f.embedder, Index: leaky, Provider: f.provider, Plans: f.plans})
	require.NoError(t, err)

	turn := e.Ask(context.Background(), Request{Question: "deep learning", StudyPlanID: "42"})
	require.Len(t, turn.Hits, 2)
	for _, h := range turn.Hits {
		assert.Equal(t, "121", h.StudyProgramID)
	}
}

// leakyIndex ignores the program filter.
type leakyIndex struct{ fakeIndex }

func (l *leakyIndex) Search(ctx context.Context, v []float64, limit int, _ string) ([]vectorindex.Hit, error) {
	return l.fakeIndex.Search(ctx, v, limit, "")
}

func TestAskStudyPlanFailuresDegrade(t *testing.T) {
	cases := []struct {
		status studyplan.Status
		hint   string
	}{
		{studyplan.Unauthorized, hintLogin},
		{studyplan.Forbidden, hintForbidden},
		{studyplan.NotFound, hintPlanNotFound},
		{studyplan.Unavailable, hintNoContext},
	}
	for _, tc := range cases {
		t.Run(tc.status.String(), func(t *testing.T) {
			f := newFixture(t)
			f.plans.outcome = studyplan.Outcome{Status: tc.status}

			turn := f.engine.Ask(context.Background(), Request{
				Question:    "Tell me about machine learning courses",
				StudyPlanID: "42",
				Bearer:      "invalid",
			})
			assert.Equal(t, StateDone, turn.Final())
			assert.Empty(t, f.index.programID, "retrieval runs unfiltered")
			assert.Len(t, turn.Hits, 3)
			assert.True(t, strings.HasSuffix(turn.Answer, tc.hint))
			assert.NoError(t, turn.Err)
		})
	}
}

func TestAskUnauthorizedMentionsLogin(t *testing.T) {
	f := newFixture(t)
	f.plans.outcome = studyplan.Outcome{Status: studyplan.Unauthorized}

	turn := f.engine.Ask(context.Background(), Request{Question: "What is IN2003?", StudyPlanID: "7", Bearer: "expired"})
	assert.NotEmpty(t, turn.Answer)
	assert.Contains(t, turn.Answer, "log in")
}

func TestAskRecommendationHintWithoutPlan(t *testing.T) {
	f := newFixture(t)
	turn := f.engine.Ask(context.Background(), Request{Question: "Can you recommend an elective?"})
	assert.True(t, strings.HasSuffix(turn.Answer, hintRecommendation))

	turn = f.engine.Ask(context.Background(), Request{Question: "What is taught in IN2064?"})
	assert.NotContains(t, turn.Answer, hintRecommendation)
}

func TestAskGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.provider.err = errors.New("model overloaded")

	turn := f.engine.Ask(context.Background(), Request{Question: "Is IN2003 hard?"})
	assert.Equal(t, []State{StateNoContext, StateRetrieving, StateGenerating, StateError}, turn.States)
	assert.Equal(t, UnavailableMessage, turn.Answer)
	assert.Equal(t, []string{"IN2003"}, turn.CourseCodes)
	assert.ErrorContains(t, turn.Err, "model overloaded")
}

func TestAskRetrievalFailure(t *testing.T) {
	f := newFixture(t)
	f.index.err = errors.New("connection refused")

	turn := f.engine.Ask(context.Background(), Request{Question: "machine learning"})
	assert.Equal(t, StateError, turn.Final())
	assert.Equal(t, UnavailableMessage, turn.Answer)
	assert.Empty(t, f.provider.prompt, "no generation after failed retrieval")

	f = newFixture(t)
	f.embedder.err = errors.New("embedder down")
	turn = f.engine.Ask(context.Background(), Request{Question: "machine learning"})
	assert.Equal(t, StateError, turn.Final())
}

func TestAskStripsCodeFence(t *testing.T) {
	f := newFixture(t)
	f.provider.answer = "```markdown\nSee **IN2064**.\n```"
	turn := f.engine.Ask(context.Background(), Request{Question: "ml"})
	assert.Equal(t, "See **IN2064**.", turn.Answer)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
