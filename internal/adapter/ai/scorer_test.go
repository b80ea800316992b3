package ai_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/candidate-screener/internal/adapter/ai"
	"github.com/fairyhunter13/candidate-screener/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

type stubClient struct {
	response string
	err      error
	prompts  []string
}

func (s *stubClient) Generate(_ domain.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newScorer(client domain.AIClient) *ai.Scorer {
	// tokenCap 0 disables prompt truncation so the counter never
	// needs to build an encoding.
	return ai.NewScorer(client, tokencount.NewCounter(), "openai/gpt-4o-mini", 0)
}

func scoringCriteria() []domain.Criterion {
	return []domain.Criterion{
		{Name: "Go Experience", Weight: 60},
		{Name: "Communication", Weight: 40},
	}
}

func TestScorerParsesWellFormedResponse(t *testing.T) {
	t.Parallel()

	client := &stubClient{response: `{
		"overall_score": 8.5,
		"criterion_scores": [
			{"criterion_name": "Go Experience", "score": 9.0},
			{"criterion_name": "Communication", "score": 7.5}
		],
		"justification": "Strong Go background."
	}`}

	got, err := newScorer(client).Score(context.Background(), "resume text", "job description", scoringCriteria())
	require.NoError(t, err)
	assert.Equal(t, 8.5, got.OverallScore)
	require.Len(t, got.CriterionScores, 2)
	assert.Equal(t, domain.RawCriterionScore{CriterionName: "Go Experience", Score: 9.0}, got.CriterionScores[0])
	assert.Equal(t, domain.RawCriterionScore{CriterionName: "Communication", Score: 7.5}, got.CriterionScores[1])
	assert.Equal(t, "Strong Go background.", got.Justification)
}

func TestScorerClampsOutOfRangeScores(t *testing.T) {
	t.Parallel()

	client := &stubClient{response: `{
		"overall_score": 14.0,
		"criterion_scores": [
			{"criterion_name": "Go Experience", "score": -2},
			{"criterion_name": "Communication", "score": 11}
		],
		"justification": "Confused model."
	}`}

	got, err := newScorer(client).Score(context.Background(), "resume", "job", scoringCriteria())
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.OverallScore)
	assert.Equal(t, 0.0, got.CriterionScores[0].Score)
	assert.Equal(t, 10.0, got.CriterionScores[1].Score)
}

func TestScorerHandlesFencedResponse(t *testing.T) {
	t.Parallel()

	client := &stubClient{response: "Here you go:\n```json\n" +
		`{"overall_score": 6.5, "criterion_scores": [], "justification": "OK fit."}` +
		"\n```"}

	got, err := newScorer(client).Score(context.Background(), "resume", "job", scoringCriteria())
	require.NoError(t, err)
	assert.Equal(t, 6.5, got.OverallScore)
	assert.Equal(t, "OK fit.", got.Justification)
}

func TestScorerRegexRescueOnBrokenJSON(t *testing.T) {
	t.Parallel()

	// Unparseable at every structured stage: the rescue regexes still
	// find the fields.
	client := &stubClient{response: `The evaluation: "overall_score": 7.2,,
		"criterion_name": "Go Experience", "score": 8.0
		"criterion_name": "Communication", "score": 6.5
		"justification": "Recovered from noise"`}

	got, err := newScorer(client).Score(context.Background(), "resume", "job", scoringCriteria())
	require.NoError(t, err)
	assert.Equal(t, 7.2, got.OverallScore)
	require.Len(t, got.CriterionScores, 2)
	assert.Equal(t, "Go Experience", got.CriterionScores[0].CriterionName)
	assert.Equal(t, 8.0, got.CriterionScores[0].Score)
	assert.Equal(t, "Recovered from noise", got.Justification)
}

func TestScorerDefaultsWhenNothingRecoverable(t *testing.T) {
	t.Parallel()

	client := &stubClient{response: "I am unable to evaluate this resume."}

	got, err := newScorer(client).Score(context.Background(), "resume", "job", scoringCriteria())
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.OverallScore)
	assert.Empty(t, got.CriterionScores)
	assert.Equal(t, "Score based on resume analysis.", got.Justification)
}

func TestScorerSkipsBlankCriterionNames(t *testing.T) {
	t.Parallel()

	client := &stubClient{response: `{
		"overall_score": 7.0,
		"criterion_scores": [
			{"criterion_name": "   ", "score": 5.0},
			{"criterion_name": "Communication", "score": 6.0}
		],
		"justification": "x"
	}`}

	got, err := newScorer(client).Score(context.Background(), "resume", "job", scoringCriteria())
	require.NoError(t, err)
	require.Len(t, got.CriterionScores, 1)
	assert.Equal(t, "Communication", got.CriterionScores[0].CriterionName)
}

func TestScorerProviderFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		err      error
		wantJust string
	}{
		{
			name:     "auth",
			err:      fmt.Errorf("status 401: %w", domain.ErrUpstreamAuth),
			wantJust: "LLM evaluation failed: Invalid or missing API key.",
		},
		{
			name:     "rate limit",
			err:      fmt.Errorf("status 429: %w", domain.ErrUpstreamRateLimit),
			wantJust: "LLM evaluation failed: API rate limit exceeded. Please try again later.",
		},
		{
			name:     "timeout",
			err:      fmt.Errorf("deadline: %w", domain.ErrUpstreamTimeout),
			wantJust: "LLM evaluation failed: Request timeout. Please try again.",
		},
		{
			name:     "other",
			err:      errors.New("connection reset"),
			wantJust: "LLM evaluation unavailable: connection reset. Please try again.",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := &stubClient{err: tc.err}
			got, err := newScorer(client).Score(context.Background(), "resume", "job", scoringCriteria())
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)
			assert.Zero(t, got.OverallScore)
			assert.Equal(t, tc.wantJust, got.Justification)
		})
	}
}

func TestScorerPromptCarriesCriteriaAndResume(t *testing.T) {
	t.Parallel()

	client := &stubClient{response: `{"overall_score": 5.0, "criterion_scores": [], "justification": "x"}`}
	_, err := newScorer(client).Score(context.Background(), "Avery Quinn, backend engineer", "Build backend services", scoringCriteria())
	require.NoError(t, err)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "1. Go Experience (Weight: 60%)")
	assert.Contains(t, prompt, "2. Communication (Weight: 40%)")
	assert.Contains(t, prompt, "Avery Quinn, backend engineer")
	assert.Contains(t, prompt, "Build backend services")
}
