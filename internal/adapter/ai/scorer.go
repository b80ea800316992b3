package ai

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/candidate-screener/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/observability"
)

// Scorer evaluates a resume against a job's weighted criteria with a
// single LLM call and defensive parsing of the response.
type Scorer struct {
	client  domain.AIClient
	counter *tokencount.Counter
	model   string
	// tokenCap bounds how much resume text goes into the prompt.
	tokenCap int
}

// NewScorer constructs a Scorer.
func NewScorer(client domain.AIClient, counter *tokencount.Counter, model string, tokenCap int) *Scorer {
	return &Scorer{client: client, counter: counter, model: model, tokenCap: tokenCap}
}

const scoringBandingInstructions = `CRITICAL INSTRUCTIONS:
1. You MUST provide a score for EVERY criterion listed above
2. Use the EXACT criterion names as shown above (case-sensitive)
3. Scores should vary based on actual resume content
4. Score range: 0-10 where:
   - 0-3: Poor match, significant gaps
   - 4-6: Partial match, some relevant experience
   - 7-8: Good match, solid qualifications
   - 9-10: Excellent match, exceeds requirements
5. Calculate overall score as a weighted average of criterion scores
6. Return ONLY valid JSON - no markdown code blocks, no explanations before or after the JSON`

type scoringResponse struct {
	OverallScore    float64 `json:"overall_score"`
	CriterionScores []struct {
		CriterionName string  `json:"criterion_name"`
		Score         float64 `json:"score"`
	} `json:"criterion_scores"`
	Justification string `json:"justification"`
}

// Score runs one scoring call and parses the result. Provider failures
// return a zero-score result carrying a human-readable justification plus
// the underlying error; the caller decides whether to retry.
func (s *Scorer) Score(ctx domain.Context, resumeText, jobDescription string, criteria []domain.Criterion) (domain.ResumeScore, error) {
	lg := observability.LoggerFromContext(ctx)
	prompt := s.buildPrompt(resumeText, jobDescription, criteria)

	raw, err := s.client.Generate(ctx, prompt)
	if err != nil {
		just := failureJustification(err)
		lg.Error("resume scoring call failed", slog.Any("error", err))
		return domain.ResumeScore{OverallScore: 0.0, Justification: just}, fmt.Errorf("op=scorer.score: %w", err)
	}

	result := s.parseResponse(raw, lg)
	result.OverallScore = ClampScore(result.OverallScore)
	for i := range result.CriterionScores {
		result.CriterionScores[i].Score = ClampScore(result.CriterionScores[i].Score)
	}
	if result.Justification == "" {
		result.Justification = "Score based on resume analysis."
	}
	return result, nil
}

func (s *Scorer) buildPrompt(resumeText, jobDescription string, criteria []domain.Criterion) string {
	var list strings.Builder
	for i, c := range criteria {
		fmt.Fprintf(&list, "%d. %s (Weight: %g%%)\n", i+1, c.Name, c.Weight)
	}
	resumeText = s.counter.TruncateToTokens(resumeText, s.model, s.tokenCap)

	var b strings.Builder
	b.WriteString("You are an expert recruiter. Evaluate this candidate's resume against the job description.\n\n")
	b.WriteString("JOB DESCRIPTION:\n")
	b.WriteString(jobDescription)
	b.WriteString("\n\nEVALUATION CRITERIA (MUST EVALUATE EACH ONE):\n")
	b.WriteString(list.String())
	b.WriteString("\nCANDIDATE RESUME:\n")
	b.WriteString(resumeText)
	b.WriteString("\n\n")
	b.WriteString(scoringBandingInstructions)
	b.WriteString("\n\nREQUIRED JSON FORMAT - You MUST include ALL criteria with EXACT names:\n")
	b.WriteString(`{
    "overall_score": 8.5,
    "criterion_scores": [
        {"criterion_name": "CRITERION_NAME_1", "score": 9.0},
        {"criterion_name": "CRITERION_NAME_2", "score": 8.5}
    ],
    "justification": "Top Strengths:\n- ...\n\nTop Gaps / Risks:\n- ...\n\nRecommendation:\n..."
}`)
	b.WriteString("\n\nIMPORTANT: Replace CRITERION_NAME_1 etc. with the EXACT criterion names from the list above.")
	return b.String()
}

// parseResponse walks the repair chain: structured parse first, regex
// rescue second, hard defaults last.
func (s *Scorer) parseResponse(raw string, lg *slog.Logger) domain.ResumeScore {
	var parsed scoringResponse
	if ParseJSONObject(raw, &parsed) {
		out := domain.ResumeScore{
			OverallScore:  parsed.OverallScore,
			Justification: parsed.Justification,
		}
		for _, cs := range parsed.CriterionScores {
			name := strings.TrimSpace(cs.CriterionName)
			if name == "" {
				continue
			}
			out.CriterionScores = append(out.CriterionScores, domain.RawCriterionScore{
				CriterionName: name,
				Score:         cs.Score,
			})
		}
		return out
	}

	lg.Warn("scoring response unparseable, applying regex rescue",
		slog.Int("response_len", len(raw)))
	out := domain.ResumeScore{OverallScore: 5.0}
	if v, ok := RescueOverallScore(raw); ok {
		out.OverallScore = v
	}
	for _, rc := range RescueCriterionScores(raw) {
		out.CriterionScores = append(out.CriterionScores, domain.RawCriterionScore{
			CriterionName: rc.Name,
			Score:         rc.Score,
		})
	}
	if j, ok := RescueJustification(raw); ok {
		out.Justification = j
	} else {
		out.Justification = "Score based on resume analysis."
	}
	return out
}

// failureJustification maps provider failures to the human-readable
// strings surfaced in the UI.
func failureJustification(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamAuth):
		return "LLM evaluation failed: Invalid or missing API key."
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		return "LLM evaluation failed: API rate limit exceeded. Please try again later."
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "LLM evaluation failed: Request timeout. Please try again."
	default:
		return fmt.Sprintf("LLM evaluation unavailable: %v. Please try again.", err)
	}
}
