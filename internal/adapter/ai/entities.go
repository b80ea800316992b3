package ai

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/observability"
	"github.com/fairyhunter13/candidate-screener/pkg/textx"
)

// EntityExtractor pulls a candidate's name, email, phone and location out
// of resume text. Three tiers: structured LLM output, regex rescue over
// the raw model output, then a pure heuristic over the resume text itself.
// It never fails; Name is always populated.
type EntityExtractor struct {
	client domain.AIClient
}

// NewEntityExtractor constructs an EntityExtractor.
func NewEntityExtractor(client domain.AIClient) *EntityExtractor {
	return &EntityExtractor{client: client}
}

const entityPrompt = `Extract candidate information from resume text. Return JSON only.

Format requirements:
- Name: Title Case (e.g., "John Smith" not "JOHN SMITH" or "john smith")
- Phone: International format with + and no spaces (e.g., "+971507888888")
- Email: lowercase
- Location: "City, Country" format

Return JSON:
{
    "name": "Title Case Name",
    "email": "email@example.com",
    "phone": "+971507888888",
    "location": "City, Country"
}

Use null if not found. No markdown or explanations.

Extract from resume:

`

// entityTextLimit bounds how much resume text goes into the prompt.
const entityTextLimit = 5000

type entityResponse struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

var (
	nameFieldRe     = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)
	emailFieldRe    = regexp.MustCompile(`"email"\s*:\s*"([^"]+)"`)
	phoneFieldRe    = regexp.MustCompile(`"phone"\s*:\s*"([^"]+)"`)
	locationFieldRe = regexp.MustCompile(`"location"\s*:\s*"([^"]+)"`)

	emailRe    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe    = regexp.MustCompile(`[+]?[(]?[0-9]{1,4}[)]?[-\s.]?[0-9]{1,6}(?:[-\s.()]?[0-9]{1,6}){2,8}`)
	nonDigitRe = regexp.MustCompile(`[^\d+]`)
	locationRe = regexp.MustCompile(`^[A-Z][a-zA-Z\s]+,\s*[A-Z]{2,}`)
)

// Extract returns the candidate's structured fields. On empty input it
// returns the sentinel name with all optional fields empty.
func (e *EntityExtractor) Extract(ctx domain.Context, resumeText string) domain.ExtractedEntities {
	if strings.TrimSpace(resumeText) == "" {
		return domain.ExtractedEntities{Name: domain.UnknownCandidateName}
	}

	lg := observability.LoggerFromContext(ctx)
	text := resumeText
	if len(text) > entityTextLimit {
		text = text[:entityTextLimit]
	}
	raw, err := e.client.Generate(ctx, entityPrompt+text)
	if err != nil {
		lg.Warn("entity extraction call failed, falling back to heuristics",
			slog.Any("error", err))
		return heuristicExtract(resumeText)
	}

	var parsed entityResponse
	if ParseJSONObject(raw, &parsed) {
		return normalizeEntities(parsed)
	}

	// Regex rescue over the raw model output.
	rescued := entityResponse{}
	if m := nameFieldRe.FindStringSubmatch(raw); m != nil {
		rescued.Name = m[1]
	}
	if m := emailFieldRe.FindStringSubmatch(raw); m != nil {
		rescued.Email = m[1]
	}
	if m := phoneFieldRe.FindStringSubmatch(raw); m != nil {
		rescued.Phone = m[1]
	}
	if m := locationFieldRe.FindStringSubmatch(raw); m != nil {
		rescued.Location = m[1]
	}
	if rescued != (entityResponse{}) {
		return normalizeEntities(rescued)
	}
	return heuristicExtract(resumeText)
}

func normalizeEntities(r entityResponse) domain.ExtractedEntities {
	out := domain.ExtractedEntities{}
	if !textx.IsNullish(r.Name) {
		out.Name = textx.TitleCase(r.Name)
	}
	if email := strings.ToLower(strings.TrimSpace(r.Email)); !textx.IsNullish(email) && strings.Contains(email, "@") {
		out.Email = email
	}
	if !textx.IsNullish(r.Phone) {
		out.Phone = normalizePhone(r.Phone)
	}
	if loc := strings.TrimSpace(r.Location); !textx.IsNullish(loc) {
		out.Location = loc
	}
	if out.Name == "" {
		out.Name = domain.UnknownCandidateName
	}
	return out
}

// normalizePhone reduces a phone string to +digits. Numbers shorter than
// seven digits are rejected.
func normalizePhone(s string) string {
	cleaned := nonDigitRe.ReplaceAllString(s, "")
	digits := strings.TrimPrefix(cleaned, "+")
	if len(digits) < 7 {
		return ""
	}
	return "+" + digits
}

// heuristicExtract is the zero-dependency last resort: regex email and
// phone, a name-shaped line from the head of the resume, and a
// "City, COUNTRY" shaped line for location.
func heuristicExtract(text string) domain.ExtractedEntities {
	out := domain.ExtractedEntities{Name: domain.UnknownCandidateName}
	if m := emailRe.FindString(text); m != "" {
		out.Email = strings.ToLower(m)
	}
	if m := phoneRe.FindString(text); m != "" {
		out.Phone = normalizePhone(m)
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i >= 5 {
			break
		}
		line = strings.TrimSpace(line)
		words := strings.Fields(line)
		if len(words) < 2 || len(words) > 4 {
			continue
		}
		collapsed := strings.Join(words, "")
		if isAlpha(collapsed) || (isAlphanumeric(collapsed) && len(line) < 50) {
			out.Name = line
			break
		}
	}
	for i, line := range lines {
		if i >= 20 {
			break
		}
		line = strings.TrimSpace(line)
		if len(line) < 3 || strings.Contains(line, "@") || strings.Contains(strings.ToLower(line), "http") {
			continue
		}
		if locationRe.MatchString(line) {
			out.Location = line
			break
		}
	}
	return out
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
