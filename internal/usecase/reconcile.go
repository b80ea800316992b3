package usecase

import (
	"hash/fnv"
	"math"
	"strings"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

// ReconcileCriteria maps the scorer's criterion labels back onto the
// job's declared criteria, producing exactly one CriterionScore per
// declared criterion in declared order.
//
// Matching cascade per criterion, first hit wins: exact, case-insensitive,
// whitespace-normalized (case-sensitive then case-insensitive), then
// substring containment either direction over the raw scores in their
// order of appearance. Anything left unmatched gets a synthesized score.
func ReconcileCriteria(criteria []domain.Criterion, raw []domain.RawCriterionScore, overallScore float64) []domain.CriterionScore {
	exact := make(map[string]float64, len(raw))
	lower := make(map[string]float64, len(raw))
	normalized := make(map[string]float64, len(raw))
	normalizedLower := make(map[string]float64, len(raw))
	for _, rs := range raw {
		name := strings.TrimSpace(rs.CriterionName)
		if name == "" {
			continue
		}
		// First occurrence wins on duplicate labels.
		if _, ok := exact[name]; !ok {
			exact[name] = rs.Score
		}
		if _, ok := lower[strings.ToLower(name)]; !ok {
			lower[strings.ToLower(name)] = rs.Score
		}
		norm := strings.Join(strings.Fields(name), " ")
		if _, ok := normalized[norm]; !ok {
			normalized[norm] = rs.Score
		}
		if _, ok := normalizedLower[strings.ToLower(norm)]; !ok {
			normalizedLower[strings.ToLower(norm)] = rs.Score
		}
	}

	out := make([]domain.CriterionScore, 0, len(criteria))
	for _, c := range criteria {
		score, matched := matchCriterion(c.Name, raw, exact, lower, normalized, normalizedLower)
		if !matched {
			score = SynthesizeScore(c.Name, c.Weight, &overallScore)
		}
		out = append(out, domain.CriterionScore{
			CriterionName: c.Name,
			Score:         score,
			Weight:        c.Weight,
		})
	}
	return out
}

func matchCriterion(name string, raw []domain.RawCriterionScore, exact, lower, normalized, normalizedLower map[string]float64) (float64, bool) {
	if v, ok := exact[name]; ok {
		return v, true
	}
	if v, ok := lower[strings.ToLower(name)]; ok {
		return v, true
	}
	norm := strings.Join(strings.Fields(name), " ")
	if v, ok := normalized[norm]; ok {
		return v, true
	}
	if v, ok := normalizedLower[strings.ToLower(norm)]; ok {
		return v, true
	}
	// Partial match walks the raw scores in order of appearance so the
	// outcome does not depend on map iteration.
	nameLower := strings.ToLower(name)
	for _, rs := range raw {
		rawLower := strings.ToLower(strings.TrimSpace(rs.CriterionName))
		if rawLower == "" {
			continue
		}
		if strings.Contains(nameLower, rawLower) || strings.Contains(rawLower, nameLower) {
			return rs.Score, true
		}
	}
	return 0, false
}

// SynthesizeScore generates a deterministic fallback score for a
// criterion the model did not address. The variation comes from a stable
// FNV-1a hash of the criterion name, not from timing or randomness, so
// identical inputs reproduce identical scores. Low-weight criteria vary
// more than high-weight ones. A nil overall means no overall score is
// available and the base falls back to 7.0; an overall of 0.0 is a real
// score and synthesizes around zero.
func SynthesizeScore(name string, weight float64, overall *float64) float64 {
	base := 7.0
	if overall != nil {
		base = *overall
	}
	weightFactor := weight / 100.0
	variation := ((float64(stableHash(name)%100) / 100.0) - 0.5) * 2.0
	score := base + variation*(1-weightFactor)
	score = math.Round(clamp(score, 0, 10)*10) / 10
	return score
}

// stableHash is FNV-1a 32-bit over the UTF-8 bytes of s.
func stableHash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
