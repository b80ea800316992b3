package usecase

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

// AssessmentUpload reports which result kinds a document carried and the
// breakdown after the last merge.
type AssessmentUpload struct {
	Breakdown   domain.ScoreBreakdown
	CCAT        bool
	Personality bool
}

var bigFiveTraits = []string{"openness", "conscientiousness", "extraversion", "agreeableness", "neuroticism"}

// Vendor exports drift on labeling, so the percentile is tried against a
// few shapes in order of specificity.
var ccatPercentileRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)CCAT[:\s]+Percentile[:\s]+(\d+\.?\d*)`),
	regexp.MustCompile(`(?i)Percentile[:\s]+(\d+\.?\d*)`),
	regexp.MustCompile(`(?i)CCAT[:\s]+Score[:\s]+(\d+\.?\d*)`),
}

var traitRes = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(bigFiveTraits))
	for _, trait := range bigFiveTraits {
		m[trait] = regexp.MustCompile(`(?i)` + trait + `(?:\s+score)?[:\s]+(\d+\.?\d*)`)
	}
	return m
}()

// UploadDocument ingests a combined assessment results file for one
// candidate. CSV files are read from the header row (percentile or
// ccat_percentile for CCAT, Big Five trait columns for personality);
// PDFs go through text extraction and regex scraping. Either section may
// be absent; a file carrying neither is an error.
func (s AssessmentService) UploadDocument(ctx domain.Context, candidateID string, f UploadFile) (AssessmentUpload, error) {
	var (
		percentile *float64
		traits     *domain.PersonalityTraits
		err        error
	)
	if strings.EqualFold(filepath.Ext(f.Filename), ".pdf") {
		percentile, traits, err = s.parseAssessmentPDF(ctx, f)
	} else {
		percentile, traits, err = parseAssessmentCSV(f.Data)
	}
	if err != nil {
		return AssessmentUpload{}, err
	}
	if percentile == nil && traits == nil {
		return AssessmentUpload{}, fmt.Errorf("%w: no assessment results found in %s", domain.ErrInvalidArgument, f.Filename)
	}

	var out AssessmentUpload
	if percentile != nil {
		sb, err := s.UploadCCAT(ctx, candidateID, *percentile)
		if err != nil {
			return AssessmentUpload{}, err
		}
		out.Breakdown = sb
		out.CCAT = true
	}
	if traits != nil {
		sb, err := s.UploadPersonality(ctx, candidateID, *traits)
		if err != nil {
			return AssessmentUpload{}, err
		}
		out.Breakdown = sb
		out.Personality = true
	}
	return out, nil
}

func (s AssessmentService) parseAssessmentPDF(ctx domain.Context, f UploadFile) (*float64, *domain.PersonalityTraits, error) {
	if s.Extractor == nil {
		return nil, nil, fmt.Errorf("%w: PDF assessment uploads are not configured", domain.ErrInvalidArgument)
	}
	text, err := s.Extractor.Extract(ctx, f.Filename, f.Data)
	if err != nil {
		return nil, nil, err
	}

	var percentile *float64
	for _, re := range ccatPercentileRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			percentile = &v
			break
		}
	}

	vals := make(map[string]float64, len(bigFiveTraits))
	nonZero := false
	for _, trait := range bigFiveTraits {
		m := traitRes[trait].FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		vals[trait] = v
		if v != 0 {
			nonZero = true
		}
	}
	// A PDF with every trait absent or zero carries no personality
	// section; missing traits in a matched section stay zero.
	var traits *domain.PersonalityTraits
	if nonZero {
		traits = traitsFromValues(vals)
	}
	return percentile, traits, nil
}

// parseAssessmentCSV reads the first data row of a per-candidate results
// export. Column names are matched case-insensitively.
func parseAssessmentCSV(data []byte) (*float64, *domain.PersonalityTraits, error) {
	rd := csv.NewReader(bytes.NewReader(data))
	rd.TrimLeadingSpace = true
	header, err := rd.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unreadable CSV: %v", domain.ErrInvalidArgument, err)
	}
	record, err := rd.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: CSV has no data row", domain.ErrInvalidArgument)
	}
	row := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(record) {
			row[strings.ToLower(strings.TrimSpace(h))] = strings.TrimSpace(record[i])
		}
	}

	var percentile *float64
	for _, key := range []string{"percentile", "ccat_percentile"} {
		v, ok := row[key]
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: column %s is not numeric", domain.ErrInvalidArgument, key)
		}
		percentile = &f
		break
	}

	vals := make(map[string]float64, len(bigFiveTraits))
	found := false
	for _, trait := range bigFiveTraits {
		v, ok := row[trait]
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: column %s is not numeric", domain.ErrInvalidArgument, trait)
		}
		vals[trait] = f
		found = true
	}
	var traits *domain.PersonalityTraits
	if found {
		traits = traitsFromValues(vals)
	}
	return percentile, traits, nil
}

func traitsFromValues(vals map[string]float64) *domain.PersonalityTraits {
	return &domain.PersonalityTraits{
		Openness:          vals["openness"],
		Conscientiousness: vals["conscientiousness"],
		Extraversion:      vals["extraversion"],
		Agreeableness:     vals["agreeableness"],
		Neuroticism:       vals["neuroticism"],
	}
}
