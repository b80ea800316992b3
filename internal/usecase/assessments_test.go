package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/usecase"
)

func TestCCATScore(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 8.5, usecase.CCATScore(85))
	assert.Equal(t, 0.0, usecase.CCATScore(0))
	assert.Equal(t, 10.0, usecase.CCATScore(100))
}

func TestPersonalityScore(t *testing.T) {
	t.Parallel()
	traits := domain.PersonalityTraits{
		Openness:          8,
		Conscientiousness: 6,
		Extraversion:      7,
		Agreeableness:     9,
		Neuroticism:       4,
	}
	// (8 + 6 + 7 + 9 + (10-4)) / 5
	assert.InDelta(t, 7.2, usecase.PersonalityScore(traits), 1e-9)
}

func TestMergeScores_OverallEqualsResume(t *testing.T) {
	t.Parallel()
	ccat := &domain.CCATResult{Percentile: 99}
	pers := &domain.PersonalityResult{Traits: domain.PersonalityTraits{
		Openness: 10, Conscientiousness: 10, Extraversion: 10, Agreeableness: 10, Neuroticism: 0,
	}}
	sb := usecase.MergeScores(6.4, ccat, pers)
	// Assessment scores are informational; they never move the ranking figure.
	assert.Equal(t, 6.4, sb.OverallScore)
	assert.Equal(t, 6.4, sb.ResumeScore)
	require.NotNil(t, sb.CCATScore)
	assert.Equal(t, 9.9, *sb.CCATScore)
	require.NotNil(t, sb.PersonalityScore)
	assert.Equal(t, 10.0, *sb.PersonalityScore)
}

func TestMergeScores_MissingAssessmentsStayNil(t *testing.T) {
	t.Parallel()
	sb := usecase.MergeScores(7.1, nil, nil)
	assert.Nil(t, sb.CCATScore)
	assert.Nil(t, sb.PersonalityScore)
	assert.Equal(t, 7.1, sb.OverallScore)
}

func TestUploadCCAT_ValidatesPercentile(t *testing.T) {
	t.Parallel()
	svc := usecase.NewAssessmentService(&mockAssessmentRepo{}, &mockCandidateRepo{}, nil, nil)
	for _, p := range []float64{-1, 100.5, 1000} {
		_, err := svc.UploadCCAT(context.Background(), "c1", p)
		require.ErrorIs(t, err, domain.ErrInvalidArgument, "percentile %v", p)
	}
}

func TestUploadCCAT_ReplacesAndRefreshesBreakdown(t *testing.T) {
	t.Parallel()
	cands := &mockCandidateRepo{}
	assess := &mockAssessmentRepo{}
	activity := &mockActivityRepo{}

	analyzed := domain.Candidate{
		ID:    "c1",
		JobID: "j1",
		Name:  "Dana Cole",
		ScoreBreakdown: &domain.ScoreBreakdown{
			ResumeScore:  7.5,
			OverallScore: 7.5,
		},
	}
	cands.On("Get", mock.Anything, "c1").Return(analyzed, nil)
	assess.On("ReplaceCCAT", mock.Anything, mock.MatchedBy(func(r domain.CCATResult) bool {
		return r.CandidateID == "c1" && r.Percentile == 90
	})).Return(nil)
	assess.On("GetCCAT", mock.Anything, "c1").Return(domain.CCATResult{CandidateID: "c1", Percentile: 90}, nil)
	assess.On("GetPersonality", mock.Anything, "c1").Return(domain.PersonalityResult{}, domain.ErrNotFound)
	cands.On("SaveAnalysis", mock.Anything, mock.MatchedBy(func(c domain.Candidate) bool {
		return c.ScoreBreakdown != nil && c.ScoreBreakdown.CCATScore != nil && *c.ScoreBreakdown.CCATScore == 9.0
	})).Return(nil)
	activity.On("Record", mock.Anything, mock.MatchedBy(func(e domain.ActivityEvent) bool {
		return e.Type == "ccat_uploaded" && e.CandidateID == "c1"
	})).Return(nil)

	svc := usecase.NewAssessmentService(assess, cands, activity, nil)
	sb, err := svc.UploadCCAT(context.Background(), "c1", 90)
	require.NoError(t, err)
	require.NotNil(t, sb.CCATScore)
	assert.Equal(t, 9.0, *sb.CCATScore)
	assert.Equal(t, 7.5, sb.OverallScore)

	cands.AssertExpectations(t)
	assess.AssertExpectations(t)
	activity.AssertExpectations(t)
}

func TestUploadCCAT_NoBreakdownSkipsPersistence(t *testing.T) {
	t.Parallel()
	cands := &mockCandidateRepo{}
	assess := &mockAssessmentRepo{}

	pending := domain.Candidate{ID: "c2", JobID: "j1", Name: "Lee Park"}
	cands.On("Get", mock.Anything, "c2").Return(pending, nil)
	assess.On("ReplaceCCAT", mock.Anything, mock.Anything).Return(nil)
	assess.On("GetCCAT", mock.Anything, "c2").Return(domain.CCATResult{CandidateID: "c2", Percentile: 50}, nil)
	assess.On("GetPersonality", mock.Anything, "c2").Return(domain.PersonalityResult{}, domain.ErrNotFound)

	svc := usecase.NewAssessmentService(assess, cands, nil, nil)
	sb, err := svc.UploadCCAT(context.Background(), "c2", 50)
	require.NoError(t, err)
	require.NotNil(t, sb.CCATScore)
	assert.Equal(t, 5.0, *sb.CCATScore)
	// SaveAnalysis must not run without a resume score.
	cands.AssertNotCalled(t, "SaveAnalysis", mock.Anything, mock.Anything)
}

func TestUploadPersonality_ValidatesTraits(t *testing.T) {
	t.Parallel()
	svc := usecase.NewAssessmentService(&mockAssessmentRepo{}, &mockCandidateRepo{}, nil, nil)
	_, err := svc.UploadPersonality(context.Background(), "c1", domain.PersonalityTraits{Openness: 11})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.UploadPersonality(context.Background(), "c1", domain.PersonalityTraits{Neuroticism: -0.1})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUploadPersonality_ReplaceSemantics(t *testing.T) {
	t.Parallel()
	cands := &mockCandidateRepo{}
	assess := &mockAssessmentRepo{}

	cands.On("Get", mock.Anything, "c3").Return(domain.Candidate{ID: "c3", JobID: "j1"}, nil)
	traits := domain.PersonalityTraits{Openness: 5, Conscientiousness: 5, Extraversion: 5, Agreeableness: 5, Neuroticism: 5}
	assess.On("ReplacePersonality", mock.Anything, mock.MatchedBy(func(r domain.PersonalityResult) bool {
		return r.CandidateID == "c3" && r.Traits == traits
	})).Return(nil)
	assess.On("GetCCAT", mock.Anything, "c3").Return(domain.CCATResult{}, domain.ErrNotFound)
	assess.On("GetPersonality", mock.Anything, "c3").Return(domain.PersonalityResult{CandidateID: "c3", Traits: traits}, nil)

	svc := usecase.NewAssessmentService(assess, cands, nil, nil)
	sb, err := svc.UploadPersonality(context.Background(), "c3", traits)
	require.NoError(t, err)
	require.NotNil(t, sb.PersonalityScore)
	assert.Equal(t, 5.0, *sb.PersonalityScore)
	assess.AssertExpectations(t)
}

func TestUploadDocument_CSVWithPercentileColumn(t *testing.T) {
	t.Parallel()
	cands := &mockCandidateRepo{}
	assess := &mockAssessmentRepo{}

	cands.On("Get", mock.Anything, "c1").Return(domain.Candidate{ID: "c1", JobID: "j1", Name: "Dana Cole"}, nil)
	assess.On("ReplaceCCAT", mock.Anything, mock.MatchedBy(func(r domain.CCATResult) bool {
		return r.CandidateID == "c1" && r.Percentile == 85
	})).Return(nil)
	assess.On("GetCCAT", mock.Anything, "c1").Return(domain.CCATResult{CandidateID: "c1", Percentile: 85}, nil)
	assess.On("GetPersonality", mock.Anything, "c1").Return(domain.PersonalityResult{}, domain.ErrNotFound)

	svc := usecase.NewAssessmentService(assess, cands, nil, nil)
	res, err := svc.UploadDocument(context.Background(), "c1", usecase.UploadFile{
		Filename: "ccat-results.csv",
		Data:     []byte("name,percentile,raw_score\nDana Cole,85,41\n"),
	})
	require.NoError(t, err)
	assert.True(t, res.CCAT)
	assert.False(t, res.Personality)
	require.NotNil(t, res.Breakdown.CCATScore)
	assert.Equal(t, 8.5, *res.Breakdown.CCATScore)
	assess.AssertExpectations(t)
}

func TestUploadDocument_CSVWithBothSections(t *testing.T) {
	t.Parallel()
	cands := &mockCandidateRepo{}
	assess := &mockAssessmentRepo{}

	traits := domain.PersonalityTraits{Openness: 8, Conscientiousness: 6, Extraversion: 7, Agreeableness: 9, Neuroticism: 4}
	cands.On("Get", mock.Anything, "c1").Return(domain.Candidate{ID: "c1", JobID: "j1"}, nil)
	assess.On("ReplaceCCAT", mock.Anything, mock.MatchedBy(func(r domain.CCATResult) bool {
		return r.Percentile == 90
	})).Return(nil)
	assess.On("ReplacePersonality", mock.Anything, mock.MatchedBy(func(r domain.PersonalityResult) bool {
		return r.Traits == traits
	})).Return(nil)
	assess.On("GetCCAT", mock.Anything, "c1").Return(domain.CCATResult{CandidateID: "c1", Percentile: 90}, nil)
	assess.On("GetPersonality", mock.Anything, "c1").Return(domain.PersonalityResult{CandidateID: "c1", Traits: traits}, nil)

	svc := usecase.NewAssessmentService(assess, cands, nil, nil)
	csvBody := "ccat_percentile,openness,conscientiousness,extraversion,agreeableness,neuroticism\n90,8,6,7,9,4\n"
	res, err := svc.UploadDocument(context.Background(), "c1", usecase.UploadFile{
		Filename: "combined.csv",
		Data:     []byte(csvBody),
	})
	require.NoError(t, err)
	assert.True(t, res.CCAT)
	assert.True(t, res.Personality)
	require.NotNil(t, res.Breakdown.CCATScore)
	assert.Equal(t, 9.0, *res.Breakdown.CCATScore)
	require.NotNil(t, res.Breakdown.PersonalityScore)
	assert.InDelta(t, 7.2, *res.Breakdown.PersonalityScore, 1e-9)
	assess.AssertExpectations(t)
}

func TestUploadDocument_CSVWithoutAssessmentColumns(t *testing.T) {
	t.Parallel()
	svc := usecase.NewAssessmentService(&mockAssessmentRepo{}, &mockCandidateRepo{}, nil, nil)
	_, err := svc.UploadDocument(context.Background(), "c1", usecase.UploadFile{
		Filename: "notes.csv",
		Data:     []byte("name,email\nDana Cole,dana@example.com\n"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUploadDocument_CSVWithoutDataRow(t *testing.T) {
	t.Parallel()
	svc := usecase.NewAssessmentService(&mockAssessmentRepo{}, &mockCandidateRepo{}, nil, nil)
	_, err := svc.UploadDocument(context.Background(), "c1", usecase.UploadFile{
		Filename: "empty.csv",
		Data:     []byte("percentile\n"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUploadDocument_PDFViaExtraction(t *testing.T) {
	t.Parallel()
	cands := &mockCandidateRepo{}
	assess := &mockAssessmentRepo{}
	extractor := &mockExtractor{}

	report := "Candidate Assessment Report\nCCAT Percentile: 72\nOpenness: 8\nConscientiousness: 6\nExtraversion: 7\nAgreeableness: 9\nNeuroticism: 4\n"
	extractor.On("Extract", mock.Anything, "report.pdf", mock.Anything).Return(report, nil)

	traits := domain.PersonalityTraits{Openness: 8, Conscientiousness: 6, Extraversion: 7, Agreeableness: 9, Neuroticism: 4}
	cands.On("Get", mock.Anything, "c1").Return(domain.Candidate{ID: "c1", JobID: "j1"}, nil)
	assess.On("ReplaceCCAT", mock.Anything, mock.MatchedBy(func(r domain.CCATResult) bool {
		return r.Percentile == 72
	})).Return(nil)
	assess.On("ReplacePersonality", mock.Anything, mock.MatchedBy(func(r domain.PersonalityResult) bool {
		return r.Traits == traits
	})).Return(nil)
	assess.On("GetCCAT", mock.Anything, "c1").Return(domain.CCATResult{CandidateID: "c1", Percentile: 72}, nil)
	assess.On("GetPersonality", mock.Anything, "c1").Return(domain.PersonalityResult{CandidateID: "c1", Traits: traits}, nil)

	svc := usecase.NewAssessmentService(assess, cands, nil, extractor)
	res, err := svc.UploadDocument(context.Background(), "c1", usecase.UploadFile{
		Filename: "report.pdf",
		Data:     []byte("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.True(t, res.CCAT)
	assert.True(t, res.Personality)
	assess.AssertExpectations(t)
	extractor.AssertExpectations(t)
}

func TestUploadDocument_PDFWithoutResults(t *testing.T) {
	t.Parallel()
	extractor := &mockExtractor{}
	extractor.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return("Interview summary with general notes only.", nil)

	svc := usecase.NewAssessmentService(&mockAssessmentRepo{}, &mockCandidateRepo{}, nil, extractor)
	_, err := svc.UploadDocument(context.Background(), "c1", usecase.UploadFile{
		Filename: "notes.pdf",
		Data:     []byte("%PDF-1.4"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUploadDocument_PDFWithoutExtractor(t *testing.T) {
	t.Parallel()
	svc := usecase.NewAssessmentService(&mockAssessmentRepo{}, &mockCandidateRepo{}, nil, nil)
	_, err := svc.UploadDocument(context.Background(), "c1", usecase.UploadFile{
		Filename: "report.pdf",
		Data:     []byte("%PDF-1.4"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
