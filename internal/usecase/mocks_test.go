package usecase_test

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

type mockJobRepo struct{ mock.Mock }

func (m *mockJobRepo) Create(ctx domain.Context, j domain.Job) (string, error) {
	args := m.Called(ctx, j)
	return args.String(0), args.Error(1)
}

func (m *mockJobRepo) Get(ctx domain.Context, id string) (domain.Job, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Job), args.Error(1)
}

func (m *mockJobRepo) List(ctx domain.Context, status domain.JobStatus, limit, offset int) ([]domain.Job, error) {
	args := m.Called(ctx, status, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]domain.Job), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobRepo) Update(ctx domain.Context, j domain.Job) error {
	return m.Called(ctx, j).Error(0)
}

func (m *mockJobRepo) TouchLastRun(ctx domain.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockJobRepo) Delete(ctx domain.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockCandidateRepo struct{ mock.Mock }

func (m *mockCandidateRepo) Create(ctx domain.Context, c domain.Candidate) (string, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Error(1)
}

func (m *mockCandidateRepo) CreateMany(ctx domain.Context, cs []domain.Candidate) ([]string, error) {
	args := m.Called(ctx, cs)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCandidateRepo) Get(ctx domain.Context, id string) (domain.Candidate, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Candidate), args.Error(1)
}

func (m *mockCandidateRepo) ListByJob(ctx domain.Context, jobID string, limit, offset int) ([]domain.Candidate, error) {
	args := m.Called(ctx, jobID, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]domain.Candidate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCandidateRepo) Update(ctx domain.Context, c domain.Candidate) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCandidateRepo) SetAnalysisState(ctx domain.Context, id string, state domain.AnalysisState) error {
	return m.Called(ctx, id, state).Error(0)
}

func (m *mockCandidateRepo) SaveAnalysis(ctx domain.Context, c domain.Candidate) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCandidateRepo) SetReviewState(ctx domain.Context, id string, state domain.ReviewState) error {
	return m.Called(ctx, id, state).Error(0)
}

func (m *mockCandidateRepo) Delete(ctx domain.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCandidateRepo) DeleteByJob(ctx domain.Context, jobID string) (int64, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCandidateRepo) CountByJob(ctx domain.Context, jobID string) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}

type mockAssessmentRepo struct{ mock.Mock }

func (m *mockAssessmentRepo) ReplaceCCAT(ctx domain.Context, r domain.CCATResult) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockAssessmentRepo) GetCCAT(ctx domain.Context, candidateID string) (domain.CCATResult, error) {
	args := m.Called(ctx, candidateID)
	return args.Get(0).(domain.CCATResult), args.Error(1)
}

func (m *mockAssessmentRepo) ReplacePersonality(ctx domain.Context, r domain.PersonalityResult) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockAssessmentRepo) GetPersonality(ctx domain.Context, candidateID string) (domain.PersonalityResult, error) {
	args := m.Called(ctx, candidateID)
	return args.Get(0).(domain.PersonalityResult), args.Error(1)
}

type mockFileRepo struct{ mock.Mock }

func (m *mockFileRepo) Store(ctx domain.Context, f domain.StoredFile) (string, error) {
	args := m.Called(ctx, f)
	return args.String(0), args.Error(1)
}

func (m *mockFileRepo) Load(ctx domain.Context, id string) (domain.StoredFile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.StoredFile), args.Error(1)
}

func (m *mockFileRepo) Delete(ctx domain.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockActivityRepo struct{ mock.Mock }

func (m *mockActivityRepo) Record(ctx domain.Context, e domain.ActivityEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockActivityRepo) List(ctx domain.Context, limit, offset int) ([]domain.ActivityEvent, error) {
	args := m.Called(ctx, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]domain.ActivityEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockScorer struct{ mock.Mock }

func (m *mockScorer) Score(ctx domain.Context, resumeText, jobDescription string, criteria []domain.Criterion) (domain.ResumeScore, error) {
	args := m.Called(ctx, resumeText, jobDescription, criteria)
	return args.Get(0).(domain.ResumeScore), args.Error(1)
}

type mockExtractor struct{ mock.Mock }

func (m *mockExtractor) Extract(ctx domain.Context, filename string, data []byte) (string, error) {
	args := m.Called(ctx, filename, data)
	return args.String(0), args.Error(1)
}

type mockEntities struct{ mock.Mock }

func (m *mockEntities) Extract(ctx domain.Context, resumeText string) domain.ExtractedEntities {
	args := m.Called(ctx, resumeText)
	return args.Get(0).(domain.ExtractedEntities)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx domain.Context, to, subject, body string, isHTML bool) error {
	return m.Called(ctx, to, subject, body, isHTML).Error(0)
}

// fakeLocker always grants the lock and counts acquisitions.
type fakeLocker struct {
	busy     bool
	acquired int
}

func (f *fakeLocker) TryLock(_ domain.Context, _ string, _ time.Duration) (func(), bool, error) {
	if f.busy {
		return nil, false, nil
	}
	f.acquired++
	return func() {}, true, nil
}
