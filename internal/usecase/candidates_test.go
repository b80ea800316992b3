package usecase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/usecase"
)

func candidateServiceFixture() (usecase.CandidateService, *mockCandidateRepo, *mockJobRepo, *mockFileRepo, *mockActivityRepo, *mockExtractor, *mockEntities) {
	cands := &mockCandidateRepo{}
	jobs := &mockJobRepo{}
	files := &mockFileRepo{}
	activity := &mockActivityRepo{}
	extractor := &mockExtractor{}
	entities := &mockEntities{}
	svc := usecase.NewCandidateService(cands, jobs, files, activity, extractor, entities, nil, nil, 15)
	return svc, cands, jobs, files, activity, extractor, entities
}

func TestUpload_Single(t *testing.T) {
	t.Parallel()
	svc, cands, jobs, files, activity, extractor, entities := candidateServiceFixture()

	jobs.On("Get", mock.Anything, "j1").Return(jobFixture(), nil)
	extractor.On("Extract", mock.Anything, "resume.pdf", mock.Anything).
		Return("Jordan Reyes\nSenior Go engineer with CV text.", nil)
	files.On("Store", mock.Anything, mock.MatchedBy(func(f domain.StoredFile) bool {
		return f.Filename == "resume.pdf" && f.Size == int64(4)
	})).Return("file-1", nil)
	entities.On("Extract", mock.Anything, mock.Anything).Return(domain.ExtractedEntities{
		Name:  "Jordan Reyes",
		Email: "jordan@example.com",
		Phone: "+9715551234567",
	})
	cands.On("Create", mock.Anything, mock.MatchedBy(func(c domain.Candidate) bool {
		return c.JobID == "j1" &&
			c.Name == "Jordan Reyes" &&
			c.AnalysisState == domain.AnalysisPending &&
			c.ReviewState == domain.ReviewUnseen &&
			c.ResumeFileID == "file-1"
	})).Return("c-new", nil)
	activity.On("Record", mock.Anything, mock.Anything).Return(nil)

	cand, err := svc.Upload(context.Background(), "j1", usecase.UploadFile{
		Filename: "resume.pdf",
		MIME:     "application/pdf",
		Data:     []byte("%PDF"),
	})
	require.NoError(t, err)
	assert.Equal(t, "c-new", cand.ID)
	assert.Equal(t, "jordan@example.com", cand.Contact.Email)
	cands.AssertExpectations(t)
}

func TestUpload_EmptyFileRejected(t *testing.T) {
	t.Parallel()
	svc, _, jobs, _, _, _, _ := candidateServiceFixture()
	jobs.On("Get", mock.Anything, "j1").Return(jobFixture(), nil)

	_, err := svc.Upload(context.Background(), "j1", usecase.UploadFile{Filename: "blank.pdf"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestBulkUpload_OneEmptyFileAmongFifteen(t *testing.T) {
	t.Parallel()
	svc, cands, jobs, files, activity, extractor, entities := candidateServiceFixture()

	jobs.On("Get", mock.Anything, "j1").Return(jobFixture(), nil)
	extractor.On("Extract", mock.Anything, mock.Anything, mock.Anything).Return("Resume body text long enough.", nil)
	files.On("Store", mock.Anything, mock.Anything).Return("file-x", nil)
	entities.On("Extract", mock.Anything, mock.Anything).Return(domain.ExtractedEntities{Name: "Some Person"})
	cands.On("CreateMany", mock.Anything, mock.MatchedBy(func(cs []domain.Candidate) bool {
		return len(cs) == 14
	})).Return(func() []string {
		ids := make([]string, 14)
		for i := range ids {
			ids[i] = fmt.Sprintf("c-%d", i)
		}
		return ids
	}(), nil)
	activity.On("Record", mock.Anything, mock.Anything).Return(nil)

	uploads := make([]usecase.UploadFile, 0, 15)
	for i := 0; i < 15; i++ {
		f := usecase.UploadFile{Filename: fmt.Sprintf("cv-%02d.pdf", i), Data: []byte("content")}
		if i == 7 {
			f.Data = nil // zero-byte file
		}
		uploads = append(uploads, f)
	}

	res, err := svc.BulkUpload(context.Background(), "j1", uploads)
	require.NoError(t, err)
	assert.Len(t, res.Created, 14)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "cv-07.pdf", res.Failed[0].Filename)
	assert.Equal(t, "empty file", res.Failed[0].Reason)
}

func TestBulkUpload_BatchInsertFallsBackPerRow(t *testing.T) {
	t.Parallel()
	svc, cands, jobs, files, activity, extractor, entities := candidateServiceFixture()

	jobs.On("Get", mock.Anything, "j1").Return(jobFixture(), nil)
	extractor.On("Extract", mock.Anything, mock.Anything, mock.Anything).Return("Resume body text.", nil)
	files.On("Store", mock.Anything, mock.Anything).Return("file-x", nil)
	entities.On("Extract", mock.Anything, mock.Anything).Return(domain.ExtractedEntities{Name: "Some Person"})
	cands.On("CreateMany", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("batch failed"))
	// Row-level retry: one row keeps failing, the other succeeds.
	cands.On("Create", mock.Anything, mock.MatchedBy(func(c domain.Candidate) bool {
		return c.ResumeFilename == "a.pdf"
	})).Return("c-a", nil)
	cands.On("Create", mock.Anything, mock.MatchedBy(func(c domain.Candidate) bool {
		return c.ResumeFilename == "b.pdf"
	})).Return("", fmt.Errorf("row failed"))
	activity.On("Record", mock.Anything, mock.Anything).Return(nil)

	res, err := svc.BulkUpload(context.Background(), "j1", []usecase.UploadFile{
		{Filename: "a.pdf", Data: []byte("x")},
		{Filename: "b.pdf", Data: []byte("y")},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "c-a", res.Created[0].ID)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "b.pdf", res.Failed[0].Filename)
}

func TestGet_FlipsUnseenToSeen(t *testing.T) {
	t.Parallel()
	svc, cands, _, _, _, _, _ := candidateServiceFixture()

	c := pendingCandidate()
	cands.On("Get", mock.Anything, "c1").Return(c, nil)
	cands.On("SetReviewState", mock.Anything, "c1", domain.ReviewSeen).Return(nil)

	got, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewSeen, got.ReviewState)
	cands.AssertExpectations(t)
}

func TestGet_SeenCandidateNotTouched(t *testing.T) {
	t.Parallel()
	svc, cands, _, _, _, _, _ := candidateServiceFixture()

	c := pendingCandidate()
	c.ReviewState = domain.ReviewShortlisted
	cands.On("Get", mock.Anything, "c1").Return(c, nil)

	got, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewShortlisted, got.ReviewState)
	cands.AssertNotCalled(t, "SetReviewState", mock.Anything, mock.Anything, mock.Anything)
}

func TestReview_RejectSendsMail(t *testing.T) {
	t.Parallel()
	cands := &mockCandidateRepo{}
	jobs := &mockJobRepo{}
	activity := &mockActivityRepo{}
	mailer := &mockMailer{}
	svc := usecase.NewCandidateService(cands, jobs, nil, activity, nil, nil, nil, mailer, 15)

	c := pendingCandidate()
	c.Contact.Email = "avery@example.com"
	cands.On("Get", mock.Anything, "c1").Return(c, nil)
	cands.On("SetReviewState", mock.Anything, "c1", domain.ReviewRejected).Return(nil)
	jobs.On("Get", mock.Anything, "j1").Return(jobFixture(), nil)
	activity.On("Record", mock.Anything, mock.MatchedBy(func(e domain.ActivityEvent) bool {
		return e.Type == "candidate_rejected"
	})).Return(nil)
	mailer.On("Send", mock.Anything, "avery@example.com", mock.Anything, mock.Anything, false).Return(nil)

	got, err := svc.Review(context.Background(), "c1", domain.ReviewRejected)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewRejected, got.ReviewState)
	mailer.AssertExpectations(t)
}

func TestReview_ShortlistSkipsMail(t *testing.T) {
	t.Parallel()
	cands := &mockCandidateRepo{}
	jobs := &mockJobRepo{}
	mailer := &mockMailer{}
	svc := usecase.NewCandidateService(cands, jobs, nil, nil, nil, nil, nil, mailer, 15)

	c := pendingCandidate()
	c.Contact.Email = "avery@example.com"
	cands.On("Get", mock.Anything, "c1").Return(c, nil)
	cands.On("SetReviewState", mock.Anything, "c1", domain.ReviewShortlisted).Return(nil)

	_, err := svc.Review(context.Background(), "c1", domain.ReviewShortlisted)
	require.NoError(t, err)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReview_InvalidState(t *testing.T) {
	t.Parallel()
	svc, _, _, _, _, _, _ := candidateServiceFixture()
	_, err := svc.Review(context.Background(), "c1", domain.ReviewState("archived"))
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestDelete_RemovesStoredResume(t *testing.T) {
	t.Parallel()
	svc, cands, _, files, activity, _, _ := candidateServiceFixture()

	c := pendingCandidate()
	c.ResumeFileID = "file-9"
	cands.On("Get", mock.Anything, "c1").Return(c, nil)
	files.On("Delete", mock.Anything, "file-9").Return(nil)
	cands.On("Delete", mock.Anything, "c1").Return(nil)
	activity.On("Record", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), "c1"))
	files.AssertExpectations(t)
	cands.AssertExpectations(t)
}

func TestUpdateProfile_BlankNameRejected(t *testing.T) {
	t.Parallel()
	svc, cands, _, _, _, _, _ := candidateServiceFixture()
	cands.On("Get", mock.Anything, "c1").Return(pendingCandidate(), nil)

	blank := "   "
	_, err := svc.UpdateProfile(context.Background(), "c1", usecase.ProfilePatch{Name: &blank})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestUpdateProfile_PartialUpdate(t *testing.T) {
	t.Parallel()
	svc, cands, _, _, _, _, _ := candidateServiceFixture()
	cands.On("Get", mock.Anything, "c1").Return(pendingCandidate(), nil)
	email := "NEW@Example.COM"
	cands.On("Update", mock.Anything, mock.MatchedBy(func(c domain.Candidate) bool {
		return c.Contact.Email == "new@example.com" && c.Name == "Avery Quinn"
	})).Return(nil)

	got, err := svc.UpdateProfile(context.Background(), "c1", usecase.ProfilePatch{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Contact.Email)
}

func TestDownloadResume(t *testing.T) {
	t.Parallel()
	svc, cands, _, files, _, _, _ := candidateServiceFixture()

	c := pendingCandidate()
	c.ResumeFileID = "file-3"
	cands.On("Get", mock.Anything, "c1").Return(c, nil)
	files.On("Load", mock.Anything, "file-3").Return(domain.StoredFile{
		ID: "file-3", Filename: "cv.pdf", MIME: "application/pdf", Data: []byte("%PDF"),
	}, nil)

	f, err := svc.DownloadResume(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "cv.pdf", f.Filename)
}
