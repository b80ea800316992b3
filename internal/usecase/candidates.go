package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/observability"
)

// EntityExtractor is the slice of the AI adapter the candidate service
// needs for profile field extraction. It never fails; Name is always
// populated.
type EntityExtractor interface {
	Extract(ctx domain.Context, resumeText string) domain.ExtractedEntities
}

// OCRReader recovers text from image-only PDFs. Optional; nil disables
// OCR escalation.
type OCRReader interface {
	ExtractFromPDF(ctx domain.Context, data []byte) (string, domain.ExtractedEntities, error)
}

// UploadFile is one incoming resume document.
type UploadFile struct {
	Filename string
	MIME     string
	Data     []byte
}

// FailedUpload describes one file a bulk upload could not ingest.
type FailedUpload struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// BulkResult summarizes a bulk upload. Failures never abort the batch;
// every readable file still becomes a candidate.
type BulkResult struct {
	Created []domain.Candidate `json:"created"`
	Failed  []FailedUpload     `json:"failed"`
}

// CandidateService ingests resumes and manages candidate records.
type CandidateService struct {
	Candidates domain.CandidateRepository
	Jobs       domain.JobRepository
	Files      domain.FileRepository
	Activity   domain.ActivityRepository
	Extractor  domain.TextExtractor
	Entities   EntityExtractor
	OCR        OCRReader
	Mailer     domain.Mailer
	BatchSize  int
}

// NewCandidateService constructs a CandidateService. ocr and mailer may
// be nil when the corresponding features are not configured.
func NewCandidateService(
	cands domain.CandidateRepository,
	jobs domain.JobRepository,
	files domain.FileRepository,
	activity domain.ActivityRepository,
	extractor domain.TextExtractor,
	entities EntityExtractor,
	ocr OCRReader,
	mailer domain.Mailer,
	batchSize int,
) CandidateService {
	if batchSize <= 0 {
		batchSize = 15
	}
	return CandidateService{
		Candidates: cands,
		Jobs:       jobs,
		Files:      files,
		Activity:   activity,
		Extractor:  extractor,
		Entities:   entities,
		OCR:        ocr,
		Mailer:     mailer,
		BatchSize:  batchSize,
	}
}

// Upload ingests a single resume: stores the blob, extracts text and
// profile fields, and creates a candidate in the pending state.
func (s CandidateService) Upload(ctx domain.Context, jobID string, f UploadFile) (domain.Candidate, error) {
	if _, err := s.Jobs.Get(ctx, jobID); err != nil {
		return domain.Candidate{}, err
	}
	cand, err := s.ingest(ctx, jobID, f)
	if err != nil {
		return domain.Candidate{}, err
	}
	id, err := s.Candidates.Create(ctx, cand)
	if err != nil {
		return domain.Candidate{}, err
	}
	cand.ID = id
	s.recordActivity(ctx, domain.ActivityEvent{
		Type:        "candidate_uploaded",
		JobID:       jobID,
		CandidateID: id,
		Detail:      fmt.Sprintf("Uploaded resume for %s", cand.Name),
	})
	return cand, nil
}

// BulkUpload ingests files in batches. Extraction within a batch runs
// concurrently; unreadable files are reported per file and never abort
// the rest.
func (s CandidateService) BulkUpload(ctx domain.Context, jobID string, files []UploadFile) (BulkResult, error) {
	if _, err := s.Jobs.Get(ctx, jobID); err != nil {
		return BulkResult{}, err
	}
	if len(files) == 0 {
		return BulkResult{}, fmt.Errorf("%w: no files supplied", domain.ErrInvalidArgument)
	}

	var result BulkResult
	for start := 0; start < len(files); start += s.BatchSize {
		end := start + s.BatchSize
		if end > len(files) {
			end = len(files)
		}
		s.ingestBatch(ctx, jobID, files[start:end], &result)
	}

	s.recordActivity(ctx, domain.ActivityEvent{
		Type:   "candidates_bulk_uploaded",
		JobID:  jobID,
		Detail: fmt.Sprintf("Bulk upload: %d created, %d failed", len(result.Created), len(result.Failed)),
	})
	return result, nil
}

func (s CandidateService) ingestBatch(ctx domain.Context, jobID string, batch []UploadFile, result *BulkResult) {
	type outcome struct {
		cand domain.Candidate
		fail *FailedUpload
	}
	outcomes := make([]outcome, len(batch))

	var wg sync.WaitGroup
	for i, f := range batch {
		wg.Add(1)
		go func(i int, f UploadFile) {
			defer wg.Done()
			cand, err := s.ingest(ctx, jobID, f)
			if err != nil {
				outcomes[i] = outcome{fail: &FailedUpload{Filename: f.Filename, Reason: failReason(err)}}
				return
			}
			outcomes[i] = outcome{cand: cand}
		}(i, f)
	}
	wg.Wait()

	pending := make([]domain.Candidate, 0, len(batch))
	for _, o := range outcomes {
		if o.fail != nil {
			result.Failed = append(result.Failed, *o.fail)
			continue
		}
		pending = append(pending, o.cand)
	}
	if len(pending) == 0 {
		return
	}

	ids, err := s.Candidates.CreateMany(ctx, pending)
	if err == nil {
		for i := range pending {
			pending[i].ID = ids[i]
		}
		result.Created = append(result.Created, pending...)
		return
	}

	// Batch insert failed as a whole; retry row by row so one bad record
	// does not sink its batch mates.
	observability.LoggerFromContext(ctx).Warn("batch insert failed, retrying per row",
		slog.String("job_id", jobID), slog.Any("error", err))
	for _, cand := range pending {
		id, rowErr := s.Candidates.Create(ctx, cand)
		if rowErr != nil {
			result.Failed = append(result.Failed, FailedUpload{
				Filename: cand.ResumeFilename,
				Reason:   failReason(rowErr),
			})
			continue
		}
		cand.ID = id
		result.Created = append(result.Created, cand)
	}
}

// ingest turns one file into an unsaved candidate record: blob storage,
// text extraction with optional OCR escalation, then entity extraction.
func (s CandidateService) ingest(ctx domain.Context, jobID string, f UploadFile) (domain.Candidate, error) {
	if len(f.Data) == 0 {
		return domain.Candidate{}, fmt.Errorf("%w: empty file", domain.ErrInvalidArgument)
	}

	text, err := s.Extractor.Extract(ctx, f.Filename, f.Data)
	if err != nil {
		return domain.Candidate{}, err
	}

	var ocrEnts domain.ExtractedEntities
	if s.OCR != nil && domain.IsPlaceholderResumeText(text) && isPDF(f.Filename) {
		ocrText, ents, ocrErr := s.OCR.ExtractFromPDF(ctx, f.Data)
		if ocrErr != nil {
			observability.LoggerFromContext(ctx).Warn("ocr escalation failed",
				slog.String("filename", f.Filename), slog.Any("error", ocrErr))
		} else if strings.TrimSpace(ocrText) != "" {
			text = ocrText
			ocrEnts = ents
		}
	}

	fileID, err := s.Files.Store(ctx, domain.StoredFile{
		Filename: f.Filename,
		MIME:     f.MIME,
		Size:     int64(len(f.Data)),
		Data:     f.Data,
	})
	if err != nil {
		return domain.Candidate{}, err
	}

	ents := s.Entities.Extract(ctx, text)
	mergeEntities(&ents, ocrEnts)

	return domain.Candidate{
		JobID:          jobID,
		Name:           ents.Name,
		Contact:        domain.ContactInfo{Email: ents.Email, Phone: ents.Phone},
		Location:       ents.Location,
		ResumeText:     text,
		ResumeFileID:   fileID,
		ResumeFilename: f.Filename,
		AnalysisState:  domain.AnalysisPending,
		ReviewState:    domain.ReviewUnseen,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// mergeEntities fills fields the primary extractor could not resolve with
// values the OCR pass read off the document.
func mergeEntities(primary *domain.ExtractedEntities, backup domain.ExtractedEntities) {
	if (primary.Name == "" || primary.Name == domain.UnknownCandidateName) &&
		backup.Name != "" && backup.Name != domain.UnknownCandidateName {
		primary.Name = backup.Name
	}
	if primary.Email == "" {
		primary.Email = backup.Email
	}
	if primary.Phone == "" {
		primary.Phone = backup.Phone
	}
	if primary.Location == "" {
		primary.Location = backup.Location
	}
}

// Get loads one candidate. The first read by a reviewer flips the review
// state from unseen to seen.
func (s CandidateService) Get(ctx domain.Context, id string) (domain.Candidate, error) {
	c, err := s.Candidates.Get(ctx, id)
	if err != nil {
		return domain.Candidate{}, err
	}
	if c.ReviewState == domain.ReviewUnseen {
		if err := s.Candidates.SetReviewState(ctx, id, domain.ReviewSeen); err != nil {
			observability.LoggerFromContext(ctx).Warn("review state flip failed",
				slog.String("candidate_id", id), slog.Any("error", err))
		} else {
			c.ReviewState = domain.ReviewSeen
		}
	}
	return c, nil
}

// Peek loads a candidate without touching review state.
func (s CandidateService) Peek(ctx domain.Context, id string) (domain.Candidate, error) {
	return s.Candidates.Get(ctx, id)
}

// List returns a job's candidates without touching review state.
func (s CandidateService) List(ctx domain.Context, jobID string, limit, offset int) ([]domain.Candidate, error) {
	return s.Candidates.ListByJob(ctx, jobID, limit, offset)
}

// ProfilePatch carries optional profile field updates. Nil means leave
// the field as is.
type ProfilePatch struct {
	Name     *string
	Email    *string
	Phone    *string
	Location *string
}

// UpdateProfile applies a partial update to the candidate's contact
// fields. Scores and states are not editable through this path.
func (s CandidateService) UpdateProfile(ctx domain.Context, id string, p ProfilePatch) (domain.Candidate, error) {
	c, err := s.Candidates.Get(ctx, id)
	if err != nil {
		return domain.Candidate{}, err
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return domain.Candidate{}, fmt.Errorf("%w: name cannot be blank", domain.ErrInvalidArgument)
		}
		c.Name = name
	}
	if p.Email != nil {
		c.Contact.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.Phone != nil {
		c.Contact.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Location != nil {
		c.Location = strings.TrimSpace(*p.Location)
	}
	if err := s.Candidates.Update(ctx, c); err != nil {
		return domain.Candidate{}, err
	}
	return c, nil
}

// Review records a shortlist or reject decision. Rejection sends a
// courtesy email when mail is configured and the candidate left an
// address; delivery failures are logged, never surfaced.
func (s CandidateService) Review(ctx domain.Context, id string, state domain.ReviewState) (domain.Candidate, error) {
	switch state {
	case domain.ReviewShortlisted, domain.ReviewRejected, domain.ReviewSeen:
	default:
		return domain.Candidate{}, fmt.Errorf("%w: review state %q", domain.ErrInvalidArgument, state)
	}
	c, err := s.Candidates.Get(ctx, id)
	if err != nil {
		return domain.Candidate{}, err
	}
	if err := s.Candidates.SetReviewState(ctx, id, state); err != nil {
		return domain.Candidate{}, err
	}
	c.ReviewState = state

	s.recordActivity(ctx, domain.ActivityEvent{
		Type:        "candidate_" + string(state),
		JobID:       c.JobID,
		CandidateID: id,
		Detail:      fmt.Sprintf("Candidate %s marked %s", c.Name, state),
	})

	if state == domain.ReviewRejected && s.Mailer != nil && c.Contact.Email != "" {
		s.sendRejection(ctx, c)
	}
	return c, nil
}

func (s CandidateService) sendRejection(ctx domain.Context, c domain.Candidate) {
	job, err := s.Jobs.Get(ctx, c.JobID)
	title := "the position"
	if err == nil {
		title = job.Title
	}
	body := fmt.Sprintf(
		"Dear %s,\n\nThank you for your interest in %s. After careful review we have decided not to move forward with your application at this time.\n\nWe wish you the best in your search.\n",
		c.Name, title)
	if err := s.Mailer.Send(ctx, c.Contact.Email, fmt.Sprintf("Update on your application for %s", title), body, false); err != nil {
		observability.LoggerFromContext(ctx).Warn("rejection mail failed",
			slog.String("candidate_id", c.ID), slog.Any("error", err))
	}
}

// Delete removes a candidate and its stored resume blob.
func (s CandidateService) Delete(ctx domain.Context, id string) error {
	c, err := s.Candidates.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.ResumeFileID != "" {
		if err := s.Files.Delete(ctx, c.ResumeFileID); err != nil {
			observability.LoggerFromContext(ctx).Warn("resume blob delete failed",
				slog.String("candidate_id", id), slog.Any("error", err))
		}
	}
	if err := s.Candidates.Delete(ctx, id); err != nil {
		return err
	}
	s.recordActivity(ctx, domain.ActivityEvent{
		Type:        "candidate_deleted",
		JobID:       c.JobID,
		CandidateID: id,
		Detail:      fmt.Sprintf("Deleted candidate %s", c.Name),
	})
	return nil
}

// DownloadResume returns the original uploaded document.
func (s CandidateService) DownloadResume(ctx domain.Context, candidateID string) (domain.StoredFile, error) {
	c, err := s.Candidates.Get(ctx, candidateID)
	if err != nil {
		return domain.StoredFile{}, err
	}
	if c.ResumeFileID == "" {
		return domain.StoredFile{}, fmt.Errorf("%w: no stored resume", domain.ErrNotFound)
	}
	return s.Files.Load(ctx, c.ResumeFileID)
}

func (s CandidateService) recordActivity(ctx domain.Context, e domain.ActivityEvent) {
	if s.Activity == nil {
		return
	}
	if err := s.Activity.Record(ctx, e); err != nil {
		observability.LoggerFromContext(ctx).Warn("activity record failed",
			slog.String("type", e.Type), slog.Any("error", err))
	}
}

func isPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// failReason maps an ingest error to a short human-readable reason for
// the bulk upload report.
func failReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidArgument):
		return "empty file"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return "unsupported file format"
	case errors.Is(err, domain.ErrProtectedDocument):
		return "password-protected document"
	default:
		return err.Error()
	}
}
