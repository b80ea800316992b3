package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrUpstreamAuth      = errors.New("upstream auth")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrProtectedDocument = errors.New("protected document")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyResumeText   = errors.New("empty resume text")
	ErrInternal          = errors.New("internal error")
)

// JobStatus enumerates job posting lifecycle states.
type JobStatus string

const (
	JobActive JobStatus = "active"
	JobPaused JobStatus = "paused"
	JobClosed JobStatus = "closed"
)

// Criterion is a named, weighted evaluation dimension declared per job.
// Weight is a percentage in [0,100]; a job's weights sum to roughly 100
// (validated with a small tolerance at creation time, not re-validated later).
type Criterion struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type Job struct {
	ID             string
	Title          string
	Department     string
	Description    string
	Criteria       []Criterion
	Status         JobStatus
	CreatedAt      time.Time
	LastRun        *time.Time
	CandidateCount int
}

// AnalysisState tracks whether the scoring pipeline is idle, in flight,
// or finished for a candidate. Orthogonal to ReviewState.
type AnalysisState string

const (
	AnalysisPending AnalysisState = "pending"
	AnalysisRunning AnalysisState = "running"
	AnalysisDone    AnalysisState = "done"
	AnalysisFailed  AnalysisState = "failed"
)

// ReviewState tracks the human-review axis: whether a recruiter has
// opened the candidate and what decision they made.
type ReviewState string

const (
	ReviewUnseen      ReviewState = "unseen"
	ReviewSeen        ReviewState = "seen"
	ReviewShortlisted ReviewState = "shortlisted"
	ReviewRejected    ReviewState = "rejected"
)

type ContactInfo struct {
	Email string
	Phone string
}

// ScoreBreakdown holds the per-source scores for a candidate.
// OverallScore always equals ResumeScore; CCAT and personality scores
// are informational and never fold into the ranking figure.
type ScoreBreakdown struct {
	ResumeScore      float64
	CCATScore        *float64
	PersonalityScore *float64
	OverallScore     float64
}

// CriterionScore pairs one job criterion with the score the pipeline
// settled on for it. Weight is copied from the job at scoring time.
type CriterionScore struct {
	CriterionName string
	Score         float64
	Weight        float64
}

type Candidate struct {
	ID              string
	JobID           string
	Name            string
	Contact         ContactInfo
	Location        string
	ResumeText      string
	ResumeFileID    string
	ResumeFilename  string
	AnalysisState   AnalysisState
	ReviewState     ReviewState
	ScoreBreakdown  *ScoreBreakdown
	CriterionScores []CriterionScore
	AIJustification string
	CreatedAt       time.Time
	AnalyzedAt      *time.Time
	AnalysisError   string
	AnalysisFailed  bool
}

// PersonalityTraits are Big Five trait scores on a 0-10 scale.
type PersonalityTraits struct {
	Openness          float64 `json:"openness"`
	Conscientiousness float64 `json:"conscientiousness"`
	Extraversion      float64 `json:"extraversion"`
	Agreeableness     float64 `json:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism"`
}

// CCATResult is a cognitive-aptitude test result reported as a percentile.
// At most one current result exists per candidate; uploads replace.
type CCATResult struct {
	CandidateID string
	Percentile  float64
	CreatedAt   time.Time
}

type PersonalityResult struct {
	CandidateID string
	Traits      PersonalityTraits
	CreatedAt   time.Time
}

// ActivityEvent is an audit-log entry recorded after pipeline completions
// and other notable mutations. Recording is fire-and-forget.
type ActivityEvent struct {
	ID          string
	Type        string
	JobID       string
	CandidateID string
	Detail      string
	CreatedAt   time.Time
}

// StoredFile is an uploaded blob plus the metadata needed to serve it back.
type StoredFile struct {
	ID        string
	Filename  string
	MIME      string
	Size      int64
	Data      []byte
	CreatedAt time.Time
}

// ExtractedEntities is the structured output of the entity extractor.
// Name is never empty; unresolved optional fields stay "".
type ExtractedEntities struct {
	Name     string
	Email    string
	Phone    string
	Location string
}

// UnknownCandidateName is the sentinel used when no plausible name can be
// recovered from a resume.
const UnknownCandidateName = "Unknown Candidate"

// ResumeScore is the scorer's raw output before reconciliation.
type ResumeScore struct {
	OverallScore    float64
	CriterionScores []RawCriterionScore
	Justification   string
}

// RawCriterionScore is a criterion label as the model returned it, prior
// to matching against the job's declared criteria. Slice order is
// preserved because partial matching is first-hit-wins.
type RawCriterionScore struct {
	CriterionName string
	Score         float64
}

// Repositories (ports)

type JobRepository interface {
	Create(ctx Context, j Job) (string, error)
	Get(ctx Context, id string) (Job, error)
	List(ctx Context, status JobStatus, limit, offset int) ([]Job, error)
	Update(ctx Context, j Job) error
	TouchLastRun(ctx Context, id string, at time.Time) error
	Delete(ctx Context, id string) error
}

type CandidateRepository interface {
	Create(ctx Context, c Candidate) (string, error)
	CreateMany(ctx Context, cs []Candidate) ([]string, error)
	Get(ctx Context, id string) (Candidate, error)
	ListByJob(ctx Context, jobID string, limit, offset int) ([]Candidate, error)
	Update(ctx Context, c Candidate) error
	SetAnalysisState(ctx Context, id string, state AnalysisState) error
	SaveAnalysis(ctx Context, c Candidate) error
	SetReviewState(ctx Context, id string, state ReviewState) error
	Delete(ctx Context, id string) error
	DeleteByJob(ctx Context, jobID string) (int64, error)
	CountByJob(ctx Context, jobID string) (int, error)
}

type AssessmentRepository interface {
	ReplaceCCAT(ctx Context, r CCATResult) error
	GetCCAT(ctx Context, candidateID string) (CCATResult, error)
	ReplacePersonality(ctx Context, r PersonalityResult) error
	GetPersonality(ctx Context, candidateID string) (PersonalityResult, error)
}

type FileRepository interface {
	Store(ctx Context, f StoredFile) (string, error)
	Load(ctx Context, id string) (StoredFile, error)
	Delete(ctx Context, id string) error
}

type ActivityRepository interface {
	Record(ctx Context, e ActivityEvent) error
	List(ctx Context, limit, offset int) ([]ActivityEvent, error)
}

// AIClient (port)
// Generate performs a single-shot completion: one prompt in, raw model
// text out. No streaming, no multi-turn state, no tool calls.
type AIClient interface {
	Generate(ctx Context, prompt string) (string, error)
}

// TextExtractor (port)
// Extract returns best-effort plain text for a document. It fails only
// for password-protected documents or unsupported extensions; unreadable
// content yields a descriptive placeholder string instead of an error.
type TextExtractor interface {
	Extract(ctx Context, filename string, data []byte) (string, error)
}

// Mailer (port)
type Mailer interface {
	Send(ctx Context, to, subject, body string, isHTML bool) error
}

// AnalysisLocker serializes analysis runs per candidate. TryLock returns
// false without blocking when another run holds the lock; the returned
// func releases it.
type AnalysisLocker interface {
	TryLock(ctx Context, candidateID string, ttl time.Duration) (release func(), ok bool, err error)
}

// Context is an alias to allow decoupling from std context in domain.
// Adapters and usecases pass context.Context through.
type Context = context.Context
