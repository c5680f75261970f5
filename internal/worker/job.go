package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"qms-exporter/internal/exporter"
	"qms-exporter/internal/report"
)

type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// ExportJob represents a single document to render, store and deliver.
type ExportJob struct {
	// ID is the unique UUID v4 for the job.
	ID   string
	Kind report.Kind
	// Report is the decoded input. It is nil when the payload is read from
	// the report source by SourceID.
	Report   report.Report
	SourceID string
	// Format is pdf unless a tabular export was requested.
	Format     string
	Recipients []string
	Subject    string

	// Timestamps for job lifecycle tracking.
	Submitted time.Time
	Started   time.Time
	Finished  time.Time
	Status    JobStatus
	// Error holds any error encountered during processing.
	Error error
	// EmailError is set when the document was stored but could not be sent.
	EmailError error

	// Filled once the document is stored.
	Filename   string
	StorageKey string
	Pages      int
	Size       int

	// Context manages the lifecycle/cancellation of the job.
	Ctx    context.Context
	Cancel context.CancelFunc
}

// NewExportJob prepares a job for an already decoded report.
func NewExportJob(r report.Report, recipients []string, subject, format string, timeout time.Duration) *ExportJob {
	job := newJob(r.Kind(), recipients, subject, format, timeout)
	job.Report = r
	return job
}

// NewSourceJob prepares a job whose payload is fetched from the report source.
func NewSourceJob(kind report.Kind, sourceID string, recipients []string, subject, format string, timeout time.Duration) *ExportJob {
	job := newJob(kind, recipients, subject, format, timeout)
	job.SourceID = sourceID
	return job
}

func newJob(kind report.Kind, recipients []string, subject, format string, timeout time.Duration) *ExportJob {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	if format == "" {
		format = exporter.FormatPDF
	}
	return &ExportJob{
		ID:         uuid.New().String(),
		Kind:       kind,
		Format:     format,
		Recipients: recipients,
		Subject:    subject,
		Submitted:  time.Now(),
		Status:     StatusPending,
		Ctx:        ctx,
		Cancel:     cancel,
	}
}

// JobView is a read-only snapshot of a job, safe to hand to other goroutines.
type JobView struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	SourceID   string     `json:"source_id,omitempty"`
	Format     string     `json:"format"`
	Status     JobStatus  `json:"status"`
	Filename   string     `json:"filename,omitempty"`
	StorageKey string     `json:"storage_key,omitempty"`
	Pages      int        `json:"pages,omitempty"`
	Size       int        `json:"size,omitempty"`
	Error      string     `json:"error,omitempty"`
	EmailError string     `json:"email_error,omitempty"`
	Submitted  time.Time  `json:"submitted"`
	Started    *time.Time `json:"started,omitempty"`
	Finished   *time.Time `json:"finished,omitempty"`
}

func (j *ExportJob) view() JobView {
	v := JobView{
		ID:         j.ID,
		Kind:       string(j.Kind),
		SourceID:   j.SourceID,
		Format:     j.Format,
		Status:     j.Status,
		Filename:   j.Filename,
		StorageKey: j.StorageKey,
		Pages:      j.Pages,
		Size:       j.Size,
		Submitted:  j.Submitted,
	}
	if j.Error != nil {
		v.Error = j.Error.Error()
	}
	if j.EmailError != nil {
		v.EmailError = j.EmailError.Error()
	}
	if !j.Started.IsZero() {
		started := j.Started
		v.Started = &started
	}
	if !j.Finished.IsZero() {
		finished := j.Finished
		v.Finished = &finished
	}
	return v
}
