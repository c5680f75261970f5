package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"qms-exporter/internal/composer"
	"qms-exporter/internal/driver"
	"qms-exporter/internal/email"
	"qms-exporter/internal/exporter"
	"qms-exporter/internal/report"
	"qms-exporter/internal/security"
	"qms-exporter/internal/storage"
)

const (
	// MaxAttachmentSize is the largest document sent as an attachment.
	// Larger ones go out as a download link.
	MaxAttachmentSize = 25 * 1024 * 1024
	defaultQueueSize  = 100
	// jobRetention is how long finished jobs stay queryable.
	jobRetention = 24 * time.Hour
)

var (
	ErrQueueFull = errors.New("export queue is full")
	ErrNoSource  = errors.New("no report source configured")
)

// Notifier is told about every job state change.
type Notifier interface {
	JobChanged(v JobView)
}

// Recorder keeps the history of finished jobs.
type Recorder interface {
	RecordExport(ctx context.Context, v JobView) error
}

type Options struct {
	Workers int
	// MaxRenderConcurrency caps the documents laid out at once.
	MaxRenderConcurrency int64
	QueueSize            int
	AttachDocuments      bool
	// TokenSecret enables signed download links to PublicURL. Without it
	// links point straight at the storage provider.
	TokenSecret string
	TokenTTL    time.Duration
	PublicURL   string
	Caption     string
}

// Pool manages concurrent export jobs and limits render load.
// Workers pick jobs from a bounded queue; a separate semaphore caps how many
// of them lay out documents at the same time.
type Pool struct {
	opts     Options
	jobQueue chan *ExportJob
	// renderSem restricts the number of concurrent layouts.
	renderSem *semaphore.Weighted
	wg        sync.WaitGroup
	quit      chan struct{}

	renderer *exporter.Renderer
	storage  storage.Provider
	emailer  email.Sender
	source   driver.Driver
	notifier Notifier
	recorder Recorder

	mu   sync.RWMutex
	jobs map[string]*ExportJob
	now  func() time.Time
}

// NewPool initializes a worker pool with the specified configuration.
// It does not start the workers; call Start() to begin processing.
func NewPool(opts Options, renderer *exporter.Renderer, store storage.Provider, emailer email.Sender) *Pool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxRenderConcurrency < 1 {
		opts.MaxRenderConcurrency = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = defaultQueueSize
	}
	return &Pool{
		opts:      opts,
		jobQueue:  make(chan *ExportJob, opts.QueueSize),
		renderSem: semaphore.NewWeighted(opts.MaxRenderConcurrency),
		quit:      make(chan struct{}),
		renderer:  renderer,
		storage:   store,
		emailer:   emailer,
		jobs:      make(map[string]*ExportJob),
		now:       time.Now,
	}
}

// SetSource lets jobs reference stored payloads by id.
func (p *Pool) SetSource(d driver.Driver) { p.source = d }

func (p *Pool) SetNotifier(n Notifier) { p.notifier = n }

func (p *Pool) SetRecorder(r Recorder) { p.recorder = r }

func (p *Pool) Start() {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	slog.Info("Worker pool started", "workers", p.opts.Workers, "render_concurrency", p.opts.MaxRenderConcurrency)
}

// Submit queues job without blocking.
func (p *Pool) Submit(job *ExportJob) error {
	if job.SourceID != "" && p.source == nil {
		return ErrNoSource
	}

	p.mu.Lock()
	p.pruneLocked()
	p.jobs[job.ID] = job
	p.mu.Unlock()

	select {
	case <-p.quit:
		p.forget(job)
		return errors.New("worker pool is stopped")
	default:
	}

	// PENDING goes out before a worker can report PROCESSING.
	p.notify(job)
	select {
	case p.jobQueue <- job:
		return nil
	default:
		p.update(job, func(j *ExportJob) {
			j.Status = StatusFailed
			j.Error = ErrQueueFull
			j.Finished = p.now()
		})
		p.forget(job)
		return ErrQueueFull
	}
}

// Get returns a snapshot of the job with the given id.
func (p *Pool) Get(id string) (JobView, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	job, ok := p.jobs[id]
	if !ok {
		return JobView{}, false
	}
	return job.view(), true
}

// Stop initiates graceful shutdown
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
	slog.Info("Worker pool stopped")
}

// Render lays out a document synchronously, sharing the render semaphore
// with the workers.
func (p *Pool) Render(ctx context.Context, r report.Report, format string) (*exporter.Artifact, error) {
	if err := p.renderSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire render slot: %w", err)
	}
	defer p.renderSem.Release(1)
	return p.renderer.Render(r, format, p.meta())
}

func (p *Pool) meta() composer.Meta {
	return composer.Meta{GeneratedAt: p.now(), Caption: p.opts.Caption}
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	slog.Debug("Worker started", "worker_id", id)

	for {
		select {
		case job := <-p.jobQueue:
			p.processJob(id, job)
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) processJob(workerID int, job *ExportJob) {
	defer job.Cancel()
	slog.Info("Processing job", "worker_id", workerID, "job_id", job.ID, "kind", job.Kind)

	p.update(job, func(j *ExportJob) {
		j.Started = p.now()
		j.Status = StatusProcessing
	})

	artifact, err := p.execute(job)
	if err != nil {
		p.failJob(job, err)
		return
	}

	// A delivery failure does not fail the job: the document is stored and
	// can still be downloaded.
	var emailErr error
	if len(job.Recipients) > 0 {
		if emailErr = p.deliver(job, artifact); emailErr != nil {
			slog.Error("Failed to deliver document", "job_id", job.ID, "error", emailErr)
		}
	}

	p.update(job, func(j *ExportJob) {
		j.Status = StatusCompleted
		j.EmailError = emailErr
		j.Finished = p.now()
	})
	slog.Info("Job completed",
		"job_id", job.ID,
		"pages", artifact.Pages,
		"bytes", artifact.Size(),
		"wait", job.Started.Sub(job.Submitted),
		"duration", job.Finished.Sub(job.Started),
	)
	p.record(job)
}

// execute resolves the report, renders it and stores the result.
func (p *Pool) execute(job *ExportJob) (*exporter.Artifact, error) {
	r := job.Report
	if r == nil {
		if p.source == nil {
			return nil, ErrNoSource
		}
		payload, err := p.source.FetchReport(job.Ctx, job.Kind, job.SourceID)
		if err != nil {
			return nil, err
		}
		if r, err = report.Decode(job.Kind, payload); err != nil {
			return nil, err
		}
	}

	artifact, err := p.Render(job.Ctx, r, job.Format)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/%s/%s", job.ID, artifact.Filename)
	if err := storage.Save(job.Ctx, p.storage, key, artifact.Data); err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	p.update(job, func(j *ExportJob) {
		j.Filename = artifact.Filename
		j.StorageKey = key
		j.Pages = artifact.Pages
		j.Size = artifact.Size()
	})
	return artifact, nil
}

// deliver emails the document, attached when small enough, linked otherwise.
func (p *Pool) deliver(job *ExportJob, a *exporter.Artifact) error {
	notice := email.ReadyNotice{Title: job.Subject, Reference: a.Filename, Pages: a.Pages}
	if notice.Title == "" {
		notice.Title = a.Filename
	}

	msg := email.Message{To: job.Recipients, Subject: notice.Title}
	if p.opts.AttachDocuments && a.Size() <= MaxAttachmentSize {
		msg.Attachments = []email.Attachment{{Filename: a.Filename, ContentType: a.ContentType, Base64: a.Base64()}}
	} else {
		link, err := p.downloadLink(job)
		if err != nil {
			return err
		}
		notice.Link = link
	}

	html, err := notice.HTML()
	if err != nil {
		return err
	}
	msg.HTML = html
	// The job context may be spent by a slow render; delivery gets its own.
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return p.emailer.Send(ctx, msg)
}

func (p *Pool) downloadLink(job *ExportJob) (string, error) {
	if p.opts.TokenSecret == "" {
		return p.storage.GetDownloadURL(job.StorageKey), nil
	}
	token, err := security.IssueDownloadToken(p.opts.TokenSecret, job.StorageKey, job.ID, p.now(), p.opts.TokenTTL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/exports/%s/download?token=%s", p.opts.PublicURL, job.ID, url.QueryEscape(token)), nil
}

func (p *Pool) failJob(job *ExportJob, err error) {
	p.update(job, func(j *ExportJob) {
		j.Status = StatusFailed
		j.Error = err
		j.Finished = p.now()
	})
	slog.Error("Job failed", "job_id", job.ID, "error", err)
	p.record(job)
}

func (p *Pool) record(job *ExportJob) {
	if p.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.recorder.RecordExport(ctx, p.snapshot(job)); err != nil {
		slog.Warn("Failed to record export", "job_id", job.ID, "error", err)
	}
}

// update mutates job under the pool lock and notifies listeners.
func (p *Pool) update(job *ExportJob, fn func(*ExportJob)) {
	p.mu.Lock()
	fn(job)
	p.mu.Unlock()
	p.notify(job)
}

func (p *Pool) notify(job *ExportJob) {
	if p.notifier != nil {
		p.notifier.JobChanged(p.snapshot(job))
	}
}

func (p *Pool) snapshot(job *ExportJob) JobView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return job.view()
}

func (p *Pool) forget(job *ExportJob) {
	job.Cancel()
	p.mu.Lock()
	delete(p.jobs, job.ID)
	p.mu.Unlock()
}

// pruneLocked drops jobs finished more than jobRetention ago.
func (p *Pool) pruneLocked() {
	cutoff := p.now().Add(-jobRetention)
	for id, job := range p.jobs {
		if !job.Finished.IsZero() && job.Finished.Before(cutoff) {
			delete(p.jobs, id)
		}
	}
}
