package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"qms-exporter/internal/composer"
	"qms-exporter/internal/driver"
	"qms-exporter/internal/email"
	"qms-exporter/internal/exporter"
	"qms-exporter/internal/layout"
	"qms-exporter/internal/reference"
	"qms-exporter/internal/report"
	"qms-exporter/internal/security"
	"qms-exporter/internal/storage"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []email.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func (s *recordingSender) sent() []email.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]email.Message(nil), s.msgs...)
}

type statusLog struct {
	mu       sync.Mutex
	statuses []JobStatus
	recorded []JobView
}

func (l *statusLog) JobChanged(v JobView) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.statuses); n == 0 || l.statuses[n-1] != v.Status {
		l.statuses = append(l.statuses, v.Status)
	}
}

func (l *statusLog) RecordExport(_ context.Context, v JobView) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recorded = append(l.recorded, v)
	return nil
}

// memorySource serves payloads keyed by id.
type memorySource struct {
	driver.Driver
	payloads map[string][]byte
}

func (m *memorySource) FetchReport(_ context.Context, kind report.Kind, id string) ([]byte, error) {
	data, ok := m.payloads[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", driver.ErrReportNotFound, kind, id)
	}
	return data, nil
}

func newTestPool(t *testing.T, opts Options, sender email.Sender) (*Pool, string) {
	t.Helper()
	dir := t.TempDir()
	renderer := exporter.NewRenderer(composer.New(reference.Default(), layout.A4()), layout.New())
	if opts.Workers == 0 {
		opts.Workers = 2
	}
	p := NewPool(opts, renderer, storage.NewLocalProvider(dir), sender)
	return p, dir
}

func waitDone(t *testing.T, p *Pool, id string) JobView {
	t.Helper()
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		v, ok := p.Get(id)
		if !ok {
			t.Fatalf("job %s not found", id)
		}
		if v.Status == StatusCompleted || v.Status == StatusFailed {
			return v
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return JobView{}
}

func sampleRegister() *report.PrescriptionRegister {
	return &report.PrescriptionRegister{
		Pharmacy:  "Pharmacie du Centre",
		Trimester: report.Trimester{Year: 2026, Quarter: 1},
		Entries: []report.PrescriptionEntry{
			{Number: "0001", Date: report.NewDate(2026, 1, 15), Patient: "M. Durand", Medication: "Méthadone 40 mg", Quantity: "14", Controlled: true},
		},
	}
}

func TestPoolStoresAndAttaches(t *testing.T) {
	sender := &recordingSender{}
	log := &statusLog{}
	p, dir := newTestPool(t, Options{AttachDocuments: true}, sender)
	p.SetNotifier(log)
	p.SetRecorder(log)
	p.Start()

	job := NewExportJob(sampleRegister(), []string{"titulaire@pharmacie.fr"}, "Registre T1 2026", "", time.Minute)
	if err := p.Submit(job); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	v := waitDone(t, p, job.ID)
	if v.Status != StatusCompleted {
		t.Fatalf("status = %s, error = %s", v.Status, v.Error)
	}
	if v.Pages < 1 || v.Filename != "registre-T1-2026.pdf" {
		t.Errorf("view = %+v", v)
	}
	// Stop waits for the worker to finish recording.
	p.Stop()
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(v.StorageKey))); err != nil {
		t.Errorf("document not stored: %v", err)
	}

	msgs := sender.sent()
	if len(msgs) != 1 || len(msgs[0].Attachments) != 1 {
		t.Fatalf("messages = %+v", msgs)
	}
	if a := msgs[0].Attachments[0]; a.Filename != "registre-T1-2026.pdf" || a.ContentType != "application/pdf" {
		t.Errorf("attachment = %s (%s)", a.Filename, a.ContentType)
	}
	data, err := msgs[0].Attachments[0].Decode()
	if err != nil || !strings.HasPrefix(string(data), "%PDF") {
		t.Errorf("attachment is not a PDF: %v", err)
	}

	log.mu.Lock()
	defer log.mu.Unlock()
	want := []JobStatus{StatusPending, StatusProcessing, StatusCompleted}
	if fmt.Sprint(log.statuses) != fmt.Sprint(want) {
		t.Errorf("statuses = %v, want %v", log.statuses, want)
	}
	if len(log.recorded) != 1 || log.recorded[0].ID != job.ID {
		t.Errorf("recorded = %+v", log.recorded)
	}
}

var tokenParam = regexp.MustCompile(`download\?token=([A-Za-z0-9._-]+)`)

func TestPoolSendsSignedLink(t *testing.T) {
	sender := &recordingSender{}
	p, _ := newTestPool(t, Options{TokenSecret: "s3cret", TokenTTL: time.Hour, PublicURL: "https://qualite.example"}, sender)
	p.Start()
	defer p.Stop()

	job := NewExportJob(sampleRegister(), []string{"titulaire@pharmacie.fr"}, "", exporter.FormatXLSX, time.Minute)
	if err := p.Submit(job); err != nil {
		t.Fatal(err)
	}
	v := waitDone(t, p, job.ID)

	msgs := sender.sent()
	if len(msgs) != 1 || len(msgs[0].Attachments) != 0 {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Subject != "registre-T1-2026.xlsx" {
		t.Errorf("subject = %q", msgs[0].Subject)
	}
	if !strings.Contains(msgs[0].HTML, "https://qualite.example/exports/"+job.ID+"/download?token=") {
		t.Fatalf("link missing from %s", msgs[0].HTML)
	}
	m := tokenParam.FindStringSubmatch(msgs[0].HTML)
	if m == nil {
		t.Fatalf("no token in %s", msgs[0].HTML)
	}
	claims, err := security.ParseDownloadToken("s3cret", m[1])
	if err != nil {
		t.Fatalf("ParseDownloadToken() error = %v", err)
	}
	if claims.Subject != v.StorageKey || claims.JobID != job.ID {
		t.Errorf("claims = %+v, want key %s", claims, v.StorageKey)
	}
}

func TestPoolSourceJobs(t *testing.T) {
	payload, err := json.Marshal(&report.Procedure{Code: "PR-DISP-01", Title: "Dispensation", Version: "3"})
	if err != nil {
		t.Fatal(err)
	}
	p, _ := newTestPool(t, Options{}, &recordingSender{})
	p.SetSource(&memorySource{payloads: map[string][]byte{"42": payload}})
	p.Start()
	defer p.Stop()

	ok := NewSourceJob(report.KindProcedure, "42", nil, "", "", time.Minute)
	missing := NewSourceJob(report.KindProcedure, "43", nil, "", "", time.Minute)
	for _, job := range []*ExportJob{ok, missing} {
		if err := p.Submit(job); err != nil {
			t.Fatal(err)
		}
	}

	if v := waitDone(t, p, ok.ID); v.Status != StatusCompleted || v.Filename != "procedure-PR-DISP-01-v3.pdf" {
		t.Errorf("source job = %+v", v)
	}
	if v := waitDone(t, p, missing.ID); v.Status != StatusFailed || !strings.Contains(v.Error, "report not found") {
		t.Errorf("missing source job = %+v", v)
	}
}

func TestPoolEmailFailureKeepsDocument(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	p, _ := newTestPool(t, Options{AttachDocuments: true}, sender)
	p.Start()
	defer p.Stop()

	job := NewExportJob(sampleRegister(), []string{"titulaire@pharmacie.fr"}, "", "", time.Minute)
	if err := p.Submit(job); err != nil {
		t.Fatal(err)
	}
	v := waitDone(t, p, job.ID)
	if v.Status != StatusCompleted || v.StorageKey == "" || v.EmailError != "smtp down" {
		t.Errorf("view = %+v", v)
	}
}

func TestSubmitRejections(t *testing.T) {
	p, _ := newTestPool(t, Options{QueueSize: 1}, &recordingSender{})

	if err := p.Submit(NewSourceJob(report.KindProcedure, "1", nil, "", "", time.Minute)); !errors.Is(err, ErrNoSource) {
		t.Errorf("Submit(source job) error = %v, want ErrNoSource", err)
	}

	// Workers are not started, so the second job finds the queue full.
	first := NewExportJob(sampleRegister(), nil, "", "", time.Minute)
	second := NewExportJob(sampleRegister(), nil, "", "", time.Minute)
	if err := p.Submit(first); err != nil {
		t.Fatalf("Submit(first) error = %v", err)
	}
	if err := p.Submit(second); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Submit(second) error = %v, want ErrQueueFull", err)
	}
	if _, ok := p.Get(second.ID); ok {
		t.Errorf("rejected job is still tracked")
	}
	if v, ok := p.Get(first.ID); !ok || v.Status != StatusPending {
		t.Errorf("Get(first) = %+v, %v", v, ok)
	}
}

func TestPruneFinishedJobs(t *testing.T) {
	p, _ := newTestPool(t, Options{}, &recordingSender{})
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	old := NewExportJob(sampleRegister(), nil, "", "", time.Minute)
	old.Finished = now.Add(-25 * time.Hour)
	p.jobs[old.ID] = old

	if err := p.Submit(NewExportJob(sampleRegister(), nil, "", "", time.Minute)); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Get(old.ID); ok {
		t.Errorf("job finished 25h ago was not pruned")
	}
}
