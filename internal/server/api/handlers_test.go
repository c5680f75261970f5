package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"qms-exporter/internal/composer"
	"qms-exporter/internal/email"
	"qms-exporter/internal/exporter"
	"qms-exporter/internal/layout"
	"qms-exporter/internal/reference"
	"qms-exporter/internal/security"
	"qms-exporter/internal/server/hub"
	"qms-exporter/internal/server/middleware"
	"qms-exporter/internal/storage"
	"qms-exporter/internal/worker"
)

const (
	apiSecret   = "api-secret"
	tokenSecret = "token-secret"
)

const registerJSON = `{"pharmacy":"Pharmacie du Centre","trimester":{"year":2026,"quarter":1},
"entries":[{"number":"0001","date":"2026-01-15","patient":"M. Durand","medication":"Méthadone 40 mg","quantity":"14","controlled":true}]}`

type testServer struct {
	mux     *http.ServeMux
	pool    *worker.Pool
	storage storage.Provider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	renderer := exporter.NewRenderer(composer.New(reference.Default(), layout.A4()), layout.New())
	store := storage.NewLocalProvider(t.TempDir())
	h := hub.NewHub()
	pool := worker.NewPool(worker.Options{Workers: 2, MaxRenderConcurrency: 1, TokenSecret: tokenSecret, TokenTTL: time.Hour}, renderer, store, email.NewLogSender())
	pool.SetNotifier(h)
	pool.Start()
	t.Cleanup(pool.Stop)

	handler := NewHandler(pool, store, h, time.Minute, tokenSecret, []string{"*"})
	mux := http.NewServeMux()
	handler.Register(mux, middleware.Signature(apiSecret, nil))
	return &testServer{mux: mux, pool: pool, storage: store}
}

func sign(req *http.Request, body string) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", security.Sign(apiSecret, req.Method, req.URL.Path, body, ts))
}

func (s *testServer) do(method, target, body string, signed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if signed {
		sign(req, body)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) waitDone(t *testing.T, id string) worker.JobView {
	t.Helper()
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		rec := s.do(http.MethodGet, "/exports/"+id, "", true)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET /exports/%s = %d", id, rec.Code)
		}
		var v worker.JobView
		if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
			t.Fatal(err)
		}
		if v.Status == worker.StatusCompleted || v.Status == worker.StatusFailed {
			return v
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("export %s did not finish", id)
	return worker.JobView{}
}

func TestExportLifecycle(t *testing.T) {
	s := newTestServer(t)
	body := `{"kind":"prescription-register","report":` + registerJSON + `,"email":["titulaire@pharmacie.fr"]}`

	if rec := s.do(http.MethodPost, "/exports", body, false); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned POST /exports = %d, want 401", rec.Code)
	}

	rec := s.do(http.MethodPost, "/exports", body, true)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /exports = %d: %s", rec.Code, rec.Body)
	}
	var accepted ExportAccepted
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatal(err)
	}

	v := s.waitDone(t, accepted.JobID)
	if v.Status != worker.StatusCompleted || v.Filename != "registre-T1-2026.pdf" {
		t.Fatalf("job = %+v", v)
	}

	token, err := security.IssueDownloadToken(tokenSecret, v.StorageKey, v.ID, time.Now(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	dl := s.do(http.MethodGet, "/exports/"+v.ID+"/download?token="+token, "", false)
	if dl.Code != http.StatusOK {
		t.Fatalf("download = %d: %s", dl.Code, dl.Body)
	}
	if !bytes.HasPrefix(dl.Body.Bytes(), []byte("%PDF")) || dl.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("download content type %q", dl.Header().Get("Content-Type"))
	}

	tests := []struct {
		name, target string
	}{
		{"other job", "/exports/00000000-0000-0000-0000-000000000000/download?token=" + token},
		{"tampered", "/exports/" + v.ID + "/download?token=" + token + "x"},
		{"missing", "/exports/" + v.ID + "/download"},
	}
	for _, tt := range tests {
		if rec := s.do(http.MethodGet, tt.target, "", false); rec.Code != http.StatusForbidden {
			t.Errorf("%s: download = %d, want 403", tt.name, rec.Code)
		}
	}

	if rec := s.do(http.MethodGet, "/exports/unknown", "", true); rec.Code != http.StatusNotFound {
		t.Errorf("GET /exports/unknown = %d, want 404", rec.Code)
	}
}

func TestCreateExportValidation(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", `{`, http.StatusBadRequest},
		{"unknown kind", `{"kind":"invoice","report":{}}`, http.StatusBadRequest},
		{"neither", `{"kind":"procedure"}`, http.StatusBadRequest},
		{"both", `{"kind":"procedure","report":{"code":"PR-1"},"source_id":"1"}`, http.StatusBadRequest},
		{"bad email", `{"kind":"procedure","report":{"code":"PR-1"},"email":["nobody"]}`, http.StatusBadRequest},
		{"bad format", `{"kind":"procedure","report":{"code":"PR-1"},"format":"docx"}`, http.StatusBadRequest},
		{"no source", `{"kind":"procedure","source_id":"1"}`, http.StatusBadRequest},
		{"ok", `{"kind":"procedure","report":{"code":"PR-1","title":"Dispensation"}}`, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := s.do(http.MethodPost, "/exports", tt.body, true); rec.Code != tt.want {
				t.Errorf("POST /exports = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestRender(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/render/procedure?format=base64", `{"code":"PR-DISP-01","title":"Dispensation","version":"3"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /render = %d: %s", rec.Code, rec.Body)
	}
	var resp RenderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Content)
	if err != nil || !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("content is not a base64 PDF: %v", err)
	}
	if resp.Filename != "procedure-PR-DISP-01-v3.pdf" || resp.Pages < 1 || resp.Size != len(data) {
		t.Errorf("response = %+v", resp)
	}

	raw := s.do(http.MethodPost, "/render/prescription-register?format=csv", registerJSON, true)
	if raw.Code != http.StatusOK || raw.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("csv render = %d %q", raw.Code, raw.Header().Get("Content-Type"))
	}
	if !strings.Contains(raw.Body.String(), "Méthadone 40 mg") {
		t.Errorf("csv body = %s", raw.Body)
	}

	tests := []struct {
		target, body string
		want         int
	}{
		{"/render/invoice", `{}`, http.StatusNotFound},
		{"/render/procedure", `{`, http.StatusBadRequest},
		{"/render/procedure?format=csv", `{"code":"PR-1"}`, http.StatusBadRequest},
		{"/render/prescription-register", `{"trimester":{"year":2026,"quarter":9}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := s.do(http.MethodPost, tt.target, tt.body, true); rec.Code != tt.want {
			t.Errorf("POST %s = %d, want %d", tt.target, rec.Code, tt.want)
		}
	}
}

func TestStoreBackedRoutesWithoutStore(t *testing.T) {
	s := newTestServer(t)
	for _, target := range []string{"/exports", "/keys"} {
		if rec := s.do(http.MethodGet, target, "", true); rec.Code != http.StatusNotImplemented {
			t.Errorf("GET %s = %d, want 501", target, rec.Code)
		}
	}
	if rec := s.do(http.MethodGet, "/healthz", "", false); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d", rec.Code)
	}
}

func TestJobStream(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/jobs/stream", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(20 * time.Second))

	var first hub.JobUpdate
	if err := conn.ReadJSON(&first); err != nil || first.Type != "client_count" || first.Clients != 1 {
		t.Fatalf("first update = %+v, %v", first, err)
	}

	body := `{"kind":"procedure","report":{"code":"PR-DISP-01","title":"Dispensation"}}`
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL+"/exports", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	sign(req, body)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST /exports = %d", resp.StatusCode)
	}

	var statuses []string
	for {
		var u hub.JobUpdate
		if err := conn.ReadJSON(&u); err != nil {
			t.Fatalf("ReadJSON() error = %v after %v", err, statuses)
		}
		if u.Type != "job_update" {
			continue
		}
		if n := len(statuses); n == 0 || statuses[n-1] != u.Status {
			statuses = append(statuses, u.Status)
		}
		if u.Status == string(worker.StatusCompleted) {
			if u.Kind != "procedure" || u.Pages < 1 {
				t.Errorf("final update = %+v", u)
			}
			break
		}
	}
	if got := strings.Join(statuses, ","); got != "PENDING,PROCESSING,COMPLETED" {
		t.Errorf("statuses = %s", got)
	}
}
