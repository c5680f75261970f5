package security

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestVerifyHMAC(t *testing.T) {
	now := time.Unix(1_780_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	body := `{"kind":"procedure"}`
	sig := Sign("s3cret", "POST", "/exports", body, ts)

	tests := []struct {
		name      string
		secret    string
		body      string
		timestamp string
		signature string
		at        time.Time
		wantErr   error
	}{
		{name: "valid", secret: "s3cret", body: body, timestamp: ts, signature: sig, at: now},
		{name: "no secret configured", secret: "", body: body, timestamp: ts, signature: "", at: now},
		{name: "tampered body", secret: "s3cret", body: body + " ", timestamp: ts, signature: sig, at: now, wantErr: ErrInvalidSignature},
		{name: "wrong secret", secret: "other", body: body, timestamp: ts, signature: sig, at: now, wantErr: ErrInvalidSignature},
		{name: "expired", secret: "s3cret", body: body, timestamp: ts, signature: sig, at: now.Add(6 * time.Minute), wantErr: ErrRequestExpired},
		{name: "from the future", secret: "s3cret", body: body, timestamp: ts, signature: sig, at: now.Add(-6 * time.Minute), wantErr: ErrRequestExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyAt(tt.at, tt.secret, "POST", "/exports", tt.body, tt.timestamp, tt.signature)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("verifyAt() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := verifyAt(now, "s3cret", "POST", "/exports", body, "yesterday", sig); err == nil {
		t.Errorf("verifyAt() accepted a malformed timestamp")
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"qualite@pharmacie.fr", true},
		{"a.b@sub.example.org", true},
		{"", false},
		{"@pharmacie.fr", false},
		{"qualite@pharmacie", false},
		{"qualite@pharmacie.", false},
		{"a@b@c.fr", false},
		{"a@b.fr\nBcc: c@d.fr", false},
	}
	for _, tt := range tests {
		if got := ValidateEmail(tt.in) == nil; got != tt.want {
			t.Errorf("ValidateEmail(%q) ok = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDownloadToken(t *testing.T) {
	now := time.Now()
	tok, err := IssueDownloadToken("k", "exports/job-1/fiche-EI-1.pdf", "job-1", now, time.Hour)
	if err != nil {
		t.Fatalf("IssueDownloadToken() error = %v", err)
	}
	claims, err := ParseDownloadToken("k", tok)
	if err != nil {
		t.Fatalf("ParseDownloadToken() error = %v", err)
	}
	if claims.Subject != "exports/job-1/fiche-EI-1.pdf" || claims.JobID != "job-1" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := ParseDownloadToken("other", tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret error = %v, want ErrInvalidToken", err)
	}

	expired, _ := IssueDownloadToken("k", "x.pdf", "job-2", now.Add(-2*time.Hour), time.Hour)
	if _, err := ParseDownloadToken("k", expired); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expired token error = %v, want ErrTokenExpired", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, DownloadClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x.pdf", Issuer: "qms-exporter"}})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := ParseDownloadToken("k", unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("alg none error = %v, want ErrInvalidToken", err)
	}

	if _, err := IssueDownloadToken("", "x", "j", now, time.Hour); !errors.Is(err, ErrNoTokenSecret) {
		t.Errorf("IssueDownloadToken() without secret error = %v", err)
	}
}
