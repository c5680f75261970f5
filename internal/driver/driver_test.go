package driver

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr error
	}{
		{"mysql", "mysql", nil},
		{"postgres", "postgres", nil},
		{"mongo", "mongo", nil},
		{"sqlite", "", ErrUnknownDriver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Open(tt.name, "dsn")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if d.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", d.Name(), tt.want)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	pg := &sqlSource{dollar: true}
	my := &sqlSource{}
	tests := []struct {
		src     *sqlSource
		in, out string
	}{
		{pg, fetchReportQuery, "SELECT payload FROM reports WHERE kind = $1 AND id = $2"},
		{pg, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
		{pg, "SELECT 1", "SELECT 1"},
		{my, fetchReportQuery, fetchReportQuery},
	}
	for _, tt := range tests {
		if got := tt.src.rebind(tt.in); got != tt.out {
			t.Errorf("rebind(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}

func TestParseFind(t *testing.T) {
	tests := []struct {
		query          string
		wantDB, wantCl string
		wantErr        bool
	}{
		{`reports.find({"kind": "adverse_event"})`, "", "reports", false},
		{`qms.reports.find()`, "qms", "reports", false},
		{`reports.aggregate([])`, "", "", true},
		{`reports.find({bad json})`, "", "", true},
		{`reports`, "", "", true},
	}
	for _, tt := range tests {
		db, coll, _, err := parseFind(tt.query)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseFind(%q) accepted an invalid query", tt.query)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseFind(%q) error = %v", tt.query, err)
		}
		if db != tt.wantDB || coll != tt.wantCl {
			t.Errorf("parseFind(%q) = %q, %q", tt.query, db, coll)
		}
	}
}

func TestPayloadJSON(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"text": `{"reference":"EI-1"}`,
		"doc":  bson.M{"reference": "EI-2"},
		"num":  int32(4),
	})
	if err != nil {
		t.Fatal(err)
	}
	doc := bson.Raw(raw)

	if got, err := payloadJSON(doc.Lookup("text")); err != nil || string(got) != `{"reference":"EI-1"}` {
		t.Errorf("string payload = %s, %v", got, err)
	}
	if got, err := payloadJSON(doc.Lookup("doc")); err != nil || string(got) != `{"reference":"EI-2"}` {
		t.Errorf("document payload = %s, %v", got, err)
	}
	if _, err := payloadJSON(doc.Lookup("num")); err == nil {
		t.Errorf("numeric payload accepted")
	}
}
