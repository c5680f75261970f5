package driver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"qms-exporter/internal/report"
)

const (
	defaultMongoDatabase = "qms"
	reportsCollection    = "reports"
)

type MongoDriver struct {
	uri string

	mu       sync.Mutex
	client   *mongo.Client
	database string
}

func NewMongoDriver(uri string) *MongoDriver {
	return &MongoDriver{uri: uri}
}

func (d *MongoDriver) Name() string {
	return "mongo"
}

// connect dials on first use. The database named in the URI path is the
// default one, "qms" when the URI has none.
func (d *MongoDriver) connect(ctx context.Context) (*mongo.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		return d.client, nil
	}
	cs, err := connstring.ParseAndValidate(d.uri)
	if err != nil {
		return nil, fmt.Errorf("mongo uri: %w", err)
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(d.uri))
	if err != nil {
		return nil, err
	}
	d.client = client
	d.database = cs.Database
	if d.database == "" {
		d.database = defaultMongoDatabase
	}
	return client, nil
}

func (d *MongoDriver) Ping(ctx context.Context) error {
	client, err := d.connect(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx, nil)
}

// Query runs a find written as [db.]collection.find({filter}). Args are
// ignored; the filter is literal JSON.
func (d *MongoDriver) Query(ctx context.Context, query string, args ...any) (RowStreamer, error) {
	client, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	dbName, collName, filter, err := parseFind(query)
	if err != nil {
		return nil, err
	}
	if dbName == "" {
		dbName = d.database
	}

	cursor, err := client.Database(dbName).Collection(collName).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &MongoStreamer{cursor: cursor, ctx: ctx}, nil
}

// parseFind splits "db.users.find({...})" or "users.find({...})".
func parseFind(query string) (dbName, collName string, filter bson.M, err error) {
	start := strings.Index(query, "(")
	end := strings.LastIndex(query, ")")
	if start == -1 || end == -1 || end < start {
		return "", "", nil, errors.New("invalid query format: expected collection.find(filter)")
	}

	jsonFilter := strings.TrimSpace(query[start+1 : end])
	if jsonFilter == "" {
		jsonFilter = "{}"
	}
	if err := json.Unmarshal([]byte(jsonFilter), &filter); err != nil {
		return "", "", nil, fmt.Errorf("invalid filter JSON: %w", err)
	}

	segments := strings.Split(strings.TrimSpace(query[:start]), ".")
	if segments[len(segments)-1] != "find" {
		return "", "", nil, errors.New("only 'find' command is supported")
	}
	switch len(segments) {
	case 3:
		return segments[0], segments[1], filter, nil
	case 2:
		return "", segments[0], filter, nil
	}
	return "", "", nil, errors.New("invalid query format: expected [db.]collection.find(...)")
}

// FetchReport reads {_id, kind, payload} from the reports collection.
// The payload may be stored as a JSON string or as an embedded document.
func (d *MongoDriver) FetchReport(ctx context.Context, kind report.Kind, id string) ([]byte, error) {
	client, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Payload bson.RawValue `bson:"payload"`
	}
	err = client.Database(d.database).Collection(reportsCollection).
		FindOne(ctx, bson.M{"_id": id, "kind": string(kind)}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s %s", ErrReportNotFound, kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", kind, id, err)
	}
	return payloadJSON(doc.Payload)
}

func payloadJSON(v bson.RawValue) ([]byte, error) {
	switch v.Type {
	case bson.TypeString:
		return []byte(v.StringValue()), nil
	case bson.TypeEmbeddedDocument:
		var m bson.M
		if err := v.Unmarshal(&m); err != nil {
			return nil, err
		}
		return json.Marshal(m)
	}
	return nil, fmt.Errorf("unsupported payload type %s", v.Type)
}

func (d *MongoDriver) ListReports(ctx context.Context, kind report.Kind) (RowStreamer, error) {
	client, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1, "kind": 1, "updated_at": 1})
	cursor, err := client.Database(d.database).Collection(reportsCollection).
		Find(ctx, bson.M{"kind": string(kind)}, opts)
	if err != nil {
		return nil, err
	}
	return &MongoStreamer{cursor: cursor, ctx: ctx, fields: []string{"_id", "kind", "updated_at"}}, nil
}

func (d *MongoDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		return d.client.Disconnect(context.Background())
	}
	return nil
}

// MongoStreamer implements RowStreamer over a cursor. Without fields each
// document is a single JSON column; with fields each one is a column.
type MongoStreamer struct {
	cursor *mongo.Cursor
	ctx    context.Context
	fields []string
	row    bson.M
	err    error
}

func (s *MongoStreamer) Columns() ([]string, error) {
	if len(s.fields) > 0 {
		cols := make([]string, len(s.fields))
		for i, f := range s.fields {
			cols[i] = strings.TrimPrefix(f, "_")
		}
		return cols, nil
	}
	return []string{"document"}, nil
}

// ColumnTypes has no SQL meaning for documents.
func (s *MongoStreamer) ColumnTypes() ([]*sql.ColumnType, error) {
	return nil, nil
}

func (s *MongoStreamer) Next() bool {
	if s.cursor.Next(s.ctx) {
		s.row = nil
		if err := s.cursor.Decode(&s.row); err != nil {
			s.err = err
			return false
		}
		return true
	}
	s.err = s.cursor.Err()
	return false
}

func (s *MongoStreamer) Scan(dest ...any) error {
	if len(s.fields) == 0 {
		if len(dest) != 1 {
			return errors.New("expected exactly 1 destination for document")
		}
		data, err := json.Marshal(s.row)
		if err != nil {
			return err
		}
		return assign(dest[0], string(data))
	}

	if len(dest) != len(s.fields) {
		return fmt.Errorf("expected %d destinations, got %d", len(s.fields), len(dest))
	}
	for i, f := range s.fields {
		if err := assign(dest[i], s.row[f]); err != nil {
			return fmt.Errorf("field %s: %w", f, err)
		}
	}
	return nil
}

func assign(dest, v any) error {
	switch d := dest.(type) {
	case *any:
		*d = v
	case *string:
		if v == nil {
			*d = ""
		} else {
			*d = fmt.Sprint(v)
		}
	default:
		return errors.New("destination must be *string or *any")
	}
	return nil
}

func (s *MongoStreamer) Err() error {
	return s.err
}

func (s *MongoStreamer) Close() error {
	return s.cursor.Close(s.ctx)
}
