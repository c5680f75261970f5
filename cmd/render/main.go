package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"time"

	"github.com/joho/godotenv"

	"qms-exporter/internal/composer"
	"qms-exporter/internal/config"
	"qms-exporter/internal/driver"
	"qms-exporter/internal/exporter"
	"qms-exporter/internal/layout"
	"qms-exporter/internal/reference"
	"qms-exporter/internal/report"
	"qms-exporter/internal/storage"
)

var version = "dev"

// maxStoredSize bounds what -stored will read into memory.
const maxStoredSize = 64 << 20

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "QMS render %s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  qms-render -kind <kind> [-in file | -source-id id] [flags]\n")
		fmt.Fprintf(os.Stderr, "  qms-render -kind <kind> -list\n")
		fmt.Fprintf(os.Stderr, "  qms-render -stored <storage key> -out <file>\n")
		fmt.Fprintf(os.Stderr, "  qms-render -query <source query> -format <format> [-title T] [-out file]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nKinds:\n")
		for _, k := range report.Kinds() {
			fmt.Fprintf(os.Stderr, "  %s\n", k)
		}
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (for -source-id and -list):\n")
		fmt.Fprintf(os.Stderr, "  DB_DRIVER  mysql, postgres or mongo\n")
		fmt.Fprintf(os.Stderr, "  DB_DSN     Connection string of the report source\n")
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  qms-render -kind prescription-register -in registre.json -out registre.pdf\n")
	}

	kindFlag := flag.String("kind", "", "Report kind")
	in := flag.String("in", "-", "JSON payload file, - for stdin")
	out := flag.String("out", "", "Output file, defaults to the document file name")
	format := flag.String("format", exporter.FormatPDF, "Output format: pdf, csv, json or xlsx")
	asBase64 := flag.Bool("base64", false, "Write the document base64 encoded to stdout")
	sourceID := flag.String("source-id", "", "Read the payload from the report source instead of -in")
	list := flag.Bool("list", false, "List the stored reports of -kind as CSV")
	query := flag.String("query", "", "Export the rows of a source query instead of a report")
	title := flag.String("title", "Extraction", "Title of a -query PDF")
	stored := flag.String("stored", "", "Copy a stored export out of the configured storage")
	catalogPath := flag.String("catalog", "", "Reference catalog file, built-in when empty")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("QMS render %s\n", version)
		os.Exit(0)
	}

	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Load()

	if *stored != "" {
		if err := copyStored(ctx, cfg, *stored, *out); err != nil {
			slog.Error("Copy failed", "key", *stored, "error", err)
			os.Exit(1)
		}
		return
	}

	if *query != "" {
		if err := exportQuery(ctx, cfg, *query, *format, *title, *out); err != nil {
			slog.Error("Query export failed", "error", err)
			os.Exit(1)
		}
		return
	}

	kind, err := report.ParseKind(*kindFlag)
	if err != nil {
		slog.Error("Invalid kind", "error", err)
		flag.Usage()
		os.Exit(2)
	}
	if *catalogPath == "" {
		*catalogPath = cfg.CatalogPath
	}

	if *list {
		if err := listReports(ctx, cfg, kind); err != nil {
			slog.Error("List failed", "error", err)
			os.Exit(1)
		}
		return
	}

	payload, err := loadPayload(ctx, cfg, kind, *in, *sourceID)
	if err != nil {
		slog.Error("Failed to read payload", "error", err)
		os.Exit(1)
	}
	r, err := report.Decode(kind, payload)
	if err != nil {
		slog.Error("Invalid payload", "error", err)
		os.Exit(1)
	}

	catalog, err := reference.LoadFile(*catalogPath)
	if err != nil {
		slog.Error("Failed to load reference catalog", "error", err)
		os.Exit(1)
	}
	engine := layout.New(layout.WithCreator("qms-render " + version))
	renderer := exporter.NewRenderer(composer.New(catalog, engine.Geometry()), engine)

	start := time.Now()
	artifact, err := renderer.Render(r, *format, composer.Meta{GeneratedAt: time.Now(), Caption: cfg.Caption()})
	if err != nil {
		slog.Error("Render failed", "error", err)
		os.Exit(1)
	}

	if *asBase64 {
		fmt.Println(artifact.Base64())
		return
	}
	dest := *out
	if dest == "" {
		dest = artifact.Filename
	}
	if err := os.WriteFile(dest, artifact.Data, 0644); err != nil {
		slog.Error("Failed to write document", "path", dest, "error", err)
		os.Exit(1)
	}
	slog.Info("Document written", "path", dest, "pages", artifact.Pages, "bytes", artifact.Size(), "duration", time.Since(start))
}

func openSource(cfg *config.Config) (driver.Driver, error) {
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	return driver.Open(cfg.DBDriver, cfg.DBDSN)
}

func loadPayload(ctx context.Context, cfg *config.Config, kind report.Kind, in, sourceID string) ([]byte, error) {
	if sourceID != "" {
		src, err := openSource(cfg)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return src.FetchReport(ctx, kind, sourceID)
	}
	if in == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(in)
}

func listReports(ctx context.Context, cfg *config.Config, kind report.Kind) error {
	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	rows, err := src.ListReports(ctx, kind)
	if err != nil {
		return err
	}
	enc := exporter.NewCSVEncoder(os.Stdout)
	res, err := exporter.StreamRows(ctx, rows, enc)
	if err != nil {
		return err
	}
	slog.Info("Reports listed", "driver", src.Name(), "rows", res.RowsProcessed, "duration", res.Duration)
	return nil
}

func copyStored(ctx context.Context, cfg *config.Config, key, out string) error {
	files, err := storage.New(cfg)
	if err != nil {
		return err
	}
	data, err := storage.Load(ctx, files, key, maxStoredSize)
	if err != nil {
		return err
	}
	if out == "" {
		out = path.Base(key)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return err
	}
	slog.Info("Stored export copied", "key", key, "path", out, "bytes", len(data))
	return nil
}

// exportQuery streams the rows of query into an encoder of format. SQL
// sources take "?" placeholders, mongo takes collection.find({...}).
func exportQuery(ctx context.Context, cfg *config.Config, query, format, title, out string) error {
	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc, err := exporter.NewEncoder(format, w, layout.New(), title)
	if err != nil {
		return err
	}
	defer enc.Close()
	if pdf, ok := enc.(*exporter.PDFEncoder); ok {
		pdf.SetCaption(cfg.Caption())
	}

	rows, err := src.Query(ctx, query)
	if err != nil {
		return err
	}
	res, err := exporter.StreamRows(ctx, rows, enc)
	if err != nil {
		return err
	}
	slog.Info("Query exported", "driver", src.Name(), "format", format, "rows", res.RowsProcessed, "duration", res.Duration)
	return nil
}
