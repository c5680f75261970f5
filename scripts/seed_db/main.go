package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"qms-exporter/internal/report"
)

type seed struct {
	ID      string
	Kind    report.Kind
	Payload any
}

func main() {
	driverName := flag.String("driver", "mysql", "mysql, postgres or mongo")
	dsn := flag.String("dsn", "root:root@tcp(localhost:3306)/qms?parseTime=true", "Connection string")
	entries := flag.Int("entries", 5000, "Entries in the large prescription register")
	flag.Parse()

	seeds := samples(*entries)
	ctx := context.Background()

	var err error
	switch *driverName {
	case "mysql", "postgres":
		err = seedSQL(ctx, *driverName, *dsn, seeds)
	case "mongo":
		err = seedMongo(ctx, *dsn, seeds)
	default:
		err = fmt.Errorf("unknown driver %q", *driverName)
	}
	if err != nil {
		panic(err)
	}
	slog.Info("Report source seeded.", "driver", *driverName, "reports", len(seeds))
}

func seedSQL(ctx context.Context, driverName, dsn string, seeds []seed) error {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	// Wait for DB to be ready
	for i := 0; i < 30; i++ {
		if err := db.PingContext(ctx); err == nil {
			break
		}
		slog.Info("Waiting for database...", "attempt", i+1)
		time.Sleep(1 * time.Second)
	}

	payloadType, upsert := "JSON", "INSERT INTO reports (id, kind, payload, updated_at) VALUES (?, ?, ?, ?) ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)"
	if driverName == "postgres" {
		payloadType, upsert = "JSONB", "INSERT INTO reports (id, kind, payload, updated_at) VALUES ($1, $2, $3, $4) ON CONFLICT (kind, id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at"
	}

	slog.Info("Connected. Creating reports table...", "driver", driverName)
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reports (
			id VARCHAR(64) NOT NULL,
			kind VARCHAR(32) NOT NULL,
			payload `+payloadType+` NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (kind, id)
		)
	`)
	if err != nil {
		return err
	}

	for _, s := range seeds {
		data, err := json.Marshal(s.Payload)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, upsert, s.ID, string(s.Kind), string(data), time.Now().UTC()); err != nil {
			return fmt.Errorf("seed %s/%s: %w", s.Kind, s.ID, err)
		}
		slog.Info("Seeded report", "kind", s.Kind, "id", s.ID, "bytes", len(data))
	}
	return nil
}

func seedMongo(ctx context.Context, uri string, seeds []seed) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	coll := client.Database("qms").Collection("reports")
	for _, s := range seeds {
		data, err := json.Marshal(s.Payload)
		if err != nil {
			return err
		}
		// Stored as an embedded document so it can be queried from the shell.
		var doc bson.M
		if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
			return err
		}
		_, err = coll.ReplaceOne(ctx,
			bson.M{"_id": s.ID, "kind": string(s.Kind)},
			bson.M{"_id": s.ID, "kind": string(s.Kind), "payload": doc, "updated_at": time.Now().UTC()},
			options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("seed %s/%s: %w", s.Kind, s.ID, err)
		}
		slog.Info("Seeded report", "kind", s.Kind, "id", s.ID)
	}
	return nil
}

func samples(entries int) []seed {
	q := report.Trimester{Year: 2026, Quarter: 1}
	start, _ := q.Bounds()
	staff := []string{"C. Dubois", "A. Bernard", "L. Petit"}
	medications := []string{"Tramadol 50 mg", "Méthylphénidate 10 mg", "Zolpidem 10 mg", "Amoxicilline 1 g", "Paracétamol 1 g"}

	register := &report.PrescriptionRegister{Pharmacy: "Pharmacie du Centre", Trimester: q}
	for i := 0; i < entries; i++ {
		day := start.AddDate(0, 0, i%90)
		med := medications[i%len(medications)]
		register.Entries = append(register.Entries, report.PrescriptionEntry{
			Number:      fmt.Sprintf("2026-%05d", i+1),
			Date:        report.NewDate(day.Year(), day.Month(), day.Day()),
			Patient:     fmt.Sprintf("Patient %d", i%700+1),
			Prescriber:  fmt.Sprintf("Dr Prescripteur %d", i%40+1),
			Medication:  med,
			Quantity:    fmt.Sprintf("%d", (i%3+1)*10),
			DispensedBy: staff[i%len(staff)],
			Controlled:  !strings.HasPrefix(med, "Amoxicilline") && !strings.HasPrefix(med, "Paracétamol"),
		})
	}

	procedure := &report.Procedure{
		Code:             "PR-001",
		Title:            "Réception des commandes",
		Version:          "2",
		EffectiveOn:      report.NewDate(2026, time.January, 15),
		Objective:        "Garantir la conformité des produits reçus.",
		Scope:            "Toutes les livraisons grossistes et laboratoires.",
		Responsibilities: "Préparateurs pour le contrôle, pharmacien titulaire pour la validation.",
		Steps: []report.ProcedureStep{
			{Number: 1, Description: "Vérifier l'intégrité des colis et la chaîne du froid.", Owner: "Préparateur", Documents: "Bon de livraison"},
			{Number: 2, Description: "Contrôler les quantités et les dates de péremption.", Owner: "Préparateur"},
			{Number: 3, Description: "Ranger les produits et signaler les écarts.", Owner: "Pharmacien", Documents: "Fiche d'écart"},
		},
		References:         []string{"Bonnes pratiques de dispensation"},
		ClassificationCode: "P3",
		Signatures: []report.Signature{
			{Role: "Rédacteur", Name: "C. Dubois", SignedOn: report.NewDate(2026, time.January, 10)},
			{Role: "Approbateur", Name: "Dr Martin", SignedOn: report.NewDate(2026, time.January, 12)},
		},
	}

	event := &report.AdverseEvent{
		ID:                "EI-2026-014",
		DeclaredOn:        report.NewDate(2026, time.February, 3),
		Notifier:          report.Person{Name: "A. Bernard", Role: "Préparatrice"},
		OccurredOn:        report.NewDate(2026, time.February, 2),
		Place:             "Comptoir 2",
		Description:       "Erreur de dosage détectée avant remise au patient.",
		PatientInvolved:   false,
		Product:           "Zolpidem 10 mg",
		Lot:               "L2309A",
		ImmediateActions:  "Délivrance corrigée, patient informé.",
		Analysis:          "Confusion entre deux dosages rangés côte à côte.",
		CorrectiveActions: []report.Action{{Description: "Séparer les dosages en rayon", Owner: "L. Petit", Due: report.NewDate(2026, time.February, 28)}},
		Signatures:        []report.Signature{{Role: "Pharmacien", Name: "Dr Martin", SignedOn: report.NewDate(2026, time.February, 4)}},
	}

	return []seed{
		{ID: q.Code(), Kind: report.KindPrescriptionRegister, Payload: register},
		{ID: procedure.Reference(), Kind: report.KindProcedure, Payload: procedure},
		{ID: event.ID, Kind: report.KindAdverseEvent, Payload: event},
	}
}
