package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"utprint/lib/jobstore/db"
	"utprint/lib/pharos"
	"utprint/lib/telemetry"

	"go.opentelemetry.io/otel/codes"

	_ "modernc.org/sqlite"
)

var tracer = telemetry.Tracer("utprint.lib.jobstore")

// Store is the local history of submitted print jobs.
type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Open opens (and creates if needed) the sqlite database at path,
// ":memory:" is accepted.
func Open(path string) (Store, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0700)
		if err != nil {
			return Store{}, err
		}
	}
	sqlite, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	// a single connection keeps :memory: databases intact and serializes writers
	sqlite.SetMaxOpenConns(1)
	_, err = sqlite.Exec(db.Schema)
	if err != nil {
		sqlite.Close()
		return Store{}, fmt.Errorf("create history schema: %w", err)
	}
	return NewStore(sqlite), nil
}

func (s Store) Close() error {
	return s.db.Close()
}

type Entry struct {
	SubmittedAt time.Time
	Document    string
	JobID       string
	State       string
	Cost        float64
	Options     pharos.PrintOptions
}

func (s Store) Record(ctx context.Context, entry Entry) error {
	ctx, span := tracer.Start(ctx, "Record")
	defer span.End()

	err := s.qry.CreatePrintJob(ctx, db.CreatePrintJobParams{
		Submittedat:  entry.SubmittedAt.Unix(),
		Document:     entry.Document,
		Jobid:        entry.JobID,
		State:        entry.State,
		Cost:         entry.Cost,
		Color:        string(entry.Options.Color),
		Sides:        int64(entry.Options.Sides),
		Pagesperside: int64(entry.Options.PagesPerSide()),
		Copies:       int64(entry.Options.Copies),
		Pagerange:    entry.Options.PageRange,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert print job")
		return err
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "Recent")
	defer span.End()

	rows, err := s.qry.GetRecentPrintJobs(ctx, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query print jobs")
		return nil, err
	}

	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = Entry{
			SubmittedAt: time.Unix(row.Submittedat, 0),
			Document:    row.Document,
			JobID:       row.Jobid,
			State:       row.State,
			Cost:        row.Cost,
			Options: pharos.PrintOptions{
				Color:           pharos.Color(row.Color),
				Sides:           pharos.Sides(row.Sides),
				TwoPagesPerSide: row.Pagesperside == 2,
				Copies:          int(row.Copies),
				PageRange:       row.Pagerange,
			},
		}
	}
	return entries, nil
}

// TotalSpent sums the cost of every completed job.
func (s Store) TotalSpent(ctx context.Context) (float64, error) {
	ctx, span := tracer.Start(ctx, "TotalSpent")
	defer span.End()

	total, err := s.qry.GetTotalCost(ctx, pharos.StateCompleted)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to sum costs")
		return 0, err
	}
	return total, nil
}
