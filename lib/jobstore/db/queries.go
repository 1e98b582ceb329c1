package db

import (
	"context"
)

type PrintJob struct {
	ID           int64
	Submittedat  int64
	Document     string
	Jobid        string
	State        string
	Cost         float64
	Color        string
	Sides        int64
	Pagesperside int64
	Copies       int64
	Pagerange    string
}

const createPrintJob = `insert into PrintJob(
    submittedAt, document, jobId, state, cost,
    color, sides, pagesPerSide, copies, pageRange
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreatePrintJobParams struct {
	Submittedat  int64
	Document     string
	Jobid        string
	State        string
	Cost         float64
	Color        string
	Sides        int64
	Pagesperside int64
	Copies       int64
	Pagerange    string
}

func (q *Queries) CreatePrintJob(ctx context.Context, arg CreatePrintJobParams) error {
	_, err := q.db.ExecContext(ctx, createPrintJob,
		arg.Submittedat,
		arg.Document,
		arg.Jobid,
		arg.State,
		arg.Cost,
		arg.Color,
		arg.Sides,
		arg.Pagesperside,
		arg.Copies,
		arg.Pagerange,
	)
	return err
}

const getRecentPrintJobs = `select id, submittedAt, document, jobId, state, cost,
    color, sides, pagesPerSide, copies, pageRange
from PrintJob
order by submittedAt desc, id desc
limit ?
`

func (q *Queries) GetRecentPrintJobs(ctx context.Context, limit int64) ([]PrintJob, error) {
	rows, err := q.db.QueryContext(ctx, getRecentPrintJobs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PrintJob
	for rows.Next() {
		var i PrintJob
		if err := rows.Scan(
			&i.ID,
			&i.Submittedat,
			&i.Document,
			&i.Jobid,
			&i.State,
			&i.Cost,
			&i.Color,
			&i.Sides,
			&i.Pagesperside,
			&i.Copies,
			&i.Pagerange,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTotalCost = `select coalesce(sum(cost), 0.0) from PrintJob where state = ?`

func (q *Queries) GetTotalCost(ctx context.Context, state string) (float64, error) {
	row := q.db.QueryRowContext(ctx, getTotalCost, state)
	var total float64
	err := row.Scan(&total)
	return total, err
}
