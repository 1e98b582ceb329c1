package pharos

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	StateCompleted = "Completed"
)

var failedStates = map[string]bool{
	"Failed":    true,
	"Error":     true,
	"Deleted":   true,
	"Cancelled": true,
}

type Job struct {
	// the job's location on the server, unique per user
	ID    string
	Name  string
	State string
	Cost  float64
	// 0 until the server has counted the pages
	Pages int
}

func (j Job) Completed() bool {
	return j.State == StateCompleted
}

func (j Job) Failed() bool {
	return failedStates[j.State]
}

type jobActivity struct {
	State string `json:"State"`
}

type jobItem struct {
	Location string      `json:"Location"`
	Name     string      `json:"Name"`
	Activity jobActivity `json:"Activity"`
	Cost     Amount      `json:"Cost"`
	Pages    int         `json:"Pages"`
}

func (i jobItem) job() Job {
	return Job{
		ID:    i.Location,
		Name:  i.Name,
		State: i.Activity.State,
		Cost:  float64(i.Cost),
		Pages: i.Pages,
	}
}

type jobList struct {
	Items []jobItem `json:"Items"`
}

func mimetype(path string) string {
	t := mime.TypeByExtension(filepath.Ext(path))
	if t == "" {
		return "application/octet-stream"
	}
	return t
}

// Upload submits the document at path to the user's print queue.
func (c *Client) Upload(ctx context.Context, opts PrintOptions, path string) (Job, error) {
	ctx, span := tracer.Start(ctx, "client:Upload")
	defer span.End()

	err := opts.Validate()
	if err != nil {
		span.SetStatus(codes.Error, "invalid print options")
		return Job{}, err
	}
	metadata, err := opts.Metadata()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode metadata")
		return Job{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stat document")
		return Job{}, err
	}
	if info.IsDir() {
		span.SetStatus(codes.Error, "document is a directory")
		return Job{}, fmt.Errorf("%s is a directory", path)
	}
	file, err := os.Open(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open document")
		return Job{}, err
	}
	defer file.Close()

	userUri, err := c.UserURI()
	if err != nil {
		span.SetStatus(codes.Error, "missing user uri")
		return Job{}, err
	}

	name := filepath.Base(path)
	span.SetAttributes(
		attribute.String("document", name),
		attribute.Int64("size", info.Size()),
	)

	res, err := c.Http.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"MetaData": string(metadata),
		}).
		SetMultipartField("content", name, mimetype(path), file).
		Post(userUri + "/printjobs")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make upload request")
		return Job{}, err
	}
	if res.StatusCode() != http.StatusCreated {
		err := errorFromResponse(res)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload rejected")
		return Job{}, err
	}

	var created jobItem
	err = decodeBody(res, &created)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse upload response")
		return Job{}, err
	}
	uploadCounter.Add(ctx, 1)

	job := created.job()
	job.Cost = 0
	if job.Name == "" {
		job.Name = name
	}
	return job, nil
}

// Jobs lists the print jobs queued for the user.
func (c *Client) Jobs(ctx context.Context) ([]Job, error) {
	ctx, span := tracer.Start(ctx, "client:Jobs")
	defer span.End()

	userUri, err := c.UserURI()
	if err != nil {
		span.SetStatus(codes.Error, "missing user uri")
		return nil, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(userUri + "/printjobs")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make job list request")
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		err := errorFromResponse(res)
		span.RecordError(err)
		span.SetStatus(codes.Error, "job list rejected")
		return nil, err
	}

	var list jobList
	err = decodeBody(res, &list)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse job list")
		return nil, err
	}

	jobs := make([]Job, len(list.Items))
	for i, item := range list.Items {
		jobs[i] = item.job()
	}
	return jobs, nil
}

// Job looks up a single job in the user's job list.
func (c *Client) Job(ctx context.Context, id string) (Job, error) {
	jobs, err := c.Jobs(ctx)
	if err != nil {
		return Job{}, err
	}
	for _, job := range jobs {
		if job.ID == id {
			return job, nil
		}
	}
	return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

type WaitOptions struct {
	// time slept before each poll, defaults to 3 seconds
	Interval time.Duration
	// called after every poll, job is nil if the job was not listed yet
	OnPoll func(attempt int, job *Job)
}

// WaitForJob polls the job list until the job identified by id has been
// processed. A job that ends up in a failed state is returned along with
// ErrJobFailed.
func (c *Client) WaitForJob(ctx context.Context, id string, opts WaitOptions) (Job, error) {
	ctx, span := tracer.Start(ctx, "client:WaitForJob")
	defer span.End()

	if opts.Interval <= 0 {
		opts.Interval = time.Second * 3
	}

	timer := time.NewTimer(opts.Interval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, "cancelled while waiting for job")
			return Job{}, ctx.Err()
		}
		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, "cancelled while waiting for job")
			return Job{}, ctx.Err()
		case <-timer.C:
		}

		var current *Job
		job, err := c.Job(ctx, id)
		switch {
		case err == nil:
			current = &job
		case errors.Is(err, ErrJobNotFound):
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to poll job list")
			return Job{}, err
		}
		pollCounter.Add(ctx, 1)

		if opts.OnPoll != nil {
			opts.OnPoll(attempt, current)
		}

		if current != nil && current.Completed() {
			span.SetAttributes(attribute.Int("attempts", attempt))
			return *current, nil
		}
		if current != nil && current.Failed() {
			span.SetStatus(codes.Error, "job failed")
			return *current, fmt.Errorf("%w: job is %s", ErrJobFailed, current.State)
		}

		timer.Reset(opts.Interval)
	}
}
