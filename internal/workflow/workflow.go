// Package workflow is the linear login, upload, poll and report flow
// behind the CLI's commands.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"utprint/internal/chrono"
	"utprint/lib/configstore"
	"utprint/lib/jobstore"
	"utprint/lib/pharos"
	"utprint/lib/report"
	"utprint/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("utprint.internal.workflow")

type Credentials interface {
	Credentials(ctx context.Context) (eid, password string, err error)
}

type History interface {
	Record(ctx context.Context, entry jobstore.Entry) error
}

type Deps struct {
	Client      *pharos.Client
	Config      configstore.Store
	Settings    configstore.Settings
	Credentials Credentials
	Report      report.Reporter
	// nil disables the print history
	History History
	Clock   chrono.Clock
}

func (d Deps) now() chrono.Clock {
	if d.Clock == nil {
		return chrono.SystemClock{}
	}
	return d.Clock
}

// Login resumes the saved session if the server still accepts it, and
// otherwise asks for credentials. The resulting token is saved right
// away so later failures leave a reusable session.
func Login(ctx context.Context, deps Deps) (pharos.Account, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	config, err := deps.Config.Load()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load config")
		return pharos.Account{}, err
	}

	if config.Token != "" {
		deps.Report.Begin("Logging in with saved token")
		account, err := deps.Client.LogonToken(ctx, config.Token)
		if err == nil {
			deps.Report.End("done")
			span.SetAttributes(attribute.Bool("saved_token", true))
			return account, persistToken(deps)
		}

		var apiErr *pharos.APIError
		if !errors.As(err, &apiErr) {
			deps.Report.End("failed")
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to log in with saved token")
			return pharos.Account{}, err
		}
		deps.Report.End("expired")
		slog.DebugContext(ctx, "saved token rejected", "err", err)
	}

	eid, password, err := deps.Credentials.Credentials(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get credentials")
		return pharos.Account{}, fmt.Errorf("get credentials: %w", err)
	}

	deps.Report.Begin("Logging in")
	account, err := deps.Client.LogonCredentials(ctx, eid, password)
	if err != nil {
		deps.Report.End("failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to log in")
		return pharos.Account{}, err
	}
	deps.Report.End("done")

	return account, persistToken(deps)
}

func persistToken(deps Deps) error {
	token := deps.Client.Token()
	if token == "" {
		slog.Warn("server did not issue a session token")
		return nil
	}
	_, err := deps.Config.Update(func(config configstore.Config) configstore.Config {
		return config.WithToken(token)
	})
	if err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	return nil
}

// Logout forgets the saved session, print defaults are kept.
func Logout(deps Deps) error {
	_, err := deps.Config.Update(func(config configstore.Config) configstore.Config {
		return config.WithoutToken()
	})
	return err
}

type PrintRequest struct {
	Path    string
	Options pharos.PrintOptions
}

type PrintResult struct {
	Account pharos.Account
	Job     pharos.Job
}

func Print(ctx context.Context, deps Deps, req PrintRequest) (PrintResult, error) {
	ctx, span := tracer.Start(ctx, "Print")
	defer span.End()

	err := req.Options.Validate()
	if err != nil {
		span.SetStatus(codes.Error, "invalid print options")
		return PrintResult{}, err
	}
	deps.Report.Settings(req.Options)

	account, err := Login(ctx, deps)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to log in")
		return PrintResult{}, err
	}

	document := filepath.Base(req.Path)
	submittedAt := deps.now().Now()
	deps.Report.Begin(fmt.Sprintf("Uploading %s", document))
	job, err := deps.Client.Upload(ctx, req.Options, req.Path)
	if err != nil {
		deps.Report.End("failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload document")
		return PrintResult{Account: account}, err
	}
	deps.Report.End("done")
	span.SetAttributes(attribute.String("job_id", job.ID))

	deps.Report.Begin("Processing")
	waitCtx := ctx
	if timeout := deps.Settings.JobTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	done, err := deps.Client.WaitForJob(waitCtx, job.ID, pharos.WaitOptions{
		Interval: deps.Settings.PollInterval(),
		OnPoll: func(attempt int, current *pharos.Job) {
			state := "unlisted"
			if current != nil {
				state = current.State
			}
			slog.DebugContext(ctx, "polled print job", "attempt", attempt, "id", job.ID, "state", state)
		},
	})
	if err != nil {
		deps.Report.End("failed")
		if errors.Is(err, pharos.ErrJobFailed) {
			record(ctx, deps, submittedAt, document, done, req.Options)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "print job did not complete")
		return PrintResult{Account: account, Job: done}, err
	}
	deps.Report.End("done")

	deps.Report.Finances(account.Balance, done.Cost, deps.Settings.AddFundsUrl)
	record(ctx, deps, submittedAt, document, done, req.Options)

	return PrintResult{Account: account, Job: done}, nil
}

func record(ctx context.Context, deps Deps, submittedAt time.Time, document string, job pharos.Job, opts pharos.PrintOptions) {
	if deps.History == nil {
		return
	}
	err := deps.History.Record(ctx, jobstore.Entry{
		SubmittedAt: submittedAt,
		Document:    document,
		JobID:       job.ID,
		State:       job.State,
		Cost:        job.Cost,
		Options:     opts,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record print history", "job_id", job.ID, "err", err)
	}
}

// Balance logs in and reports the account balance.
func Balance(ctx context.Context, deps Deps) (pharos.Account, error) {
	account, err := Login(ctx, deps)
	if err != nil {
		return pharos.Account{}, err
	}
	deps.Report.Balance(account.Balance)
	return account, nil
}

// Jobs logs in and reports the queued print jobs.
func Jobs(ctx context.Context, deps Deps) ([]pharos.Job, error) {
	ctx, span := tracer.Start(ctx, "Jobs")
	defer span.End()

	_, err := Login(ctx, deps)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to log in")
		return nil, err
	}
	jobs, err := deps.Client.Jobs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list jobs")
		return nil, err
	}
	deps.Report.Jobs(jobs)
	return jobs, nil
}
