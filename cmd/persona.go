package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/persona/internal/formatter"
	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/services"
	"github.com/desertthunder/persona/internal/shared"
	"github.com/desertthunder/persona/internal/tasks"
	"github.com/desertthunder/persona/internal/ui"
	"github.com/urfave/cli/v3"
)

// PersonaCreate submits a generation job, optionally following it until it finishes.
//
// With --from-url the product page is analysed first and the prompt is built from it;
// an explicit prompt argument still wins.
func (r *Runner) PersonaCreate(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.requireSession()
	if err != nil {
		return err
	}
	if !sess.Authenticated() {
		return fmt.Errorf("%w: log in to create a persona", shared.ErrNotAuthenticated)
	}

	req := models.CreatePersonaRequest{
		Prompt:         strings.TrimSpace(cmd.StringArg("prompt")),
		SourceImageURL: cmd.String("image"),
	}

	if pageURL := cmd.String("from-url"); pageURL != "" {
		r.logger.Info("analyzing product page", "url", pageURL)
		product, err := r.extract.Analyze(ctx, pageURL)
		if err != nil {
			return err
		}
		fromPage := services.RequestFromProduct(*product)
		if req.Prompt != "" {
			fromPage.Prompt = req.Prompt
		}
		if req.SourceImageURL != "" {
			fromPage.SourceImageURL = req.SourceImageURL
		}
		req = fromPage
		r.writePlain("Product: %s\n", ui.Title(product.Title))
	}

	if req.Prompt == "" {
		return fmt.Errorf("%w: prompt (pass it as an argument or use --from-url)", shared.ErrMissingArgument)
	}

	if !cmd.Bool("wait") && !cmd.Bool("open") {
		job, err := r.personas.Create(ctx, req)
		if err != nil {
			return err
		}
		r.recordSubmission(ctx, job.ID, req.Prompt, job.Status)
		r.writePlain("%s Submitted %s (%s)\n", ui.Success("✓"), job.ID, ui.Status(job.Status))
		return r.writePlain("%s\n", ui.Help(fmt.Sprintf("Follow it with 'persona persona status %s --wait'", job.ID)))
	}

	res, err := r.follow(ctx, cmd.Duration("timeout"), func(p *tasks.Poller) error {
		id, err := p.Submit(ctx, req)
		if err != nil {
			return err
		}
		r.recordSubmission(ctx, id, req.Prompt, models.JobPending)
		return nil
	})
	if err != nil {
		return err
	}

	if cmd.Bool("open") && res.Job != nil && res.Job.ResultVideoURL != "" {
		if err := r.openURL(res.Job.ResultVideoURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}
	return nil
}

// PersonaStatus shows one job, or follows it with --wait.
func (r *Runner) PersonaStatus(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}

	if cmd.Bool("wait") {
		_, err := r.follow(ctx, 0, func(p *tasks.Poller) error { return p.Watch(ctx, id) })
		return err
	}

	job, err := r.personas.Status(ctx, id)
	if isNotFound(err) && r.history != nil {
		if delErr := r.history.Delete(ctx, id); delErr == nil {
			r.logger.Info("removed missing job from local history", "id", id)
		}
	}
	if err != nil {
		return err
	}
	r.syncHistory(ctx, job)

	if cmd.Bool("json") {
		return r.writeJSON(job, true)
	}

	r.writePlain("%s %s\n", job.ID, ui.Status(job.Status))
	if job.Title != "" {
		r.writePlain("Title: %s\n", job.Title)
	}
	r.writePlain("Prompt: %s\n", shared.Truncate(job.Prompt, 120))
	if job.ResultVideoURL != "" {
		r.writePlain("Video: %s\n", job.ResultVideoURL)
	}
	return nil
}

// follow starts a poller with start and prints its progress until the job ends.
//
// If ctx ends or timeout elapses first the loop is cancelled. The job keeps running on the server.
func (r *Runner) follow(ctx context.Context, timeout time.Duration, start func(*tasks.Poller) error) (tasks.Result, error) {
	progress := make(chan tasks.ProgressUpdate, 16)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for u := range progress {
			r.writePlain("%s\n", ui.Update(u))
		}
	}()
	finish := func() {
		close(progress)
		<-printed
	}

	poller, err := r.newPoller(progress)
	if err != nil {
		finish()
		return tasks.Result{}, err
	}

	if err := start(poller); err != nil {
		finish()
		return tasks.Result{}, err
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := poller.Wait(waitCtx)
	if !res.State.Terminal() {
		poller.Cancel()
		res, err = poller.Wait(context.Background())
	}
	finish()

	if res.State == tasks.PollCancelled {
		return res, fmt.Errorf("%w: stopped following %s; resume with 'persona persona status %s --wait'",
			shared.ErrJobCancelled, res.JobID, res.JobID)
	}

	if res.Job != nil {
		r.syncHistory(context.WithoutCancel(ctx), res.Job)
	}
	if err != nil {
		return res, err
	}

	if res.Job != nil && res.Job.ResultVideoURL != "" {
		r.writePlain("Video: %s\n", res.Job.ResultVideoURL)
	}
	return res, nil
}

// recordSubmission adds a job to the local history. Failures only warn.
func (r *Runner) recordSubmission(ctx context.Context, id, prompt string, status models.JobStatus) {
	if r.history == nil {
		return
	}
	if status == "" {
		status = models.JobPending
	}
	entry := &models.HistoryEntry{ID: id, Prompt: prompt, Status: status}
	if err := r.history.Record(ctx, entry); err != nil {
		r.logger.Warn("failed to record job history", "id", id, "error", err)
	}
}

// syncHistory copies the latest status of a job into the local history if it is tracked there.
func (r *Runner) syncHistory(ctx context.Context, job *models.Persona) {
	if r.history == nil || job == nil {
		return
	}
	if err := r.history.UpdateStatus(ctx, job.ID, job.Status, job.ResultVideoURL); err != nil {
		r.logger.Debug("job not in local history", "id", job.ID, "error", err)
	}
}

// PersonaList prints or exports the user's gallery.
func (r *Runner) PersonaList(ctx context.Context, cmd *cli.Command) error {
	gallery := tasks.NewGallery(r.personas)
	personas, err := gallery.Load(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(personas, true)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if outputPath := cmd.String("output"); outputPath != "" {
		path, err := formatter.WriteExport(format, personas, outputPath)
		if err != nil {
			return err
		}
		r.logger.Info("gallery exported", "path", path, "count", len(personas))
		return r.writePlain("%s Exported %d personas to %s\n", ui.Success("✓"), len(personas), path)
	}

	data, err := formatter.Export(format, personas)
	if err != nil {
		return err
	}

	if format == formatter.FormatText {
		r.writePlainHeader(fmt.Sprintf("Gallery (%d)", len(personas)))
	}
	_, err = r.output.Write(data)
	return err
}

// PersonaDelete removes a persona from the gallery and from the local history.
func (r *Runner) PersonaDelete(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: persona id", shared.ErrMissingArgument)
	}

	gallery := tasks.NewGallery(r.personas)
	if _, err := gallery.Load(ctx); err != nil {
		return err
	}

	remaining, err := gallery.Delete(ctx, id)
	if err != nil {
		return err
	}

	if r.history != nil {
		if err := r.history.Delete(ctx, id); err != nil {
			r.logger.Debug("job not in local history", "id", id, "error", err)
		}
	}

	return r.writePlain("%s Deleted %s (%d left)\n", ui.Success("✓"), id, len(remaining))
}

// PersonaHistory lists jobs submitted from this machine.
func (r *Runner) PersonaHistory(ctx context.Context, cmd *cli.Command) error {
	if r.history == nil {
		return fmt.Errorf("%w: no local database; run 'persona setup database'", shared.ErrMissingConfig)
	}

	entries, err := r.history.List(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		return r.writePlain("No jobs submitted yet\n")
	}

	r.writePlainHeader("History")
	for _, e := range entries {
		r.writePlain("%s  %s  %-10s %s\n",
			e.SubmittedAt.Local().Format("2006-01-02 15:04"), e.ID, ui.Status(e.Status), shared.Truncate(e.Prompt, 60))
		if e.ResultVideoURL != "" {
			r.writePlain("    %s\n", e.ResultVideoURL)
		}
	}
	return nil
}

// isNotFound reports whether err means the job does not exist on the server.
func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrJobNotFound)
}
