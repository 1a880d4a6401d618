package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/shared"
)

const (
	DefaultPollInterval  = 3 * time.Second
	DefaultRetryInterval = 5 * time.Second
)

// JobAPI is the part of the backend the poller needs. [services.PersonaService] implements it.
type JobAPI interface {
	Create(ctx context.Context, req models.CreatePersonaRequest) (*models.Persona, error)
	Status(ctx context.Context, id string) (*models.Persona, error)
}

// SessionChecker reports whether a session exists. [session.Manager] implements it.
type SessionChecker interface {
	Authenticated() bool
}

// PollState is the lifecycle state of a [Poller].
type PollState int

const (
	PollIdle PollState = iota
	PollSubmitting
	PollPolling
	PollCompleted
	PollFailed
	PollCancelled
)

func (s PollState) String() string {
	switch s {
	case PollIdle:
		return "idle"
	case PollSubmitting:
		return "submitting"
	case PollPolling:
		return "polling"
	case PollCompleted:
		return "completed"
	case PollFailed:
		return "failed"
	case PollCancelled:
		return "cancelled"
	default:
		return ""
	}
}

// Terminal reports whether the state ends a polling loop.
func (s PollState) Terminal() bool {
	return s == PollCompleted || s == PollFailed || s == PollCancelled
}

// Result is the outcome of one polling loop.
type Result struct {
	JobID  string
	State  PollState
	Job    *models.Persona // last snapshot received, nil if none arrived
	Checks int             // status requests whose result was processed
	Err    error           // set for PollFailed and PollCancelled
}

// loop is one submit-to-terminal run. done is closed once result is final.
type loop struct {
	id       string
	done     chan struct{}
	result   Result
	finished bool
}

// Poller submits a generation job and follows it to a terminal status.
//
// Status checks are strictly sequential: the next one is scheduled only after the
// previous one resolved, so at most one check is ever pending.
type Poller struct {
	jobs          JobAPI
	session       SessionChecker
	interval      time.Duration
	retryInterval time.Duration
	after         func(time.Duration) <-chan time.Time
	progress      chan<- ProgressUpdate
	logger        *log.Logger

	mu      sync.Mutex
	state   PollState
	gen     uint64
	cancel  context.CancelFunc
	current *loop
}

// PollerOption configures a [Poller].
type PollerOption func(*Poller)

// WithIntervals sets the delay between checks and the delay after a network failure.
// Non-positive values keep the defaults.
func WithIntervals(interval, retry time.Duration) PollerOption {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
		if retry > 0 {
			p.retryInterval = retry
		}
	}
}

// WithClock replaces [time.After] for scheduling checks.
func WithClock(after func(time.Duration) <-chan time.Time) PollerOption {
	return func(p *Poller) { p.after = after }
}

// WithProgress reports progress on ch. Sends never block; updates are dropped when ch is full.
func WithProgress(ch chan<- ProgressUpdate) PollerOption {
	return func(p *Poller) { p.progress = ch }
}

// WithPollerLogger sets the logger.
func WithPollerLogger(l *log.Logger) PollerOption {
	return func(p *Poller) { p.logger = l }
}

// NewPoller creates an idle poller.
func NewPoller(jobs JobAPI, session SessionChecker, opts ...PollerOption) *Poller {
	p := &Poller{
		jobs:          jobs,
		session:       session,
		interval:      DefaultPollInterval,
		retryInterval: DefaultRetryInterval,
		after:         time.After,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	return p
}

// State returns the current lifecycle state.
func (p *Poller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Submit creates a job and starts following it. The first status check runs immediately.
//
// Without a session it fails with [shared.ErrNotAuthenticated] and an empty prompt
// fails with [shared.ErrMissingArgument]; neither touches the network.
// A job already being followed is cancelled first, and [Poller.Cancel] aborts the submission itself.
// If creation fails the poller returns to idle and [Poller.Wait] reports the creation error.
func (p *Poller) Submit(ctx context.Context, req models.CreatePersonaRequest) (string, error) {
	if p.session == nil || !p.session.Authenticated() {
		return "", fmt.Errorf("%w: log in to create a persona", shared.ErrNotAuthenticated)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}

	createCtx, cancelCreate := context.WithCancel(ctx)
	defer cancelCreate()

	p.mu.Lock()
	p.stopLocked()
	p.gen++
	gen := p.gen
	l := &loop{done: make(chan struct{})}
	p.cancel = cancelCreate
	p.current = l
	p.state = PollSubmitting
	p.mu.Unlock()

	sendProgress(p.progress, submittingUpdate(req.Prompt))
	job, err := p.jobs.Create(createCtx, req)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gen != gen {
		return "", fmt.Errorf("%w: superseded before the job was created", shared.ErrJobCancelled)
	}
	p.cancel = nil
	if err == nil && job == nil {
		err = fmt.Errorf("%w: empty create response", shared.ErrAPIRequest)
	}
	if err != nil {
		p.state = PollIdle
		p.logger.Warn("job submission failed", "error", err)
		p.finishLocked(l, Result{State: PollFailed, Err: err})
		return "", err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l.id = job.ID
	l.result = Result{JobID: job.ID, Job: job}
	p.cancel = cancel
	p.state = PollPolling
	p.logger.Info("job submitted", "id", job.ID)

	go p.run(loopCtx, gen, l)
	return job.ID, nil
}

// Watch follows an existing job without submitting one.
func (p *Poller) Watch(ctx context.Context, id string) error {
	if p.session == nil || !p.session.Authenticated() {
		return fmt.Errorf("%w: log in to follow a job", shared.ErrNotAuthenticated)
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.gen++
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l := &loop{id: id, done: make(chan struct{}), result: Result{JobID: id}}
	p.cancel = cancel
	p.current = l
	p.state = PollPolling

	go p.run(loopCtx, p.gen, l)
	return nil
}

// Cancel stops the current loop. A status response that arrives afterwards is discarded.
func (p *Poller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// stopLocked cancels whatever is in progress. Callers hold p.mu.
func (p *Poller) stopLocked() {
	if p.state != PollSubmitting && p.state != PollPolling {
		return
	}

	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.state = PollCancelled

	if l := p.current; l != nil && !l.finished {
		res := l.result
		res.State = PollCancelled
		res.Err = shared.ErrJobCancelled
		sendProgress(p.progress, cancelledUpdate(l.id))
		p.finishLocked(l, res)
	}
	p.logger.Debug("polling cancelled")
}

func (p *Poller) finishLocked(l *loop, res Result) {
	l.result = res
	l.finished = true
	close(l.done)
}

// Wait blocks until the current loop reaches a terminal state and returns its result.
//
// The returned error is the result's Err, or ctx.Err() if ctx ends first.
func (p *Poller) Wait(ctx context.Context) (Result, error) {
	p.mu.Lock()
	l := p.current
	p.mu.Unlock()

	if l == nil {
		return Result{State: PollIdle}, fmt.Errorf("%w: no job submitted", shared.ErrInvalidArgument)
	}

	select {
	case <-l.done:
		return l.result, l.result.Err
	case <-ctx.Done():
		return Result{JobID: l.id, State: PollPolling}, ctx.Err()
	}
}

// run performs status checks until a terminal status, a non-transient error, or cancellation.
func (p *Poller) run(ctx context.Context, gen uint64, l *loop) {
	var delay time.Duration
	checks := 0

	for {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-p.after(delay):
			}
		} else if ctx.Err() != nil {
			return
		}

		job, err := p.jobs.Status(ctx, l.id)

		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()
			return
		}
		checks++

		res := l.result
		res.Checks = checks
		if job != nil {
			res.Job = job
		}
		l.result = res

		switch {
		case err != nil && shared.IsTransient(err):
			p.logger.Warn("status check failed, retrying", "id", l.id, "error", err, "in", p.retryInterval)
			sendProgress(p.progress, retryingUpdate(checks, l.id, err))
			delay = p.retryInterval

		case err != nil:
			p.logger.Warn("status check rejected", "id", l.id, "error", err)
			res.State, res.Err = PollFailed, err
			sendProgress(p.progress, failedUpdate(checks, l.id, err))
			p.endLocked(l, res)
			p.mu.Unlock()
			return

		case job == nil:
			res.State, res.Err = PollFailed, fmt.Errorf("%w: empty status response for %s", shared.ErrAPIRequest, l.id)
			sendProgress(p.progress, failedUpdate(checks, l.id, res.Err))
			p.endLocked(l, res)
			p.mu.Unlock()
			return

		case job.Status == models.JobCompleted:
			p.logger.Info("job completed", "id", l.id, "video", job.ResultVideoURL)
			res.State = PollCompleted
			sendProgress(p.progress, completedUpdate(checks, job))
			p.endLocked(l, res)
			p.mu.Unlock()
			return

		case job.Status == models.JobFailed:
			failure := fmt.Errorf("%w: %s", shared.ErrJobFailed, l.id)
			res.State, res.Err = PollFailed, failure
			sendProgress(p.progress, failedUpdate(checks, l.id, failure))
			p.endLocked(l, res)
			p.mu.Unlock()
			return

		default:
			sendProgress(p.progress, pollingUpdate(checks, job))
			delay = p.interval
		}
		p.mu.Unlock()
	}
}

// endLocked records a terminal result produced by the loop itself. Callers hold p.mu.
func (p *Poller) endLocked(l *loop, res Result) {
	p.state = res.State
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.finishLocked(l, res)
}

// IsCancelled reports whether err came from a cancelled loop.
func IsCancelled(err error) bool {
	return errors.Is(err, shared.ErrJobCancelled)
}
