package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/services"
	"github.com/desertthunder/persona/internal/session"
	"github.com/desertthunder/persona/internal/shared"
	"github.com/desertthunder/persona/internal/tasks"
	"github.com/desertthunder/persona/internal/ui"
	"github.com/urfave/cli/v3"
)

// History is the local record of submitted jobs. [repositories.JobHistoryRepository] implements it.
type History interface {
	Record(ctx context.Context, entry *models.HistoryEntry) error
	UpdateStatus(ctx context.Context, id string, status models.JobStatus, videoURL string) error
	List(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	Delete(ctx context.Context, id string) error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config        *shared.Config
	configPath    string
	session       *session.Manager
	api           *services.APIService
	auth          *services.AuthService
	personas      *services.PersonaService
	social        *services.SocialService
	notifications *services.NotificationService
	extract       *services.ExtractService
	dna           *services.DNAService
	public        *services.PublicService
	history       History
	httpClient    *http.Client
	logger        *log.Logger
	output        io.Writer
	after         func(time.Duration) <-chan time.Time
	openURL       func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Session    *session.Manager
	API        *services.APIService
	History    History
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// When a session is given it becomes the API client's credential hook.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(opts.Config.API.BaseURL, opts.HTTPClient,
			services.WithLimiter(services.NewLimiter(opts.Config.API)),
			services.WithUserAgent(opts.Config.API.UserAgent),
			services.WithLogger(shared.WithLogger(opts.Logger, "component", "api")),
		)
	}
	if opts.Session != nil {
		opts.API.SetAuthorizer(opts.Session)
	}

	return &Runner{
		config:        opts.Config,
		configPath:    opts.ConfigPath,
		session:       opts.Session,
		api:           opts.API,
		auth:          services.NewAuthService(opts.API),
		personas:      services.NewPersonaService(opts.API),
		social:        services.NewSocialService(opts.API),
		notifications: services.NewNotificationService(opts.API),
		extract:       services.NewExtractService(opts.API),
		dna:           services.NewDNAService(opts.API),
		public:        services.NewPublicService(opts.API),
		history:       opts.History,
		httpClient:    opts.HTTPClient,
		logger:        opts.Logger,
		output:        opts.Output,
		after:         time.After,
		openURL:       shared.OpenURL,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, personaCommand, socialCommand, notificationsCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireSession returns the session manager or an error when none was wired.
func (r *Runner) requireSession() (*session.Manager, error) {
	if r.session == nil {
		return nil, fmt.Errorf("%w: no session store; run 'persona setup database'", shared.ErrMissingConfig)
	}
	return r.session, nil
}

// newPoller builds a job poller from the configured intervals.
func (r *Runner) newPoller(progress chan<- tasks.ProgressUpdate) (*tasks.Poller, error) {
	sess, err := r.requireSession()
	if err != nil {
		return nil, err
	}
	return tasks.NewPoller(r.personas, sess,
		tasks.WithIntervals(r.config.Poller.Interval.Duration, r.config.Poller.RetryInterval.Duration),
		tasks.WithClock(r.after),
		tasks.WithProgress(progress),
		tasks.WithPollerLogger(shared.WithLogger(r.logger, "component", "poller")),
	), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("%s\n", ui.Rule())
	r.writePlain("%s\n", ui.Title(title))
	r.writePlain("%s\n", ui.Rule())
}
