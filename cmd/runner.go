package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/tasks"
)

// Ledger records and lists submit attempts (repositories.SubmissionRepository).
type Ledger interface {
	tasks.Recorder
	List(criteria map[string]any) ([]*models.Submission, error)
}

// CacheStore lists and evicts locally cached catalog rows (repositories.CatalogItemRepository).
type CacheStore interface {
	List(criteria map[string]any) ([]*models.CachedItem, error)
	Delete(id string) error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	catalog    services.Catalog
	uploader   services.Uploader
	ledger     Ledger
	cache      tasks.ItemCacher
	cached     CacheStore
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	tty        bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config       *shared.Config
	ConfigPath   string
	API          *services.APIService
	Catalog      services.Catalog
	Uploader     services.Uploader
	Ledger       Ledger
	Cache        tasks.ItemCacher
	CatalogItems CacheStore
	HTTPClient   *http.Client
	Logger       *log.Logger
	Output       io.Writer
}

// NewRunner creates a new Runner with the provided configuration
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

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		catalog:    opts.Catalog,
		uploader:   opts.Uploader,
		ledger:     opts.Ledger,
		cache:      opts.Cache,
		cached:     opts.CatalogItems,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		tty:        isTerminal(opts.Output),
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	if l != nil {
		r.logger = l
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, catalogCommand, cacheCommand, uploadCommand, competitionCommand,
		ticketsCommand, profileCommand, historyCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	keepCommas(commands)
	return commands
}

// keepCommas stops slice flags splitting on "," at every level. cli resets the
// separator setting from each command it runs, so the root flag alone is not enough.
func keepCommas(commands []*cli.Command) {
	for _, c := range commands {
		c.DisableSliceFlagSeparator = true
		keepCommas(c.Commands)
	}
}

// saveToken stores the bearer token in memory and, when a config path is known, on disk.
func (r *Runner) saveToken(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: token cannot be empty", shared.ErrMissingCredentials)
	}

	r.config.API.Token = token.AccessToken
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveToken(r.configPath, token.AccessToken); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
