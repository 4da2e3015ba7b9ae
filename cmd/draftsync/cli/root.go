// Package cli implements the draftsync commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/blogdraft/internal/adapters/clients"
	"github.com/jsamuelsen/blogdraft/internal/adapters/clients/acl"
	"github.com/jsamuelsen/blogdraft/internal/platform/config"
	"github.com/jsamuelsen/blogdraft/internal/platform/logging"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	profile  string
	baseURL  string
	logLevel string
}

// env is built once per invocation, before the command runs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	blogs  *acl.BlogClient
}

// NewRootCmd builds the draftsync command tree.
func NewRootCmd(version, commit string) *cobra.Command {
	var (
		opts globalOptions
		e    env
	)

	root := &cobra.Command{
		Use:   "draftsync",
		Short: "Write blog posts as local markdown files",
		Long: `draftsync keeps local markdown drafts in sync with the blog API.

A draft is a markdown file with optional YAML front matter holding the title,
tags and, once the post exists on the server, its id:

  ---
  title: Hello
  tags: [go, web]
  ---

  Body text.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.init(cmd.ErrOrStderr(), &opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.profile, "profile", profileFromEnv(), "configuration profile (configs/<profile>.yaml)")
	flags.StringVar(&opts.baseURL, "base-url", "", "blog API base URL (overrides services.blog.base_url)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(
		newWatchCmd(&e),
		newPublishCmd(&e),
		newPushCmd(&e),
		newListCmd(&e),
		newDeleteCmd(&e),
		newVersionCmd(version, commit),
	)

	return root
}

func profileFromEnv() string {
	if p := os.Getenv("APP_ENVIRONMENT"); p != "" {
		return p
	}

	return "local"
}

func (e *env) init(stderr io.Writer, opts *globalOptions) error {
	cfg, err := config.Load(opts.profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if opts.baseURL != "" {
		cfg.Services.Blog.BaseURL = opts.baseURL
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "draftsync",
		Version: cfg.App.Version,
	}, stderr)

	client, err := clients.New(clients.Config{
		BaseURL:     cfg.Services.Blog.BaseURL,
		ServiceName: cfg.Services.Blog.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		UserAgent:   "draftsync/" + cfg.App.Version,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating blog client: %w", err)
	}

	e.cfg = cfg
	e.logger = logger
	e.blogs = acl.NewBlogClient(client, cfg.Services.Blog.Name, logger)

	return nil
}

func newVersionCmd(version, commit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No config needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "draftsync %s (%s)\n", version, commit)
		},
	}
}

// publicMessage returns the author-facing text of err.
func publicMessage(err error) string {
	var pm interface{ PublicMessage() string }
	if errors.As(err, &pm) && pm.PublicMessage() != "" {
		return pm.PublicMessage()
	}

	return err.Error()
}

// syncWriter serializes writes from concurrent workers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.w, format, args...)
}
