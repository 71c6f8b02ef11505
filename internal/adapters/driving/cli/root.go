// Package cli implements the coursedex operator commands with cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
	"github.com/custodia-labs/coursedex/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=v1.2.3".
var version = "dev"

// annotationNoServices marks commands that run without the service graph.
const annotationNoServices = "no-services"

// Services holds the core services the commands drive.
type Services struct {
	Indexer   driving.Indexer
	Retriever driving.Retriever
	Importer  driving.Importer
	Queue     driving.QueueService

	// NewWorkerPool creates a pool; a positive count overrides the config.
	NewWorkerPool func(count int) driving.WorkerPool

	// Close releases the underlying connections. May be nil.
	Close func() error
}

// Builder constructs the services from the config file path.
type Builder func(ctx context.Context, configPath string) (*Services, error)

var (
	builder Builder

	indexerService   driving.Indexer
	retrieverService driving.Retriever
	importerService  driving.Importer
	queueService     driving.QueueService
	newWorkerPool    func(count int) driving.WorkerPool
	closeServices    func() error
)

// Global flags.
var (
	configPath string
	verbose    bool
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "coursedex",
	Short: "Index and search learning content",
	Long: `coursedex turns books, video transcripts and course lessons into
embedded chunks and serves semantic similarity search over them.

Content is processed directly (process) or through the background
queue (enqueue, worker).`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.coursedex/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
}

// SetBuilder sets how the services are constructed on first use.
func SetBuilder(b Builder) {
	builder = b
}

// SetServices installs already constructed services.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	indexerService = s.Indexer
	retrieverService = s.Retriever
	importerService = s.Importer
	queueService = s.Queue
	newWorkerPool = s.NewWorkerPool
	closeServices = s.Close
}

// Execute runs the root command, cancelling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() { _ = teardown(nil, nil) }()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	switch logFormat {
	case string(logger.FormatText), string(logger.FormatJSON):
		logger.SetFormat(logger.Format(logFormat))
	default:
		return fmt.Errorf("unknown log format %q", logFormat)
	}

	if cmd.Annotations[annotationNoServices] != "" || builder == nil || indexerService != nil {
		return nil
	}
	s, err := builder(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	SetServices(s)
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// parseRef reads "<type> <id>" positional arguments.
func parseRef(args []string) (domain.ContentRef, error) {
	if len(args) != 2 {
		return domain.ContentRef{}, errors.New("expected <type> <id>")
	}
	t, err := domain.ParseContentType(args[0])
	if err != nil {
		return domain.ContentRef{}, err
	}
	ref := domain.ContentRef{ID: args[1], Type: t}
	return ref, ref.Validate()
}
