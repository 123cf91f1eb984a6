package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/alexanderramin/scanflow/internal/access"
	"github.com/alexanderramin/scanflow/internal/cli"
	"github.com/alexanderramin/scanflow/internal/config"
	"github.com/alexanderramin/scanflow/internal/db"
	"github.com/alexanderramin/scanflow/internal/logging"
	"github.com/alexanderramin/scanflow/internal/repository"
	"github.com/alexanderramin/scanflow/internal/service"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
)

// envConfig names the config file when --config is not given.
const envConfig = "SCANFLOW_CONFIG"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cli.FriendlyError(err))
		os.Exit(1)
	}
}

func run(args []string) error {
	cfgManager, err := config.NewManager(configPath(args))
	if err != nil {
		return err
	}
	cfg := cfgManager.Get()

	logger, err := logging.NewFromConfig(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}

	graph, err := loadGraph(cfg.Stages)
	if err != nil {
		return err
	}

	database, err := db.OpenDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	taskRepo := repository.NewSQLiteTaskRepo(database)
	eventRepo := repository.NewSQLiteEventRepo(database)
	sectionRepo := repository.NewSQLiteSectionRepo(database)
	archiveRepo := repository.NewSQLiteArchiveRepo(database)
	actorRepo := repository.NewSQLiteActorRepo(database)

	// Wire unit of work; a file lock keeps several processes from
	// interleaving writes to one database.
	var uow db.UnitOfWork = db.NewSQLiteUnitOfWork(database)
	if cfg.Database.Lock && cfg.Database.Path != ":memory:" {
		uow = db.NewLockedUnitOfWork(uow, db.LockPath(cfg.Database.Path))
	}

	lang := cfg.CollationTag()
	observer := service.NewSlogUseCaseObserver(logging.NewComponentLogger(logger, "service"))

	gate := access.NewGate(actorRepo, accessPolicy(cfg))
	cfgManager.OnChange(func(c *config.Config) {
		gate.SetPolicy(accessPolicy(c))
	})
	if _, err := os.Stat(cfgManager.Path()); err == nil {
		cfgManager.Watch(logging.NewComponentLogger(logger, "config"))
	}

	app := &cli.App{
		Graph: graph,
		Pipeline: service.NewPipelineService(graph, taskRepo, eventRepo, archiveRepo, uow,
			service.WithCollation(lang),
			service.WithObserver(observer),
		),
		Sections:    service.NewSectionService(sectionRepo, lang),
		Archive:     service.NewArchiveService(archiveRepo, uow),
		Actors:      service.NewActorService(graph, actorRepo, eventRepo, uow),
		Reports:     service.NewReportService(sectionRepo, taskRepo, archiveRepo, lang),
		Import:      service.NewImportService(graph, uow),
		Gate:        gate,
		Config:      cfgManager,
		Logger:      logger,
		HistoryPath: cli.DefaultHistoryPath(cfg.Database.Path),
	}

	// Detect interactive terminal for shell-only entrypoint.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd(app)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// configPath finds --config before cobra parses anything, since the config
// decides how the commands are wired. SCANFLOW_CONFIG is the fallback.
func configPath(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			return v
		}
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv(envConfig)
}

func loadGraph(cfg config.Stages) (*stagegraph.Graph, error) {
	graph := stagegraph.Default()
	if cfg.GraphFile != "" {
		g, err := stagegraph.LoadFile(cfg.GraphFile)
		if err != nil {
			return nil, err
		}
		graph = g
	}
	if len(cfg.Labels) == 0 {
		return graph, nil
	}
	return graph.WithLabels(cfg.Labels)
}

func accessPolicy(c *config.Config) access.Policy {
	return access.Policy{Coordinators: c.Access.Coordinators, Enforce: c.Access.Enforce}
}
