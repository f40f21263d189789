package commands

import (
	"errors"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rtp/internal/cli"
	"rtp/internal/command"
	"rtp/internal/config"
	"rtp/internal/discovery"
	"rtp/internal/domain"
	"rtp/internal/execution"
	"rtp/internal/logging"
	"rtp/internal/migration"
	"rtp/internal/parser"
	"rtp/internal/storage"
	"rtp/internal/target"
	"rtp/internal/ui"
)

// ErrTestsFailed is returned when the tests ran and at least one failed.
var ErrTestsFailed = errors.New("tests failed")

// Commands holds all CLI commands
type Commands struct {
	Method  *LocateCommand
	Class   *LocateCommand
	File    *LocateCommand
	Run     *RunCommand
	List    *ListCommand
	Migrate *MigrateCommand
	Faills  *FaillsCommand
	Watch   *WatchCommand
}

// NewCommands creates all commands with dependencies
func NewCommands(cfg *config.Config) *Commands {
	resolver := target.NewDefaultResolver()
	builder := command.NewBuilder(cfg)
	runner := execution.NewRunner(cfg, builder)
	rubyParser := parser.NewRubyParser()
	scanner := discovery.NewScanner(cfg.PathsToIgnore, cfg.TestFilePatterns)
	filter := discovery.NewFilter()
	executor := execution.NewWorkerPool(cfg, runner, execution.NewRoundRobinScheduler(), rubyParser)
	jsonStorage := storage.NewJSONStorage(cfg)
	formatter := ui.NewFormatter(cfg, discovery.NewCaseFinder(resolver))
	migrator := migration.NewRailsMigrator(cfg, migration.NewDatabaseManager(cfg), runner)
	migrator.SetProgress(func(total int) migration.Progress {
		return ui.NewMigrationProgressBar(total)
	})
	errorViewer := ui.NewErrorViewer(jsonStorage, builder)

	locate := func(scope domain.Scope) *LocateCommand {
		return NewLocateCommand(cfg, scope, resolver, builder, runner, rubyParser, jsonStorage, formatter)
	}

	return &Commands{
		Method:  locate(domain.ScopeMethod),
		Class:   locate(domain.ScopeClass),
		File:    locate(domain.ScopeFile),
		Run:     NewRunCommand(cfg, scanner, filter, executor, rubyParser, jsonStorage, formatter, migrator, errorViewer),
		List:    NewListCommand(cfg, scanner, filter, formatter, jsonStorage),
		Migrate: NewMigrateCommand(cfg, migrator),
		Faills:  NewFaillsCommand(cfg, jsonStorage, errorViewer),
		Watch:   NewWatchCommand(cfg, locate(domain.ScopeMethod)),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	rootCmd.PersistentFlags().StringVarP(&flags.ProjectPath, "project", "C", ".", "Project root containing .rtp.toml, Gemfile and .env")
	rootCmd.PersistentFlags().StringVar(&flags.Framework, "framework", "", "Test framework: testunit, minitest or rails (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")

	// Every command loads the project config and applies its flags after parsing.
	prepare := func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(flags.ProjectPath)
		if err != nil {
			return err
		}
		*cfg = *loaded
		cfg.ApplyFlags(flags.ToConfigFlags())
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := logging.Setup(os.Stderr, cfg.LogLevel); err != nil {
			return err
		}
		log.Debug().Str("project", cfg.ProjectPath).Str("framework", cfg.Framework).Int("processors", cfg.Processors).Msg("Loaded config")
		return nil
	}

	locateFlags := func(cmd *cobra.Command) {
		cmd.Flags().IntVar(&flags.Offset, "offset", -1, "Byte offset of the cursor, overrides the line")
		cmd.Flags().BoolVarP(&flags.DryRun, "dry-run", "n", false, "Print the command without running it")
	}

	methodCmd := &cobra.Command{
		Use:     "method <file[:line]>",
		Short:   "Run the test method at a position",
		Long:    "Find the nearest test method at or before the cursor and run it",
		Args:    cobra.ExactArgs(1),
		RunE:    c.Method.Execute,
		PreRunE: prepare,
	}
	locateFlags(methodCmd)
	rootCmd.AddCommand(methodCmd)

	classCmd := &cobra.Command{
		Use:     "class <file[:line]>",
		Short:   "Run the test class at a position",
		Long:    "Find the nearest test class at or before the cursor and run all of its tests",
		Args:    cobra.ExactArgs(1),
		RunE:    c.Class.Execute,
		PreRunE: prepare,
	}
	locateFlags(classCmd)
	rootCmd.AddCommand(classCmd)

	fileCmd := &cobra.Command{
		Use:     "file <file>",
		Short:   "Run a whole test file",
		Args:    cobra.ExactArgs(1),
		RunE:    c.File.Execute,
		PreRunE: prepare,
	}
	locateFlags(fileCmd)
	rootCmd.AddCommand(fileCmd)

	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Run Ruby tests in parallel",
		Long:    "Discover and execute test files using parallel workers",
		RunE:    c.Run.Execute,
		PreRunE: prepare,
	}
	runCmd.Flags().IntVarP(&flags.Processors, "processors", "p", 0, "Number of processors to use (default from config)")
	runCmd.Flags().BoolVarP(&flags.Migrate, "migrate", "m", false, "Prepare worker databases before executing tests")
	runCmd.Flags().BoolVar(&flags.NoFresh, "no-fresh", false, "Only run pending migrations when preparing databases")
	runCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Path to the folder where test detection should start")
	runCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter tests by file name (supports wildcards, e.g. '*user_test.rb' or '*payment*')")
	runCmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false, "Stop on first test failure")
	runCmd.Flags().BoolVar(&flags.OnlyFailed, "failed", false, "Run only test files that failed in the last run")
	runCmd.Flags().BoolVar(&flags.RerunFailures, "rerun-failures", false, "After running all tests, rerun failed files once and save that result")
	runCmd.Flags().BoolVar(&flags.OpenFaills, "open-faills", false, "Open the faills viewer when the run finishes with failures")
	rootCmd.AddCommand(runCmd)

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List discovered tests",
		Long:    "Scan and list test files without executing them",
		RunE:    c.List.Execute,
		PreRunE: prepare,
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter tests by file name (supports wildcards, e.g. '*user_test.rb' or '*payment*')")
	listCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Path to the folder where test detection should start")
	listCmd.Flags().BoolVarP(&flags.TestCases, "test-cases", "c", false, "List the test methods of each file")
	rootCmd.AddCommand(listCmd)

	migrateCmd := &cobra.Command{
		Use:     "migrate",
		Short:   "Prepare the test database of every worker",
		Long:    "Create one database per worker and load the schema into each in parallel",
		RunE:    c.Migrate.Execute,
		PreRunE: prepare,
	}
	migrateCmd.Flags().IntVarP(&flags.Processors, "processors", "p", 0, "Number of workers to prepare (default from config)")
	migrateCmd.Flags().BoolVar(&flags.NoFresh, "no-fresh", false, "Only run pending migrations instead of reloading the schema")
	rootCmd.AddCommand(migrateCmd)

	faillsCmd := &cobra.Command{
		Use:     "faills",
		Short:   "View test failures interactively",
		Long:    "Display test failures from the last test run in an interactive viewer",
		RunE:    c.Faills.Execute,
		PreRunE: prepare,
	}
	rootCmd.AddCommand(faillsCmd)

	watchCmd := &cobra.Command{
		Use:     "watch <file[:line]>",
		Short:   "Rerun the test at a position whenever Ruby files change",
		Args:    cobra.ExactArgs(1),
		RunE:    c.Watch.Execute,
		PreRunE: prepare,
	}
	watchCmd.Flags().StringVarP(&flags.Scope, "scope", "s", "method", "What to run: method, class or file")
	watchCmd.Flags().IntVar(&flags.Offset, "offset", -1, "Byte offset of the cursor, overrides the line")
	rootCmd.AddCommand(watchCmd)
}
