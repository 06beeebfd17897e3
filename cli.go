package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/giygas/spl-labels-api/config"
	"github.com/giygas/spl-labels-api/data"
	"github.com/giygas/spl-labels-api/handlers"
	"github.com/giygas/spl-labels-api/health"
	"github.com/giygas/spl-labels-api/interfaces"
	"github.com/giygas/spl-labels-api/loader"
	"github.com/giygas/spl-labels-api/logging"
	"github.com/giygas/spl-labels-api/scheduler"
	"github.com/giygas/spl-labels-api/server"
	"github.com/giygas/spl-labels-api/splparser"
	"github.com/giygas/spl-labels-api/splparser/entities"
	"github.com/giygas/spl-labels-api/validation"
)

// errInvalidDocument makes validate exit non-zero once the summary is printed
var errInvalidDocument = errors.New("document is not valid")

var (
	verbose        bool
	strictIdentity bool
	maxDepth       int
)

var rootCmd = &cobra.Command{
	Use:           "spl-labels-api",
	Short:         "Parse, validate and serve SPL drug labels",
	Long:          `Ingests HL7 SPL drug label documents and serves them over an HTTP API. Without a subcommand the API server is started.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		// .env is optional, the environment wins anyway
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(cmd.ErrOrStderr(), "failed to read .env:", err)
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and the ingestion scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse an SPL document and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate an SPL document and print the summary",
	Long:  `Parses and validates an SPL document. Exits with a non-zero status when the document has validation errors.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")

	for _, cmd := range []*cobra.Command{parseCmd, validateCmd} {
		cmd.Flags().BoolVar(&strictIdentity, "strict", false, "Treat missing setId and versionNumber as fatal")
		cmd.Flags().IntVar(&maxDepth, "max-depth", splparser.DefaultMaxSectionDepth, "Maximum subsection depth")
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(validateCmd)
}

// cliParser builds a parser for one-off commands, logging only errors to w
func cliParser(w io.Writer, validator interfaces.DocumentValidator) *splparser.Parser {
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	return splparser.NewParser(
		splparser.WithOptions(splparser.Options{
			MaxSectionDepth: maxDepth,
			StrictIdentity:  strictIdentity,
		}),
		splparser.WithLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))),
		splparser.WithValidator(validator),
	)
}

func parseFile(cmd *cobra.Command, path string) (*entities.ParseResult, error) {
	src, err := loader.NewFileLoader("", "").LoadFile(path)
	if err != nil {
		return nil, err
	}
	parser := cliParser(cmd.ErrOrStderr(), validation.NewDocumentValidator())
	return parser.Parse(src.Content)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runParse(cmd *cobra.Command, args []string) error {
	result, err := parseFile(cmd, args[0])
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runValidate(cmd *cobra.Command, args []string) error {
	result, err := parseFile(cmd, args[0])
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	validator := validation.NewDocumentValidator()
	summary := validator.Validate(result.Document).Summary()
	if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
		return err
	}
	if !summary.IsValid {
		return errInvalidDocument
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logging.InitLoggerWithOptions(logging.Options{
		Dir:            "logs",
		Env:            cfg.Env,
		Level:          level,
		Verbose:        verbose,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer func() {
		if err := logging.Close(); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "failed to close log file:", err)
		}
	}()

	validator := validation.NewDocumentValidator()
	parser := splparser.NewParser(
		splparser.WithOptions(splparser.Options{
			MaxSectionDepth:   cfg.MaxSectionDepth,
			StrictIdentity:    cfg.StrictIdentity,
			SubstanceCacheTTL: cfg.SubstanceCacheTTL,
		}),
		splparser.WithLogger(logging.Logger()),
		splparser.WithValidator(validator),
	)

	store := data.NewDocumentContainer()
	store.SetServerStartTime(time.Now())

	watchDir := ""
	if cfg.WatchDataDir {
		watchDir = cfg.DataDir
	}
	sched := scheduler.NewScheduler(store, loader.NewFileLoader(cfg.DataDir, cfg.ArchiveURL), parser, validator, scheduler.Options{
		Interval:     cfg.ScanInterval,
		Workers:      cfg.IngestWorkers,
		ParseTimeout: time.Duration(cfg.ParseTimeoutSeconds) * time.Second,
		WatchDir:     watchDir,
	})

	handler := handlers.NewHTTPHandler(store, parser, validator, parser.Substances(),
		health.NewHealthChecker(store, cfg.ScanInterval), cfg.MaxRequestBody)
	srv := server.NewServer(cfg, handler)

	// The first ingestion can take a while, /health reports "starting" meanwhile
	go func() {
		if err := sched.Start(); err != nil {
			logging.Error("Scheduler failed to start", "error", err)
		}
	}()
	defer sched.Stop()

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logging.Error("Server failed to start", "error", err)
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
