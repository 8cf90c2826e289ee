package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fbz-tec/dbxport/core/config"
	"github.com/fbz-tec/dbxport/core/db"
	"github.com/fbz-tec/dbxport/core/exporters"
	"github.com/fbz-tec/dbxport/core/formatters"
	"github.com/fbz-tec/dbxport/core/validation"
	"github.com/fbz-tec/dbxport/internal/logger"
	"github.com/fbz-tec/dbxport/internal/version"
	"github.com/spf13/cobra"
)

// DefaultOutputRoot receives <table>/<table>.csv and the run logs.
const DefaultOutputRoot = "./output"

var (
	sqlQuery     string
	sqlFile      string
	tableName    string
	indexColumn  string
	repColumn    string
	outputRoot   string
	delimiter    string
	compression  string
	timeFormat   string
	timeZone     string
	lenientCount bool
	noProgress   bool
	verbose      bool
	quiet        bool
	// Connection flags
	dbDriver   string
	dbHost     string
	dbPort     int
	dbUser     string
	dbName     string
	dbPassword string
	connString string

	delimByte byte
)

var rootCmd = &cobra.Command{
	Use:   "dbxport",
	Short: "Stream SQL query results into delimited text files",
	Long: `Export the result of a SQL query into <output>/<table>/<table>.csv.

Rows are streamed, never held in memory. Every value is rendered from its
declared column type, progress is reported against a row estimate taken from
COUNT(*) or MAX(<index>), and each run is recorded in <output>/logs.log with
per-table failures in <output>/failed.log.

Supported databases: MySQL (default), PostgreSQL, SQLite.`,
	Example: `  # Export a table through an inline query
  dbxport -d shop -t users -s "SELECT * FROM users"

  # Estimate progress from the max id and strip '|' from the name column
  dbxport -d shop -t users -s "SELECT id, name FROM users" -i id -r name

  # Tab separated, gzip compressed, PostgreSQL
  dbxport --driver postgres -d shop -t orders -F orders.sql -D '\t' -z gzip

  # Several tables from a job file
  dbxport batch jobs.yaml -d shop`,
	PreRunE:       validateExportParams,
	RunE:          runExport,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.PersistentFlags().SortFlags = false

	// Connection flags, shared with the batch command
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbDriver, "driver", "", "Database driver: mysql, postgres, sqlite (overrides .env and environment)")
	pf.StringVarP(&dbHost, "host", "H", "", "Database host (overrides .env and environment)")
	pf.IntVarP(&dbPort, "port", "P", 0, "Database port, defaults to 3306 for mysql and 5432 for postgres")
	pf.StringVarP(&dbUser, "user", "u", "", "Database username (overrides .env and environment)")
	pf.StringVarP(&dbName, "database", "d", "", "Database name, or file path for sqlite (overrides .env and environment)")
	pf.StringVarP(&dbPassword, "password", "p", "", "Database password (overrides .env and environment)")
	pf.StringVar(&connString, "dsn", "", "Full driver connection string, overrides the connection flags above")

	// OUTPUT - where and how to write, shared with the batch command
	pf.StringVarP(&outputRoot, "output", "o", DefaultOutputRoot, "Output root directory")
	pf.StringVarP(&delimiter, "delimiter", "D", "|", `Field delimiter, a single character (use \t for tab)`)
	pf.StringVarP(&compression, "compression", "z", "none", "Compression to apply to output files (none, gzip, zip, zstd, lz4)")
	pf.StringVarP(&timeFormat, "time-format", "T", formatters.DefaultTimeFormat, "Time format for DATETIME/TIMESTAMP columns (e.g. yyyy-MM-ddTHH:mm:ss.SSS)")
	pf.StringVarP(&timeZone, "time-zone", "Z", "", "Time zone for DATETIME/TIMESTAMP columns (e.g. UTC, Europe/Paris). Defaults to local time zone.")
	pf.BoolVar(&lenientCount, "lenient-count", false, "Continue with an indeterminate progress bar when the row estimate fails")
	pf.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output with detailed information")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Enable quiet mode: only display error messages")

	// QUERY INPUT - what to export
	rootCmd.Flags().StringVarP(&tableName, "table", "t", "", "Table name, used for the row estimate and output naming (required)")
	rootCmd.Flags().StringVarP(&sqlQuery, "sql", "s", "", "SQL query to execute")
	rootCmd.Flags().StringVarP(&sqlFile, "sqlfile", "F", "", "Path to SQL file containing the query")
	rootCmd.Flags().StringVarP(&indexColumn, "index", "i", "", "Unique index column; its MAX() replaces COUNT(*) as the row estimate")
	rootCmd.Flags().StringVarP(&repColumn, "repcol", "r", "", "Column whose values have the delimiter removed")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(batchCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(cmd *cobra.Command, args []string) error {

	logger.Debug("Initializing dbxport execution environment")
	logger.Debug("Version: %s, Build: %s, Commit: %s", version.AppVersion, version.BuildTime, version.GitCommit)

	query := sqlQuery
	if sqlFile != "" {
		logger.Debug("Reading SQL from file: %s", sqlFile)
		content, err := readSQLFromFile(sqlFile)
		if err != nil {
			return fmt.Errorf("error reading SQL file: %w", err)
		}
		query = content
		logger.Debug("SQL query loaded from file (%d characters)", len(query))
	} else {
		logger.Debug("Using inline SQL query (%d characters)", len(query))
	}

	store, err := connect(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runLog, err := logger.OpenRunLog(outputRoot)
	if err != nil {
		return err
	}
	defer runLog.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter := exporters.NewDelimitedExporter(store, runLog)
	outcome, err := exporter.Export(ctx, exportOptions(tableName, query, indexColumn, repColumn))
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if err := runLog.Checkpoint("Download done."); err != nil {
		return err
	}

	return handleExportResult(outcome)
}

// connect builds the connection settings from .env, environment and flags,
// then opens and pings the database.
func connect(cmd *cobra.Command) (*db.SQLStore, error) {
	logger.Debug("Loading configuration from environment and flags")
	cfg := config.LoadConfig()

	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.DBDriver = dbDriver
		logger.Debug("Overriding DB driver from flag: %s", dbDriver)
	}
	if flags.Changed("host") {
		cfg.DBHost = dbHost
		logger.Debug("Overriding DB host from flag: %s", dbHost)
	}
	if flags.Changed("port") {
		cfg.DBPort = dbPort
		logger.Debug("Overriding DB port from flag: %d", dbPort)
	}
	if flags.Changed("user") {
		cfg.DBUser = dbUser
		logger.Debug("Overriding DB user from flag: %s", dbUser)
	}
	if flags.Changed("database") {
		cfg.DBName = dbName
		logger.Debug("Overriding DB name from flag: %s", dbName)
	}
	if flags.Changed("password") {
		cfg.DBPass = dbPassword
		logger.Debug("Overriding DB password from flag (hidden)")
	}
	if connString != "" {
		cfg.DSN = connString
		logger.Debug("Using connection string from --dsn flag")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	logger.Debug("Configuration loaded: driver=%s host=%s port=%d database=%s user=%s",
		cfg.DBDriver, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser)

	store := db.NewSQLStore(cfg.DBDriver, cfg.GetConnectionString())
	if err := store.Connect(); err != nil {
		return nil, err
	}
	return store, nil
}

func exportOptions(table, query, index, repcol string) exporters.ExportOptions {
	return exporters.ExportOptions{
		TableName:    table,
		SQL:          query,
		IndexColumn:  index,
		RepColumn:    repcol,
		OutputRoot:   outputRoot,
		Delimiter:    delimByte,
		Compression:  compression,
		TimeFormat:   timeFormat,
		TimeZone:     timeZone,
		LenientCount: lenientCount,
		ProgressBar:  !noProgress && !quiet,
	}
}

// validateCommonParams checks the flags shared by every export command and
// applies the console verbosity.
func validateCommonParams() error {

	if verbose && quiet {
		return fmt.Errorf("error: Cannot use --verbose and --quiet flags together")
	}

	if quiet {
		logger.SetQuiet(true)
		logger.SetVerbose(false)
	} else {
		logger.SetVerbose(verbose)
		if verbose {
			logger.Debug("Verbose mode enabled")
		}
	}

	d, err := validation.ParseDelimiter(delimiter)
	if err != nil {
		return fmt.Errorf("error: Invalid delimiter: %w", err)
	}
	delimByte = d

	compression = strings.ToLower(strings.TrimSpace(compression))
	if compression == "" {
		compression = "none"
	}
	if err := validation.ValidateCompression(compression); err != nil {
		return fmt.Errorf("error: %w", err)
	}

	if strings.TrimSpace(outputRoot) == "" {
		return fmt.Errorf("error: --output cannot be empty")
	}

	if timeFormat != "" {
		if err := validation.ValidateTimeFormat(timeFormat); err != nil {
			return fmt.Errorf("error: Invalid time format '%s'. Use format like 'yyyy-MM-dd HH:mm:ss'", timeFormat)
		}
	}

	if timeZone != "" {
		if err := validation.ValidateTimeZone(timeZone); err != nil {
			return fmt.Errorf("error: Invalid timezone '%s'. Use format like 'UTC' or 'Europe/Paris'", timeZone)
		}
	}

	return nil
}

func validateExportParams(cmd *cobra.Command, args []string) error {
	logger.Debug("Validating export parameters")

	if err := validateCommonParams(); err != nil {
		return err
	}

	if sqlQuery == "" && sqlFile == "" {
		return fmt.Errorf("error: Either --sql or --sqlfile must be provided")
	}

	if sqlQuery != "" && sqlFile != "" {
		return fmt.Errorf("error: Cannot use both --sql and --sqlfile at the same time")
	}

	if err := validateJobParams(tableName, indexColumn, repColumn); err != nil {
		return err
	}

	logger.Debug("Export parameters validated successfully")
	return nil
}

func validateJobParams(table, index, repcol string) error {
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("error: --table (-t) is required")
	}
	if err := validation.ValidateTableName(table); err != nil {
		return fmt.Errorf("error: %w", err)
	}
	if err := validation.ValidateColumnName(index); err != nil {
		return fmt.Errorf("error: --index: %w", err)
	}
	if repcol != "" && strings.TrimSpace(repcol) == "" {
		return fmt.Errorf("error: --repcol cannot be blank")
	}
	return nil
}

func readSQLFromFile(filepath string) (string, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return "", fmt.Errorf("unable to read file: %w", err)
	}
	return string(content), nil
}

func handleExportResult(outcome exporters.Outcome) error {
	switch {
	case outcome.Failed():
		// already recorded in failed.log; a table failure does not fail the run
		logger.Warn("Export of %s failed, see %s", outcome.Table, logger.FailedLogFile)

	case outcome.Interrupted:
		return fmt.Errorf("export interrupted after %d rows (partial file kept at %s): %w",
			outcome.RowsWritten, outcome.OutputPath, context.Canceled)

	case outcome.RowsWritten == 0:
		logger.Warn("Query returned 0 rows. File created at %s but contains no data rows", outcome.OutputPath)

	default:
		logger.Success("Export completed: %d rows -> %s", outcome.RowsWritten, outcome.OutputPath)
	}

	return nil
}

// isInterrupted reports whether err comes from a cancelled run.
func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
