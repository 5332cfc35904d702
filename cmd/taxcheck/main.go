package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/config"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/database"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/logger"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/report"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/repository"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/service"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/verification"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const version = "1.0.0"

const usage = `Integration QA Tax Calculator - order tax verification tool

Usage:
  taxcheck verify-order --order-id ID [--env staging|production] [--precision 5] [--tax-view basic|full|failures] [--xlsx FILE] [--json] [--log-file FILE]
  taxcheck export --order-id ID --out FILE [--env staging|production] [--precision 5]
  taxcheck import-orders --file FILE [--env staging|production]
  taxcheck --version
`

const (
	exitOK       = 0
	exitFailure  = 1
	exitFindings = 2
	exitUsage    = 64
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "verify-order":
		return verifyOrder(ctx, args[1:], stdout, stderr)
	case "export":
		return exportOrder(ctx, args[1:], stdout, stderr)
	case "import-orders":
		return importOrders(ctx, args[1:], stdout, stderr)
	case "--version", "version":
		fmt.Fprintf(stdout, "Integration QA Tax Calculator %s\n", version)
		return exitOK
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}
}

// commonFlags are shared by every subcommand that touches the order store.
type commonFlags struct {
	env     string
	verbose bool
	logFile string
}

func (c *commonFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&c.env, "env", config.EnvStaging, "database environment: staging, production, stg or prod")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	fs.StringVar(&c.logFile, "log-file", "", "also append logs to this file")
}

type session struct {
	cfg    config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func (c *commonFlags) open(stderr io.Writer) (*session, int) {
	config.LoadEnvFiles()

	cfg, err := config.Load(c.env)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, exitUsage
	}

	level := cfg.LogLevel
	if c.verbose {
		level = "debug"
	}
	// stdout carries the report; logs stay on stderr
	sinks := []string{"stderr"}
	if c.logFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.logFile), 0o755); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return nil, exitFailure
		}
		sinks = append(sinks, c.logFile)
	}
	zl, err := logger.New(logger.Options{Level: level, Format: "console", OutputPaths: sinks})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, exitFailure
	}

	db, err := database.NewConnection(cfg.DBDriver, cfg.DatabaseURL, cfg.DatabaseName, zl)
	if err != nil {
		zl.Error("database connection failed", zap.String("env", cfg.AppEnv), zap.Error(err))
		return nil, exitFailure
	}
	return &session{cfg: cfg, logger: zl, db: db}, exitOK
}

func (rt *session) verificationService() (service.TaxVerificationService, error) {
	tolerances, err := config.LoadTolerances(rt.cfg.ToleranceFile, rt.logger)
	if err != nil {
		return nil, err
	}
	return service.NewTaxVerificationService(
		repository.NewOrderRepository(rt.db),
		repository.NewAuditRepository(rt.db),
		tolerances,
		nil,
		1,
		rt.logger,
	), nil
}

func (rt *session) verify(ctx context.Context, orderID string, precision int, stderr io.Writer) (*verification.Result, int) {
	svc, err := rt.verificationService()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, exitFailure
	}

	rt.logger.Info("verifying order", zap.String("order_id", orderID), zap.String("env", rt.cfg.AppEnv))
	resp, err := svc.VerifyOrderByID(ctx, orderID, service.VerifyOptions{Precision: precision})
	switch {
	case err == nil:
		return resp.Result, exitOK
	case errors.Is(err, verification.ErrNoTaxAssignment):
		fmt.Fprintf(stderr, "\nTAX ASSIGNMENT ERROR\n%v\n", err)
	case errors.Is(err, verification.ErrInvalidPrecision):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, exitUsage
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return nil, exitFailure
}

func verifyOrder(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("verify-order", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		common    commonFlags
		orderID   string
		precision int
		taxView   string
		xlsxPath  string
		asJSON    bool
	)
	common.bind(fs)
	fs.StringVar(&orderID, "order-id", "", "internal id of the order to verify (required)")
	fs.IntVar(&precision, "precision", verification.DefaultPrecision, "decimal places used by the tax formulas, 2 to 8")
	fs.StringVar(&taxView, "tax-view", string(report.ViewBasic), "report detail: basic, full or failures")
	fs.StringVar(&xlsxPath, "xlsx", "", "also write the findings to this XLSX file")
	fs.BoolVar(&asJSON, "json", false, "print the result as JSON instead of the text report")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if orderID == "" {
		fmt.Fprintln(stderr, "Error: --order-id is required")
		return exitUsage
	}
	view, err := report.ParseView(taxView)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	rt, code := common.open(stderr)
	if rt == nil {
		return code
	}
	defer func() { _ = rt.logger.Sync() }()

	res, code := rt.verify(ctx, orderID, precision, stderr)
	if res == nil {
		return code
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(res)
	} else {
		err = report.Render(stdout, view, res)
	}
	if err != nil {
		rt.logger.Error("failed to write report", zap.Error(err))
		return exitFailure
	}

	if xlsxPath != "" {
		if err := writeXLSX(xlsxPath, res); err != nil {
			rt.logger.Error("failed to export xlsx", zap.String("path", xlsxPath), zap.Error(err))
			return exitFailure
		}
		rt.logger.Info("xlsx written", zap.String("path", xlsxPath))
	}

	if !res.IsClean() {
		return exitFindings
	}
	return exitOK
}

func exportOrder(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		common    commonFlags
		orderID   string
		precision int
		out       string
	)
	common.bind(fs)
	fs.StringVar(&orderID, "order-id", "", "internal id of the order to export (required)")
	fs.IntVar(&precision, "precision", verification.DefaultPrecision, "decimal places used by the tax formulas, 2 to 8")
	fs.StringVarP(&out, "out", "o", "", "XLSX file to write (required)")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if orderID == "" || out == "" {
		fmt.Fprintln(stderr, "Error: --order-id and --out are required")
		return exitUsage
	}

	rt, code := common.open(stderr)
	if rt == nil {
		return code
	}
	defer func() { _ = rt.logger.Sync() }()

	res, code := rt.verify(ctx, orderID, precision, stderr)
	if res == nil {
		return code
	}
	if err := writeXLSX(out, res); err != nil {
		rt.logger.Error("failed to export xlsx", zap.String("path", out), zap.Error(err))
		return exitFailure
	}
	fmt.Fprintf(stdout, "Exported %s to %s\n", res.OrderID, out)
	return exitOK
}

func importOrders(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("import-orders", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		common commonFlags
		file   string
	)
	common.bind(fs)
	fs.StringVarP(&file, "file", "f", "", "JSON file holding one order document or an array of them (required)")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if file == "" {
		fmt.Fprintln(stderr, "Error: --file is required")
		return exitUsage
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	rt, code := common.open(stderr)
	if rt == nil {
		return code
	}
	defer func() { _ = rt.logger.Sync() }()

	svc := service.NewOrderImportService(
		repository.NewOrderRepository(rt.db),
		repository.NewAuditRepository(rt.db),
		repository.NewTransactionManager(rt.db),
		rt.logger,
	)
	res, err := svc.ImportDocuments(ctx, raw, "")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	fmt.Fprintf(stdout, "Imported %d orders (%d inserted, %d updated)\n", len(res.Orders), res.Inserted, res.Updated)
	for _, o := range res.Orders {
		state := "updated"
		if o.Created {
			state = "inserted"
		}
		fmt.Fprintf(stdout, "  %s  %s\n", o.ExternalID, state)
	}
	return exitOK
}

func writeXLSX(path string, res *verification.Result) error {
	data, err := report.BuildXLSX(res)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
