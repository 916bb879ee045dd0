package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/openbooks-app/openbooks/internal/app"
	"github.com/openbooks-app/openbooks/internal/imports"
	"github.com/openbooks-app/openbooks/internal/ledger"
	"github.com/openbooks-app/openbooks/internal/org"
	"github.com/openbooks-app/openbooks/internal/platform/cache"
	"github.com/openbooks-app/openbooks/internal/platform/db"
	"github.com/openbooks-app/openbooks/internal/reports"
	"github.com/openbooks-app/openbooks/jobs"
)

const usage = `usage: openbooks <command> [flags]

commands:
  import-accounts  -org <id> -file <path>
  import-journal   -org <id> -file <path>
  trial-balance    -org <id> [-as-of YYYY-MM-DD] [-page N] [-per-page N] [-sort code|name|debit|credit] [-dir asc|desc]
  enqueue          -job ledger:integrity|reports:tb_warmup [-org <id>]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	var code int
	switch os.Args[1] {
	case "import-accounts":
		code = runImportAccounts(ctx, cfg, logger, os.Args[2:])
	case "import-journal":
		code = runImportJournal(ctx, cfg, logger, os.Args[2:])
	case "trial-balance":
		code = runTrialBalance(ctx, cfg, logger, os.Args[2:])
	case "enqueue":
		code = runEnqueue(ctx, cfg, logger, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		code = 2
	}
	os.Exit(code)
}

// services wires the shared dependency graph for the subcommands.
type services struct {
	imports *imports.Service
	reports *reports.Service
	close   func()
}

func buildServices(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*services, error) {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		redisClient = nil
	}

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportRepo := reports.NewRepository(pool)
	reportSvc := reports.NewService(reportRepo, reportCache, logger)

	ledgerRepo := ledger.NewRepository(pool)
	orgRepo := org.NewRepository(pool)
	importSvc := imports.NewService(ledgerRepo, orgRepo, reportCache, logger, cfg.ImportMaxRows)

	return &services{
		imports: importSvc,
		reports: reportSvc,
		close: func() {
			pool.Close()
			if redisClient != nil {
				_ = redisClient.Close()
			}
		},
	}, nil
}

func runImportAccounts(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("import-accounts", flag.ExitOnError)
	orgID := fs.Int64("org", 0, "organization id")
	path := fs.String("file", "", "accounts CSV path")
	_ = fs.Parse(args)
	if *orgID == 0 || *path == "" {
		fs.Usage()
		return 2
	}

	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup", slog.Any("error", err))
		return 1
	}
	defer svc.close()

	f, err := os.Open(*path)
	if err != nil {
		logger.Error("open file", slog.Any("error", err))
		return 1
	}
	defer f.Close()

	result, err := svc.imports.ImportAccountsCSV(ctx, *orgID, f)
	if err != nil {
		logger.Error("import accounts", slog.Any("error", err))
		return 1
	}
	fmt.Printf("imported %d accounts\n", result.Imported)
	for _, msg := range result.Errors {
		fmt.Printf("error: %s\n", msg)
	}
	if len(result.Errors) > 0 {
		return 1
	}
	return 0
}

func runImportJournal(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("import-journal", flag.ExitOnError)
	orgID := fs.Int64("org", 0, "organization id")
	path := fs.String("file", "", "journal CSV path")
	_ = fs.Parse(args)
	if *orgID == 0 || *path == "" {
		fs.Usage()
		return 2
	}

	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup", slog.Any("error", err))
		return 1
	}
	defer svc.close()

	f, err := os.Open(*path)
	if err != nil {
		logger.Error("open file", slog.Any("error", err))
		return 1
	}
	defer f.Close()

	result, err := svc.imports.ImportJournalCSV(ctx, *orgID, f, imports.Overrides{})
	if err != nil {
		logger.Error("import journal", slog.Any("error", err))
		return 1
	}
	fmt.Printf("format: %s, created %d entries\n", result.Format, result.EntriesCreated)
	for _, msg := range result.Errors {
		fmt.Printf("error: %s\n", msg)
	}
	if len(result.Errors) > 0 {
		return 1
	}
	return 0
}

func runTrialBalance(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("trial-balance", flag.ExitOnError)
	orgID := fs.Int64("org", 0, "organization id")
	asOf := fs.String("as-of", "", "inclusive as-of date (YYYY-MM-DD), default today")
	page := fs.Int("page", 1, "page number")
	perPage := fs.Int("per-page", 50, "rows per page (max 200)")
	sort := fs.String("sort", "code", "sort key: code, name, debit, credit")
	dir := fs.String("dir", "asc", "sort direction: asc or desc")
	_ = fs.Parse(args)
	if *orgID == 0 {
		fs.Usage()
		return 2
	}

	query := reports.TrialBalanceQuery{Page: *page, PerPage: *perPage, Sort: *sort, Dir: *dir}
	if *asOf != "" {
		t, err := time.Parse("2006-01-02", *asOf)
		if err != nil {
			logger.Error("parse as-of", slog.Any("error", err))
			return 2
		}
		query.AsOf = t
	}

	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup", slog.Any("error", err))
		return 1
	}
	defer svc.close()

	report, err := svc.reports.TrialBalance(ctx, *orgID, query)
	if err != nil {
		logger.Error("trial balance", slog.Any("error", err))
		return 1
	}

	fmt.Printf("trial balance as of %s (page %d/%d, %d accounts)\n",
		report.AsOf, report.CurrentPage, report.LastPage, report.Total)
	fmt.Printf("%-12s %-32s %-16s %14s %14s\n", "CODE", "NAME", "TYPE", "DEBIT", "CREDIT")
	for _, row := range report.Rows {
		fmt.Printf("%-12s %-32s %-16s %14s %14s\n",
			row.Code, row.Name, row.Type, row.Debit.StringFixed(2), row.Credit.StringFixed(2))
	}
	fmt.Printf("%-62s %14s %14s\n", "TOTAL",
		report.Totals.TotalDebit.StringFixed(2), report.Totals.TotalCredit.StringFixed(2))
	return 0
}

func runEnqueue(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	job := fs.String("job", "", "job type to enqueue")
	orgID := fs.Int64("org", 0, "organization id (0 = all)")
	_ = fs.Parse(args)

	client, err := jobs.NewClient(asynqRedisOpt(cfg))
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		return 1
	}
	defer client.Close()

	switch *job {
	case jobs.TaskTypeLedgerIntegrity:
		if _, err := client.EnqueueLedgerIntegrity(ctx, jobs.LedgerIntegrityPayload{OrganizationID: *orgID}); err != nil {
			logger.Error("enqueue", slog.Any("error", err))
			return 1
		}
	case jobs.TaskTypeTrialBalanceWarmup:
		if _, err := client.EnqueueTrialBalanceWarmup(ctx, jobs.TrialBalanceWarmupPayload{OrganizationID: *orgID}); err != nil {
			logger.Error("enqueue", slog.Any("error", err))
			return 1
		}
	default:
		fmt.Fprintf(os.Stderr, "unsupported job %q\n", *job)
		return 2
	}
	fmt.Printf("enqueued %s\n", *job)
	return 0
}

func asynqRedisOpt(cfg *app.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr}
}
