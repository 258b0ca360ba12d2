package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/NirdeshGothania/stackit/internal/adapter/postgres"
	"github.com/NirdeshGothania/stackit/internal/app"
	"github.com/NirdeshGothania/stackit/internal/domain"
	"github.com/NirdeshGothania/stackit/internal/platform/logging"
)

// exitDrift is returned when drift was found and left in place, so cron jobs and CI can alert.
const exitDrift = 2

func main() {
	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		repair      = flag.Bool("repair", false, "Repair detected drift")
		dryRun      = flag.Bool("dry-run", false, "Report what -repair would fix without writing")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
		timeout     = flag.Duration("timeout", 5*time.Minute, "Overall deadline for the audit")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Database URL required (--database or DATABASE_URL env)")
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	logging.InitLogger(level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, *databaseURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	slog.Info("Connected to database", "url", sanitizeURL(*databaseURL))

	auditor := app.NewAuditor(postgres.NewStore(pool), nil)
	clean, err := run(ctx, auditor, *repair && !*dryRun)
	if err != nil {
		log.Fatalf("Audit failed: %v", err)
	}
	if !clean {
		pool.Close()
		os.Exit(exitDrift)
	}
}

type ledgerAuditor interface {
	Audit(ctx context.Context) (*domain.AuditReport, error)
	Repair(ctx context.Context, report *domain.AuditReport) (app.RepairSummary, error)
}

// run reports whether the ledger is consistent once it returns.
func run(ctx context.Context, auditor ledgerAuditor, repair bool) (bool, error) {
	start := time.Now()

	report, err := auditor.Audit(ctx)
	if err != nil {
		return false, fmt.Errorf("audit: %w", err)
	}

	for _, d := range report.ReputationDrift {
		slog.Debug("Reputation drift", "user_id", d.UserID, "stored", d.Stored, "expected", d.Expected)
	}
	for _, d := range report.AnswerCountDrift {
		slog.Debug("Answer count drift", "question_id", d.QuestionID, "stored", d.Stored, "live", d.Live)
	}
	for _, id := range report.AcceptanceMismatches {
		slog.Debug("Acceptance mismatch", "question_id", id)
	}

	slog.Info("Audit summary",
		"reputation_drift", len(report.ReputationDrift),
		"answer_count_drift", len(report.AnswerCountDrift),
		"acceptance_mismatches", len(report.AcceptanceMismatches),
		"orphaned_notifications", report.OrphanedNotifications,
		"duration_ms", time.Since(start).Milliseconds())

	if report.Clean() {
		slog.Info("Ledger is consistent")
		return true, nil
	}
	if !repair {
		slog.Warn("Drift left in place, rerun with -repair to fix it")
		return false, nil
	}

	summary, err := auditor.Repair(ctx, report)
	if err != nil {
		return false, fmt.Errorf("repair: %w", err)
	}
	slog.Info("Repair summary",
		"reputation", summary.Reputation,
		"answer_counts", summary.AnswerCounts,
		"acceptance", summary.Acceptance,
		"notifications", summary.Notifications)
	return true, nil
}

func sanitizeURL(url string) string {
	// Hide password in the database URL for logging
	if strings.Contains(url, "@") {
		parts := strings.SplitN(url, "@", 2)
		credParts := strings.Split(parts[0], ":")
		if len(credParts) >= 3 {
			return credParts[0] + ":" + credParts[1] + ":***@" + parts[1]
		}
	}
	return url
}
