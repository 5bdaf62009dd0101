package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"contentgen/internal/adapter/repo"
	"contentgen/internal/db"
	"contentgen/internal/domain"
	"contentgen/internal/infra"
)

func main() {
	var (
		migrateFlag   bool
		listStaleFlag bool
		limitFlag     int
		requeueFlag   string
		grantFlag     string
		amountFlag    int64
		reasonFlag    string
		ledgerFlag    string
	)
	flag.BoolVar(&migrateFlag, "migrate", false, "apply the database schema")
	flag.BoolVar(&listStaleFlag, "list-stale", false, "list jobs with an expired lease or an unsettled refund")
	flag.IntVar(&limitFlag, "limit", 50, "maximum rows for -list-stale")
	flag.StringVar(&requeueFlag, "requeue", "", "job ID to move from IN_PROGRESS back to PENDING")
	flag.StringVar(&grantFlag, "grant", "", "user ID to grant credits to")
	flag.Int64Var(&amountFlag, "amount", 0, "credit amount for -grant")
	flag.StringVar(&reasonFlag, "reason", "manual grant", "ledger reason for -grant")
	flag.StringVar(&ledgerFlag, "ledger", "", "job ID whose ledger entries to print")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", "jobctl")
	runner := infra.NewSQLRunner(pool, logger)
	jobs := repo.NewJobRepository(runner)
	ledger := repo.NewLedger(runner)

	did := false
	if migrateFlag {
		did = true
		if err := db.Migrate(ctx, pool); err != nil {
			exitWithError(err)
		}
		fmt.Println("schema applied")
	}
	if listStaleFlag {
		did = true
		stale, err := jobs.ListStale(ctx, limitFlag)
		if err != nil {
			exitWithError(fmt.Errorf("list stale jobs: %w", err))
		}
		for _, j := range stale {
			fmt.Printf("%s\t%s\t%d/%d\trefund_settled=%t\t%s\n",
				j.ID, j.Status, j.CompletedCount, j.TargetCount, j.RefundSettled, j.LastError)
		}
		if len(stale) == 0 {
			fmt.Println("no stale jobs")
		}
	}
	if id := strings.TrimSpace(requeueFlag); id != "" {
		did = true
		if err := jobs.Requeue(ctx, id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				exitWithError(fmt.Errorf("job %s is not IN_PROGRESS", id))
			}
			exitWithError(fmt.Errorf("requeue: %w", err))
		}
		fmt.Printf("job %s requeued\n", id)
	}
	if user := strings.TrimSpace(grantFlag); user != "" {
		did = true
		balance, err := ledger.Grant(ctx, user, amountFlag, reasonFlag)
		if err != nil {
			exitWithError(fmt.Errorf("grant: %w", err))
		}
		fmt.Printf("user %s balance=%d\n", user, balance)
	}
	if id := strings.TrimSpace(ledgerFlag); id != "" {
		did = true
		entries, err := ledger.Entries(ctx, domain.LedgerReferenceJob, id)
		if err != nil {
			exitWithError(fmt.Errorf("ledger entries: %w", err))
		}
		for _, e := range entries {
			fmt.Printf("%s\t%s\t%d\t%s\n", e.CreatedAt.Format(time.RFC3339), e.Kind, e.Amount, e.Reason)
		}
	}
	if !did {
		flag.Usage()
		os.Exit(2)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
