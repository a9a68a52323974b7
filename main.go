package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"portal_leads/api"
	"portal_leads/config"
	"portal_leads/crm"
	"portal_leads/events"
	"portal_leads/httputil"
	"portal_leads/ingest"
	"portal_leads/logging"
	"portal_leads/mapping"
	"portal_leads/models"
	"portal_leads/owner"
	"portal_leads/portal"
	"portal_leads/recording"
	"portal_leads/scheduler"
	"portal_leads/storage"
)

var (
	runOnce = flag.Bool("once", false, "Run one ingest pass and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logFile, err := logging.Setup(filepath.Join(cfg.LogDir, "daemon.log"), level)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting portal_leads...")

	codes, err := config.LoadCodes(cfg.CodesFile)
	if err != nil {
		log.Fatalf("Failed to load code tables: %v", err)
	}

	clients := httputil.NewClients(&cfg.Portal)
	if cfg.Portal.ProxyURL != "" {
		log.Printf("Portal proxy: %s", maskConnectionString(cfg.Portal.ProxyURL))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bitrix := crm.NewClient(cfg.CRM.WebhookURL, cfg.CRM.ListingsEntityTypeID, clients.CRM)
	resolver := owner.NewResolver(bitrix, cfg.CRM.DefaultOwnerID, cfg.CRM.ExcludedUserIDs)

	registry := mapping.NewRegistry(mapping.NewCodes(codes), resolver, mapping.Options{
		CallOwnerPolicy:   cfg.CRM.CallOwnerPolicy,
		UnassignedOwnerID: cfg.CRM.UnassignedOwnerID,
	})
	if err := registry.Validate(models.Platforms, models.LeadTypes); err != nil {
		log.Fatalf("Field mapping incomplete: %v", err)
	}

	backend, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Backend, err)
	}
	defer backend.Close()
	log.Printf("Store backend: %s", cfg.Store.Backend)
	if cfg.Store.Backend == config.StorePostgres {
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.Store.PostgresURL))
	}

	processed, err := storage.OpenProcessedLeads(ctx, backend.Leads)
	if err != nil {
		log.Fatalf("Failed to load processed leads: %v", err)
	}

	journal := logging.NewJournal(cfg.LogDir)
	defer journal.Close()

	deps := ingest.Deps{
		Fetcher: portal.NewFetcher(cfg.Portal.BaseURLs, cfg.Portal.AuthToken, clients.Portal),
		Mapper:  registry,
		CRM:     bitrix,
		Store:   processed,
		Runs:    backend.Runs,
		Journal: journal,
	}

	var archiver recording.Archiver
	if cfg.S3.Enabled() {
		uploader, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to set up S3 archive: %v", err)
		}
		archiver = uploader
		log.Printf("Archiving recordings to s3://%s", cfg.S3.Bucket)
	}
	deps.Recordings = recording.NewHandler(clients.Media, bitrix, archiver)

	checks := map[string]api.Checker{}
	if cfg.AMQPURL != "" {
		publisher, err := events.Dial(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
		deps.Events = publisher
		checks["rabbitmq"] = func(ctx context.Context) error {
			if !publisher.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		}
		log.Printf("Publishing deal events to exchange %s", events.ExchangeName)
	}
	if backend.Runs != nil {
		checks["store"] = func(ctx context.Context) error {
			_, err := backend.Runs.LastRun(ctx)
			return err
		}
	}

	processor := ingest.NewProcessor(deps, ingest.Options{Since: cfg.Portal.Since})

	if *runOnce {
		log.Println("Running ingest pass...")
		stats, err := processor.Run(ctx)
		if err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}
		printSummary(stats, processed.Len())
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg.Scheduler, processor)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	if cfg.HTTPAddr != "" {
		server := api.NewServer(processor, backend.Runs, checks)
		go func() {
			if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Admin API stopped: %v", err)
			}
		}()
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")
	<-ctx.Done()

	log.Printf("Shutting down (%d processed leads on record)...", processed.Len())
	sched.Stop()
	log.Println("Goodbye!")
}

func printSummary(stats *models.RunStats, onRecord int) {
	for _, b := range stats.Batches {
		line := fmt.Sprintf("%s %s: fetched %d, created %d, duplicates %d, failed %d",
			b.Platform.Title(), b.LeadType, b.Fetched, b.Created, b.Duplicates, b.Failed)
		if b.LeadType == models.LeadTypeCall {
			line += fmt.Sprintf(", recordings %d", b.Recordings)
		}
		if b.FetchError != "" {
			line += " (fetch error: " + b.FetchError + ")"
		}
		fmt.Fprintln(os.Stdout, line)
	}
	t := stats.Totals()
	fmt.Fprintf(os.Stdout, "Total: %d deals created, %d duplicates, %d failed\n", t.Created, t.Duplicates, t.Failed)
	fmt.Fprintf(os.Stdout, "Processed leads on record: %d\n", onRecord)
}

// maskConnectionString hides the password of a URL-style connection string.
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
