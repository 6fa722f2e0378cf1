// Package main runs the orderflow Temporal worker.
package main

import (
	"context"
	"log"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/burqi/orderflow/internal/activities"
	"github.com/burqi/orderflow/internal/archive"
	"github.com/burqi/orderflow/internal/config"
	"github.com/burqi/orderflow/internal/kaggle"
	"github.com/burqi/orderflow/internal/stagingstore"
	"github.com/burqi/orderflow/internal/transform"
	"github.com/burqi/orderflow/internal/warehouse"

	wf "github.com/burqi/orderflow/internal/temporal"
)

func main() {
	workerCfg := config.LoadWorkerConfig()
	pipelineCfg := config.LoadPipelineConfig()

	log.Printf("Starting orderflow worker: address=%s namespace=%s queue=%s",
		workerCfg.TemporalAddress, workerCfg.TemporalNamespace, workerCfg.TaskQueue)

	if pipelineCfg.StagingDSN == "" {
		log.Fatalf("ORDERFLOW_STAGING_DSN is required")
	}
	if pipelineCfg.DestinationDSN == "" {
		log.Fatalf("ORDERFLOW_DESTINATION_DSN is required")
	}

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  workerCfg.TemporalAddress,
		Namespace: workerCfg.TemporalNamespace,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	deps, cleanup := buildDeps(pipelineCfg)
	defer cleanup()

	// Create worker
	w := worker.New(c, workerCfg.TaskQueue, worker.Options{})

	// Register workflow and activities
	w.RegisterWorkflowWithOptions(wf.OrderPipelineWorkflowFunc, workflow.RegisterOptions{
		Name: wf.OrderPipelineWorkflow,
	})

	acts := activities.NewActivities(deps)
	w.RegisterActivity(acts.DownloadDataset)
	w.RegisterActivity(acts.ExtractRows)
	w.RegisterActivity(acts.LoadStaging)
	w.RegisterActivity(acts.TransformOrders)
	w.RegisterActivity(acts.LoadDestination)

	log.Printf("Registered 5 activities: DownloadDataset, ExtractRows, LoadStaging, TransformOrders, LoadDestination")

	// Run worker
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}

// buildDeps connects the pipeline backends and ensures their schemas.
func buildDeps(cfg *config.PipelineConfig) (activities.Deps, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	staging, err := stagingstore.Open(cfg.StagingDSN, cfg.StagingTable)
	if err != nil {
		log.Fatalf("Failed to open staging store: %v", err)
	}
	if err := staging.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure staging schema: %v", err)
	}

	dest, err := warehouse.Open(cfg.DestinationDSN, cfg.DestinationTable)
	if err != nil {
		log.Fatalf("Failed to open destination: %v", err)
	}
	if err := dest.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure destination schema: %v", err)
	}

	rules := transform.DefaultRules()
	if cfg.RulesPath != "" {
		rules, err = transform.LoadRules(cfg.RulesPath)
		if err != nil {
			log.Fatalf("Failed to load cleaning rules: %v", err)
		}
		log.Printf("Loaded cleaning rules from %s", cfg.RulesPath)
	}

	deps := activities.Deps{
		Fetcher: kaggle.NewFetcher(kaggle.NewClient(&kaggle.ClientConfig{
			BaseURL:  cfg.KaggleBaseURL,
			Username: cfg.KaggleUsername,
			Key:      cfg.KaggleKey,
		})),
		Staging:     staging,
		Destination: dest,
		Rules:       rules,
	}

	if cfg.ArchiveEnabled() {
		mirror, err := archive.New(&archive.Config{
			EndpointURL:     cfg.ArchiveEndpoint,
			AccessKeyID:     cfg.ArchiveAccessKey,
			SecretAccessKey: cfg.ArchiveSecretKey,
			Bucket:          cfg.ArchiveBucket,
			UseSSL:          cfg.ArchiveUseSSL,
		})
		if err != nil {
			log.Fatalf("Failed to create archive mirror: %v", err)
		}
		if err := mirror.EnsureBucket(ctx); err != nil {
			log.Fatalf("Failed to ensure archive bucket: %v", err)
		}
		deps.Mirror = mirror
		log.Printf("Raw archive mirror enabled: bucket=%s", cfg.ArchiveBucket)
	}

	cleanup := func() {
		staging.Close()
		dest.Close()
	}
	return deps, cleanup
}
