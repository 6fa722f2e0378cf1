// Package main starts a pipeline run, or installs a cron schedule for it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/burqi/orderflow/internal/config"

	wf "github.com/burqi/orderflow/internal/temporal"
)

func main() {
	cron := flag.String("cron", "", "install a cron schedule instead of starting a single run (e.g. \"0 2 * * *\")")
	wait := flag.Bool("wait", false, "block until the run completes and print the result")
	flag.Parse()

	workerCfg := config.LoadWorkerConfig()
	pipelineCfg := config.LoadPipelineConfig()

	c, err := client.Dial(client.Options{
		HostPort:  workerCfg.TemporalAddress,
		Namespace: workerCfg.TemporalNamespace,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	input := wf.PipelineInput{
		Dataset:     pipelineCfg.Dataset,
		DownloadDir: pipelineCfg.DownloadDir,
	}

	ctx := context.Background()

	if *cron != "" {
		installSchedule(ctx, c, workerCfg.TaskQueue, *cron, input)
		return
	}

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        fmt.Sprintf("orderflow-%s", uuid.New().String()),
		TaskQueue: workerCfg.TaskQueue,
	}, wf.OrderPipelineWorkflow, input)
	if err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}
	log.Printf("Started pipeline run: workflowId=%s runId=%s", run.GetID(), run.GetRunID())

	if !*wait {
		return
	}

	var result wf.PipelineResult
	if err := run.Get(ctx, &result); err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}
	log.Printf("Pipeline run complete: extracted=%d staged=%d cleaned=%d dropped=%d destination=%d",
		result.Extracted, result.Staged, result.Cleaned, result.Dropped, result.Destination)
}

func installSchedule(ctx context.Context, c client.Client, taskQueue, cron string, input wf.PipelineInput) {
	_, err := c.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: "orderflow-pipeline",
		Spec: client.ScheduleSpec{
			CronExpressions: []string{cron},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        "orderflow-scheduled",
			Workflow:  wf.OrderPipelineWorkflow,
			Args:      []any{input},
			TaskQueue: taskQueue,
		},
		// One run at a time; overlapping runs are not safe against the
		// shared staging and destination tables.
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	})
	if err != nil {
		log.Fatalf("Failed to create schedule: %v", err)
	}
	log.Printf("Installed schedule orderflow-pipeline: cron=%q", cron)
}
