package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/flowgrid/flowgrid/internal/domain"
)

// NewJobCmd создаёт группу команд для работы с jobs.
func NewJobCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage grid jobs",
	}

	cmd.AddCommand(
		newJobSubmitCmd(outputFn),
		newJobShowCmd(outputFn),
		newJobAwaitCmd(outputFn),
	)

	return cmd
}

func newJobSubmitCmd(outputFn func() *Output) *cobra.Command {
	var scope string
	var jobType string
	var paramsJSON string
	var inputRefs []string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a job to the grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			var params map[string]any
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("parse params json: %w", err)
				}
			}

			svc, err := NewServices(ctx, "")
			if err != nil {
				return err
			}
			defer svc.Close()

			jobID, err := svc.Grid.Submit(ctx, scope, domain.JobType(jobType), params, inputRefs)
			if err != nil {
				return err
			}

			out.Success("Job submitted")
			out.Print(
				[]string{"JOB_ID", "TYPE", "SCOPE"},
				[][]string{{jobID.String(), jobType, scope}},
				map[string]any{"jobId": jobID, "type": jobType, "projectScope": scope},
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "default", "Project scope")
	cmd.Flags().StringVar(&jobType, "type", "", "Job type (required)")
	cmd.Flags().StringVar(&paramsJSON, "params-json", "", "Job params as a JSON object")
	cmd.Flags().StringArrayVar(&inputRefs, "input-ref", nil, "Input reference (repeatable)")
	cmd.MarkFlagRequired("type")

	return cmd
}

func newJobShowCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job status and result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}

			svc, err := NewServices(ctx, "")
			if err != nil {
				return err
			}
			defer svc.Close()

			job, err := svc.Grid.Job(ctx, id)
			if err != nil {
				return err
			}

			printJob(out, job)
			return nil
		},
	}
}

func newJobAwaitCmd(outputFn func() *Output) *cobra.Command {
	var timeout time.Duration
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "await ID",
		Short: "Block until the job reaches a terminal status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}

			svc, err := NewServices(ctx, "")
			if err != nil {
				return err
			}
			defer svc.Close()

			job, err := svc.Grid.Await(ctx, id, interval, timeout)
			if err != nil {
				return err
			}

			printJob(out, job)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Await timeout")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "Poll interval")

	return cmd
}

// printJob выводит job вертикальной карточкой или JSON.
func printJob(out *Output, job *domain.GridJob) {
	resultJSON := ""
	if job.Result != nil {
		encoded, _ := json.Marshal(job.Result)
		resultJSON = string(encoded)
	}

	out.Detail([][2]string{
		{"JOB_ID", job.ID.String()},
		{"TYPE", string(job.Type)},
		{"STATUS", string(job.Status)},
		{"WORKER", job.AssignedWorkerID},
		{"ERROR", job.Error},
		{"RESULT", resultJSON},
	}, job)
}
