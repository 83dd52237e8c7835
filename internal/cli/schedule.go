package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/flowgrid/flowgrid/internal/domain"
	"github.com/flowgrid/flowgrid/internal/schedule"
)

// NewScheduleCmd создаёт группу команд для управления schedules.
func NewScheduleCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage recurring job schedules",
	}

	cmd.AddCommand(
		newScheduleCreateCmd(outputFn),
		newScheduleListCmd(outputFn),
		newScheduleShowCmd(outputFn),
		newScheduleSetEnabledCmd(outputFn, "enable", true),
		newScheduleSetEnabledCmd(outputFn, "disable", false),
	)

	return cmd
}

func newScheduleCreateCmd(outputFn func() *Output) *cobra.Command {
	var name string
	var scope string
	var jobType string
	var paramsJSON string
	var cronExpr string
	var intervalSec int
	var timezone string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a recurring schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			if cronExpr == "" && intervalSec <= 0 {
				return fmt.Errorf("either --cron or --interval-sec is required")
			}
			if cronExpr != "" {
				if err := schedule.ValidateCronExpr(cronExpr); err != nil {
					return err
				}
			}

			var params map[string]any
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("parse params json: %w", err)
				}
			}

			now := time.Now().UTC()
			sched := &domain.Schedule{
				ID:           uuid.New(),
				Name:         name,
				ProjectScope: scope,
				JobType:      domain.JobType(jobType),
				Params:       params,
				CronExpr:     cronExpr,
				IntervalSec:  intervalSec,
				Timezone:     timezone,
				Enabled:      true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}

			nextDue, err := schedule.CalculateInitialNextDue(sched)
			if err != nil {
				return err
			}
			sched.NextDueAt = &nextDue

			svc, err := NewServices(ctx, "")
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Grid.CreateSchedule(ctx, sched); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule created: %s", sched.ID))
			printSchedule(out, sched)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Schedule name")
	cmd.Flags().StringVar(&scope, "scope", "default", "Project scope for submitted jobs")
	cmd.Flags().StringVar(&jobType, "type", "", "Job type to submit (required)")
	cmd.Flags().StringVar(&paramsJSON, "params-json", "", "Job params as a JSON object")
	cmd.Flags().StringVar(&cronExpr, "cron", "", `Cron expression ("0 9 * * *")`)
	cmd.Flags().IntVar(&intervalSec, "interval-sec", 0, "Interval between submissions in seconds")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "Timezone for cron evaluation")
	cmd.MarkFlagRequired("type")

	return cmd
}

func newScheduleListCmd(outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFn()
			ctx := cmd.Context()

			svc, err := NewServices(ctx, "")
			if err != nil {
				return err
			}
			defer svc.Close()

			schedules, err := svc.Grid.Schedules(ctx, limit)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(schedules))
			for i := range schedules {
				sched := &schedules[i]
				trigger := sched.CronExpr
				if trigger == "" {
					trigger = fmt.Sprintf("every %ds", sched.IntervalSec)
				}
				nextDue := ""
				if sched.NextDueAt != nil {
					nextDue = sched.NextDueAt.Format(time.RFC3339)
				}
				rows = append(rows, []string{
					sched.ID.String(),
					sched.Name,
					string(sched.JobType),
					trigger,
					strconv.FormatBool(sched.Enabled),
					nextDue,
				})
			}

			out.Print(
				[]string{"ID", "NAME", "TYPE", "TRIGGER", "ENABLED", "NEXT_DUE"},
				rows,
				schedules,
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of schedules to list")

	return cmd
}

func newScheduleShowCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show schedule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid schedule id: %w", err)
			}

			svc, err := NewServices(ctx, "")
			if err != nil {
				return err
			}
			defer svc.Close()

			sched, err := svc.Grid.Schedule(ctx, id)
			if err != nil {
				return err
			}

			printSchedule(out, sched)
			return nil
		},
	}
}

func newScheduleSetEnabledCmd(outputFn func() *Output, use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: use + " a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid schedule id: %w", err)
			}

			svc, err := NewServices(ctx, "")
			if err != nil {
				return err
			}
			defer svc.Close()

			sched, err := svc.Grid.SetScheduleEnabled(ctx, id, enabled)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule %s %sd", id, use))
			printSchedule(out, sched)
			return nil
		},
	}
}

// printSchedule выводит schedule вертикальной карточкой или JSON.
func printSchedule(out *Output, sched *domain.Schedule) {
	trigger := sched.CronExpr
	if trigger == "" {
		trigger = fmt.Sprintf("every %ds", sched.IntervalSec)
	}
	nextDue := ""
	if sched.NextDueAt != nil {
		nextDue = sched.NextDueAt.Format(time.RFC3339)
	}

	out.Detail([][2]string{
		{"ID", sched.ID.String()},
		{"NAME", sched.Name},
		{"TYPE", string(sched.JobType)},
		{"TRIGGER", trigger},
		{"ENABLED", strconv.FormatBool(sched.Enabled)},
		{"NEXT_DUE", nextDue},
	}, sched)
}
