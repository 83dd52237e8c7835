package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowgrid/flowgrid/internal/flow"
)

// NewRunCmd создаёт команду run.
func NewRunCmd(outputFn func() *Output) *cobra.Command {
	var scope string
	var inputPairs []string
	var inputsJSON string
	var async bool
	var workflowDir string

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Execute a FLOW workflow",
		Long: `Execute a FLOW workflow.

By default the plan runs synchronously inside the CLI process with an
embedded worker. With --async the workflow is submitted to the grid as
a custom/flow job and the command prints its job ID; a running worker
(and a shared DB_URL store) is required to pick it up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read flow file: %w", err)
			}

			inputs, err := collectInputs(inputsJSON, inputPairs)
			if err != nil {
				return err
			}

			dir := workflowDir
			if dir == "" {
				dir = filepath.Dir(args[0])
			}

			svc, err := NewServices(ctx, dir)
			if err != nil {
				return err
			}
			defer svc.Close()

			if async {
				jobID, err := svc.Engine.SubmitAsync(ctx, scope, string(data), inputs)
				if err != nil {
					return err
				}
				out.Success("Workflow submitted to grid")
				out.Print(
					[]string{"JOB_ID", "SCOPE"},
					[][]string{{jobID.String(), scope}},
					map[string]any{"jobId": jobID, "projectScope": scope},
				)
				return nil
			}

			if err := svc.StartWorker(ctx); err != nil {
				return fmt.Errorf("start embedded worker: %w", err)
			}

			result, err := svc.Engine.Execute(ctx, scope, string(data), inputs)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow %q finished", result.Workflow))
			headers := []string{"OUTPUT", "VALUE"}
			rows := make([][]string, 0, len(result.Outputs))
			for label, value := range result.Outputs {
				encoded, _ := json.Marshal(value)
				rows = append(rows, []string{label, string(encoded)})
			}
			out.Print(headers, rows, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "default", "Project scope for grid jobs")
	cmd.Flags().StringArrayVar(&inputPairs, "input", nil, "Workflow input as name=value (repeatable)")
	cmd.Flags().StringVar(&inputsJSON, "inputs-json", "", "Workflow inputs as a JSON object or @file")
	cmd.Flags().BoolVar(&async, "async", false, "Submit to the grid instead of executing locally")
	cmd.Flags().StringVar(&workflowDir, "workflow-dir", "", "Directory for CALL FLOW sources (default: FILE directory)")

	return cmd
}

// collectInputs собирает входы workflow из --inputs-json и --input.
// Значения name=value разбираются как payload-литералы, поэтому
// `--input n=42` даёт число, а `--input flags=[1,2]` — массив.
func collectInputs(inputsJSON string, pairs []string) (map[string]any, error) {
	inputs := make(map[string]any)

	if inputsJSON != "" {
		raw := []byte(inputsJSON)
		if strings.HasPrefix(inputsJSON, "@") {
			data, err := os.ReadFile(inputsJSON[1:])
			if err != nil {
				return nil, fmt.Errorf("read inputs file: %w", err)
			}
			raw = data
		}
		if err := json.Unmarshal(raw, &inputs); err != nil {
			return nil, fmt.Errorf("parse inputs json: %w", err)
		}
	}

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --input %q: expected name=value", pair)
		}
		parsed, err := flow.ParseLiteral(value)
		if err != nil {
			// Неразборчивое значение передаётся строкой как есть.
			parsed = value
		}
		inputs[name] = parsed
	}

	return inputs, nil
}
