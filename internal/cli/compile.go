package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/plan"
)

// NewCompileCmd создаёт команду compile.
func NewCompileCmd(outputFn func() *Output) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Parse and analyze a FLOW file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read flow file: %w", err)
			}

			result := flow.Compile(string(data), strict)

			for _, w := range result.Warnings {
				out.Success("warning: " + w)
			}
			if !result.OK {
				for _, e := range result.Errors {
					out.Error(e)
				}
				return fmt.Errorf("compile failed")
			}

			headers := []string{"STEP", "OP", "LINE"}
			rows := make([][]string, len(result.AST.Steps))
			for i, step := range result.AST.Steps {
				rows[i] = []string{step.Name, step.InferredOp, strconv.Itoa(step.StartLine)}
			}

			out.Success(fmt.Sprintf("Workflow %q: %d steps", result.AST.Name, len(result.AST.Steps)))
			out.Print(headers, rows, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat recoverable issues as errors")

	return cmd
}

// NewPlanCmd создаёт команду plan.
func NewPlanCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "plan FILE",
		Short: "Build the execution plan graph for a FLOW file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read flow file: %w", err)
			}

			result := flow.Compile(string(data), false)
			if !result.OK {
				for _, e := range result.Errors {
					out.Error(e)
				}
				return fmt.Errorf("compile failed")
			}

			graph, err := plan.Build(result.AST)
			if err != nil {
				return err
			}

			nodes := graph.OrderedNodes()
			headers := []string{"NODE", "KIND", "STEP", "DEPENDS_ON"}
			rows := make([][]string, len(nodes))
			for i, node := range nodes {
				rows[i] = []string{node.ID, string(node.Kind), node.Meta.StepName, strings.Join(node.Inputs, ",")}
			}

			out.Success(fmt.Sprintf("Plan: %d nodes, %d edges", graph.Size(), len(graph.Edges)))
			out.Print(headers, rows, nodes)
			return nil
		},
	}
}
