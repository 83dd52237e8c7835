// Flowgrid CLI — инструмент командной строки для компиляции
// и выполнения FLOW-workflows и работы с job grid.
//
// Использование:
//
//	flowgrid [--json] <command> [flags]
//
// Команды:
//
//	compile   Разбор и анализ FLOW-файла
//	plan      Построение plan graph
//	run       Выполнение workflow (sync или --async)
//	job       Работа с jobs grid
//	schedule  Управление расписаниями
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowgrid/flowgrid/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "flowgrid",
		Short:         "Flowgrid CLI — declarative workflow compiler and job grid",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewCompileCmd(outputFn),
		cli.NewPlanCmd(outputFn),
		cli.NewRunCmd(outputFn),
		cli.NewJobCmd(outputFn),
		cli.NewScheduleCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
