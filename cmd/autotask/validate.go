package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abatilo/autotask/internal/seed"
	"github.com/abatilo/autotask/internal/validate"
)

// validateCmd implements 'autotask validate'.
func validateCmd() *cobra.Command {
	var taskType, priority, repeat, date, description string
	cmd := &cobra.Command{
		Use:   "validate <name>",
		Short: "Check a task submission without creating it",
		Args:  cobra.MinimumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			now := time.Now()
			schedule := now
			if date != "" {
				var err error
				if schedule, err = validate.ParseDate(date, now.Location()); err != nil {
					printError(err)
				}
			}

			t, err := validate.NewTask(validate.Input{
				Name:        strings.Join(args, " "),
				Type:        taskType,
				Description: description,
				Schedule:    schedule,
				Priority:    priority,
				Repeat:      repeat,
			}, now, func(string) bool { return false })
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatTask(t))
		},
	}
	cmd.Flags().StringVarP(&taskType, "type", "t", "security", "Task type (security, code, backup)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "Priority (critical, high, medium, low)")
	cmd.Flags().StringVarP(&repeat, "repeat", "r", "once", "Repeat interval (once, daily, weekly, monthly)")
	cmd.Flags().StringVar(&date, "date", "", "First run date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	return cmd
}

// seedCmd implements 'autotask seed'.
func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Inspect task seed files",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "check <file>",
			Short: "Parse a seed file and print its tasks",
			Args:  cobra.ExactArgs(1),
			Run: func(_ *cobra.Command, args []string) {
				tasks, err := seed.LoadFile(args[0], time.Now())
				if err != nil {
					printError(err)
				}
				printOutput(formatter.FormatTaskList(tasks))
			},
		},
		&cobra.Command{
			Use:   "demo",
			Short: "Print the bundled demo tasks as a seed file",
			Args:  cobra.NoArgs,
			Run: func(_ *cobra.Command, _ []string) {
				tasks, err := seed.Demo(time.Now())
				if err != nil {
					printError(err)
				}
				content, err := seed.Marshal(tasks)
				if err != nil {
					printError(err)
				}
				printOutput(string(content))
			},
		},
	)
	return cmd
}
