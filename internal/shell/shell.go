// Package shell provides a line-oriented session over an engine, standing in
// for the presentation layer: every line is parsed as a cobra command.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/abatilo/autotask/internal/engine"
	"github.com/abatilo/autotask/internal/output"
	"github.com/abatilo/autotask/internal/storage"
	"github.com/abatilo/autotask/internal/task"
	"github.com/abatilo/autotask/internal/validate"
	"github.com/abatilo/autotask/internal/view"
)

// Shell reads commands from In and writes results to Out.
type Shell struct {
	Engine    *engine.Engine
	Formatter output.Formatter
	In        io.Reader
	Out       io.Writer
	Prompt    string
	Now       func() time.Time

	quit bool
}

// New creates a Shell with the human formatter and no prompt.
func New(e *engine.Engine, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		Engine:    e,
		Formatter: output.NewHumanFormatter(),
		In:        in,
		Out:       out,
		Now:       time.Now,
	}
}

// Run processes lines until exit, end of input, or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.In)
	for !s.quit {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		if s.Prompt != "" {
			s.write(s.Prompt)
		}
		if !scanner.Scan() {
			break
		}
		s.Execute(ctx, scanner.Text())
	}
	return errors.WithStack(scanner.Err())
}

// Execute runs a single command line. Errors are printed, never returned.
func (s *Shell) Execute(ctx context.Context, line string) {
	args, err := splitArgs(line)
	if err != nil {
		s.write(s.Formatter.FormatError(err))
		return
	}
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return
	}

	root := s.commands()
	root.SetArgs(args)
	root.SetOut(s.Out)
	root.SetErr(s.Out)
	if err := root.ExecuteContext(ctx); err != nil {
		s.write(s.Formatter.FormatError(err))
	}
}

func (s *Shell) write(str string) {
	io.WriteString(s.Out, str) //nolint:errcheck,gosec // output write errors are unrecoverable
}

// commands builds a fresh command tree so flag values never leak between lines.
func (s *Shell) commands() *cobra.Command {
	root := &cobra.Command{
		Use: "autotask",
		Long: `Manage automation tasks for this session.

Tasks loaded from a seed with status running have no executor attached:
'run' leaves them as they are, so use 'pause' or 'outcome' to move them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		s.addCmd(),
		s.listCmd(),
		s.showCmd(),
		s.runCmd(),
		s.pauseCmd(),
		s.outcomeCmd(),
		s.editCmd(),
		s.renameCmd(),
		s.rmCmd(),
		s.countsCmd(),
		s.exitCmd(),
	)
	return root
}

// addCmd implements 'add'.
func (s *Shell) addCmd() *cobra.Command {
	var taskType, priority, repeat, date, description string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := s.Now()
			schedule := now
			if date != "" {
				var err error
				if schedule, err = validate.ParseDate(date, now.Location()); err != nil {
					return err
				}
			}

			t, err := s.Engine.Create(cmd.Context(), validate.Input{
				Name:        strings.Join(args, " "),
				Type:        taskType,
				Description: description,
				Schedule:    schedule,
				Priority:    priority,
				Repeat:      repeat,
			})
			if err != nil {
				return err
			}
			s.write(s.Formatter.FormatTask(t))
			return nil
		},
	}
	cmd.Flags().StringVarP(&taskType, "type", "t", "security", "Task type (security, code, backup)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "Priority (critical, high, medium, low)")
	cmd.Flags().StringVarP(&repeat, "repeat", "r", "once", "Repeat interval (once, daily, weekly, monthly)")
	cmd.Flags().StringVar(&date, "date", "", "First run date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	return cmd
}

// listCmd implements 'list'.
func (s *Shell) listCmd() *cobra.Command {
	var sortBy string
	cmd := &cobra.Command{
		Use:   "list [all|idle|running|completed|failed]",
		Short: "List tasks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			criterion := view.All()
			if len(args) == 1 {
				var err error
				if criterion, err = view.ParseCriterion(args[0]); err != nil {
					return err
				}
			}

			tasks := view.Filter(s.Engine.Store().List(), criterion)
			switch sortBy {
			case "", "created":
			case "priority":
				tasks = view.SortByPriority(tasks)
			default:
				return errors.Errorf("unknown sort order '%s' (valid: created, priority)", sortBy)
			}
			s.write(s.Formatter.FormatTaskList(tasks))
			return nil
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort order (created, priority)")
	return cmd
}

// showCmd implements 'show'.
func (s *Shell) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			t, err := s.Engine.Store().Get(args[0])
			if err != nil {
				return err
			}
			s.write(s.Formatter.FormatTask(t))
			return nil
		},
	}
}

// runCmd implements 'run'.
func (s *Shell) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <id>",
		Short: "Run a task now",
		Long: `Run a task now. Completed, failed and idle tasks start a new run.

Running a task that is already running does nothing. Seeded tasks that start
out running have no executor attached; use 'pause' or 'outcome' to move them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := s.Engine.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s.write(s.Formatter.FormatTask(t))
			return nil
		},
	}
}

// pauseCmd implements 'pause'.
func (s *Shell) pauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <id>",
		Short: "Pause a running task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := s.Engine.Pause(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s.write(s.Formatter.FormatTask(t))
			return nil
		},
	}
}

// outcomeCmd implements 'outcome', the manual form of an executor report.
func (s *Shell) outcomeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outcome <id> <completed|failed>",
		Short: "Record the outcome of a running task",
		Args:  cobra.ExactArgs(2), //nolint:mnd // CLI takes 2 positional args
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := task.ParseStatus(args[1])
			if err != nil {
				return err
			}
			t, err := s.Engine.ReportOutcome(cmd.Context(), args[0], outcome, s.Now())
			if err != nil {
				return err
			}
			s.write(s.Formatter.FormatTask(t))
			return nil
		},
	}
}

// editCmd implements 'edit'. Only flags given on the line are changed.
func (s *Shell) editCmd() *cobra.Command {
	var name, taskType, priority, repeat, date, description string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := s.Engine.Store().Get(args[0])
			if err != nil {
				return err
			}

			now := s.Now()
			flags := cmd.Flags()
			var changes validate.Changes
			if flags.Changed("name") {
				changes.Name = &name
			}
			if flags.Changed("type") {
				changes.Type = &taskType
			}
			if flags.Changed("priority") {
				changes.Priority = &priority
			}
			if flags.Changed("repeat") {
				changes.Repeat = &repeat
			}
			if flags.Changed("description") {
				changes.Description = &description
			}
			if flags.Changed("date") {
				schedule, err := validate.ParseDate(date, now.Location())
				if err != nil {
					return err
				}
				changes.Schedule = &schedule
			}

			patch, err := validate.Edit(current, changes, now)
			if err != nil {
				return err
			}
			t, err := s.Engine.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			s.write(s.Formatter.FormatTask(t))
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Task name")
	cmd.Flags().StringVarP(&taskType, "type", "t", "", "Task type (security, code, backup)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority (critical, high, medium, low)")
	cmd.Flags().StringVarP(&repeat, "repeat", "r", "", "Repeat interval (once, daily, weekly, monthly)")
	cmd.Flags().StringVar(&date, "date", "", "First run date, YYYY-MM-DD")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	return cmd
}

// renameCmd implements 'rename'.
func (s *Shell) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a task",
		Args:  cobra.MinimumNArgs(2), //nolint:mnd // id plus at least one name word
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args[1:], " ")
			t, err := s.Engine.Update(cmd.Context(), args[0], storage.Patch{Name: &name})
			if err != nil {
				return err
			}
			s.write(s.Formatter.FormatTask(t))
			return nil
		},
	}
}

// rmCmd implements 'rm'.
func (s *Shell) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.Engine.Remove(cmd.Context(), args[0]) {
				s.write(s.Formatter.FormatMessage(fmt.Sprintf("Removed task %s", args[0])))
			} else {
				s.write(s.Formatter.FormatMessage(fmt.Sprintf("No task %s", args[0])))
			}
			return nil
		},
	}
}

// countsCmd implements 'counts'.
func (s *Shell) countsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Count tasks per status",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			s.write(s.Formatter.FormatCounts(view.Counts(s.Engine.Store().List())))
			return nil
		},
	}
}

// exitCmd implements 'exit'.
func (s *Shell) exitCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "exit",
		Aliases: []string{"quit"},
		Short:   "Leave the shell",
		Args:    cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			s.quit = true
		},
	}
}

// splitArgs splits a line on whitespace, keeping double-quoted runs together.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		pending bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			pending = true
		case !quoted && (r == ' ' || r == '\t'):
			if pending {
				args = append(args, current.String())
				current.Reset()
				pending = false
			}
		default:
			current.WriteRune(r)
			pending = true
		}
	}
	if quoted {
		return nil, errors.New("unterminated quote")
	}
	if pending {
		args = append(args, current.String())
	}
	return args, nil
}
