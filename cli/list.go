package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stevemurr/habit-store/habit"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var lenient bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every habit in index order",
		Long: `List every habit named by the index, in index order.

Any store failure, invalid record or index entry with no record fails the
whole listing. With --lenient such a failure is logged and an empty list is
printed instead.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			habits, err := s.repo.FindAll(cmd.Context())
			if err != nil {
				if !lenient {
					return WrapExitError(ExitFailure, "list habits", err)
				}
				s.logger.Warn("listing failed, showing no habits", zap.Error(err))
				habits = []habit.Habit{}
			}

			f := &formatter{format: rootOpts.Format, out: cmd.OutOrStdout()}
			return f.habits(habits)
		},
	}

	cmd.Flags().BoolVar(&lenient, "lenient", false, "print an empty list instead of failing")

	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a single habit",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			h, err := s.repo.GetByID(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "get habit", err)
			}
			f := &formatter{format: rootOpts.Format, out: cmd.OutOrStdout()}
			return f.habit(h)
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Store a new habit and append it to the index",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			h, err := s.repo.Add(cmd.Context(), args[0])
			if errors.Is(err, habit.ErrEmptyName) {
				return WrapExitError(ExitUsage, "add habit", err)
			}
			if err != nil {
				return WrapExitError(ExitFailure, "add habit", err)
			}
			f := &formatter{format: rootOpts.Format, out: cmd.OutOrStdout()}
			return f.habit(h)
		},
	}
}

// NewKeysCommand creates the keys command.
func NewKeysCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every raw key in the store",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			keys, err := s.kv.Keys(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "list keys", err)
			}
			f := &formatter{format: rootOpts.Format, out: cmd.OutOrStdout()}
			return f.keys(keys)
		},
	}
}
