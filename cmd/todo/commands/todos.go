package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/benvon/simple-todo/internal/actions"
	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/benvon/simple-todo/internal/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List todos",
		Args:    cobra.NoArgs,
		RunE: a.withService(func(cmd *cobra.Command, args []string, svc *actions.Service) error {
			todos := svc.Todos()
			out := tui.RenderList(todos, tui.RenderOptions{
				Theme:    tui.NewTheme(true),
				Cursor:   -1,
				Numbered: true,
				Loaded:   svc.Loaded(),
				LoadErr:  svc.LoadError(),
			})
			fmt.Fprintln(cmd.OutOrStdout(), out)
			if len(todos) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d completed\n", models.CountCompleted(todos), len(todos))
			}
			return nil
		}),
	}
}

func newAddCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withService(func(cmd *cobra.Command, args []string, svc *actions.Service) error {
			todo, err := svc.Add(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", todo.ID, todo.Text)
			return nil
		}),
	}
}

func newToggleCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id|index>",
		Short: "Mark a todo done or not done",
		Args:  cobra.ExactArgs(1),
		RunE: a.withService(func(cmd *cobra.Command, args []string, svc *actions.Service) error {
			id, err := resolveID(svc.Todos(), args[0])
			if err != nil {
				return err
			}
			return userError(svc.Toggle(cmd.Context(), id))
		}),
	}
}

func newEditCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id|index> <text>",
		Short: "Change the text of a todo",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.withService(func(cmd *cobra.Command, args []string, svc *actions.Service) error {
			id, err := resolveID(svc.Todos(), args[0])
			if err != nil {
				return err
			}
			return userError(svc.Edit(cmd.Context(), id, strings.Join(args[1:], " ")))
		}),
	}
}

func newDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id|index>",
		Aliases: []string{"rm"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: a.withService(func(cmd *cobra.Command, args []string, svc *actions.Service) error {
			id, err := resolveID(svc.Todos(), args[0])
			if err != nil {
				return err
			}
			return userError(svc.Delete(cmd.Context(), id))
		}),
	}
}

// resolveID accepts a todo id or its 1-based position in the list
func resolveID(todos []models.Todo, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		if models.IndexOf(todos, id) < 0 {
			return uuid.Nil, fmt.Errorf("no todo with id %s", id)
		}
		return id, nil
	}

	n, err := strconv.Atoi(ref)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%q is neither a todo id nor a list position", ref)
	}
	if n < 1 || n > len(todos) {
		return uuid.Nil, fmt.Errorf("position %d out of range (1-%d)", n, len(todos))
	}
	return todos[n-1].ID, nil
}

// userError reduces a coded error to the message shown to the user
func userError(err error) error {
	if err == nil {
		return nil
	}
	var te *todoerrors.TodoError
	if !errors.As(err, &te) {
		return err
	}
	if te.Code == todoerrors.ErrStorage {
		return fmt.Errorf("%s: %w", te.Message, te.Err)
	}
	return errors.New(todoerrors.Reason(err))
}
