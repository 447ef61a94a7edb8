package commands

import (
	"github.com/benvon/simple-todo/internal/tui"
	"github.com/spf13/cobra"
)

func newTUICmd(a *App) *cobra.Command {
	var light bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd, !light)
		},
	}
	cmd.Flags().BoolVar(&light, "light", false, "Start with the light theme")
	return cmd
}

// runTUI leaves the first fetch to the UI so a failing store shows its error screen
func (a *App) runTUI(cmd *cobra.Command, dark bool) error {
	s, err := a.connect()
	if err != nil {
		return err
	}
	defer s.close()

	return tui.Run(cmd.Context(), s.svc, tui.Options{
		RefreshInterval: s.cfg.RefreshInterval,
		Dark:            dark,
		Logger:          s.logger,
	})
}
