package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docqa/internal/tui"
)

// defaultTUILogFile keeps log output off the terminal the chat draws on.
const defaultTUILogFile = "docqa.log"

var singleShot bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the terminal chat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Log.File == "" {
			cfg.Log.File = defaultTUILogFile
		}
		a, logger, err := startApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer a.Close()

		mode := tui.ModeHistory
		if singleShot {
			mode = tui.ModeSingleShot
		}
		m := tui.New(cmd.Context(), a.NewSession("tui"), a.Summary(), mode)
		_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	chatCmd.Flags().BoolVar(&singleShot, "single-shot", false, "show only the latest answer instead of the chat history")
}
