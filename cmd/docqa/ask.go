package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/resilient"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, logger, err := startApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer a.Close()

		s := a.NewSession("cli")
		reply, err := s.Ask(cmd.Context(), strings.Join(args, " "), func(w resilient.Warning) {
			fmt.Fprintf(os.Stderr, "warning: rate limited, retrying in %s...\n", w.Wait)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply.Message.Content)
		return nil
	},
}
