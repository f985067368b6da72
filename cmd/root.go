package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/examwatch/noticebot/internal/build"
)

var rootCmd = &cobra.Command{
	Use:     "noticebot",
	Short:   "Exam notice alert bot",
	Long:    "Polls an announcements page for new notices, summarizes their PDFs, and alerts Telegram subscribers.",
	Version: build.String(),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
