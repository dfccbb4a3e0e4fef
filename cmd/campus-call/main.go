// Command campus-call places or answers a voice call through the signaling
// store, using a local WebRTC peer. Both ends must share a mongo store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "campus-call",
	Short: "Place or answer a Campus voice call from the terminal",
	Long: `campus-call runs one side of a direct call. "start" publishes an offer and
prints the session id to share; "answer" joins a shared session id.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringP("config", "c", "config/config.dev.json", "config file path")
	rootCmd.PersistentFlags().StringP("user", "u", "", "user id to call as")
	_ = rootCmd.MarkPersistentFlagRequired("user")

	rootCmd.AddCommand(startCmd, answerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
