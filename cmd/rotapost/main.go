package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rotapost",
	Short: "Post one topic's next asset per run, rotating through topics",
	Long: `rotapost posts content to Telegram and webhooks.

Each scheduled run takes the next topic in rotation: folder topics post
their next file (removed once uploaded), generated topics post a freshly
rendered quote card. Manual runs post every topic once without moving the
rotation.
`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "config file (yaml or json); empty uses built-in topics")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file with secrets (ignored if missing)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(statusCmd())
}
