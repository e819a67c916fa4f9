// Command crawlerd runs the crawl/index daemon, grounded on the teacher's
// flag-driven main.go entrypoint, restructured onto spf13/cobra
// subcommands (serve, crawl) the way the rest of the pack lays out a
// multi-mode CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "crawlerd",
	Short: "Web crawler and search-indexing daemon",
	Long: `crawlerd discovers, crawls, and indexes web pages into a searchable
store, running the discovery scheduler, bounded worker pool, and content
indexer as one process, or crawling a single session from the command
line for local testing.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to TOML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
