// Webfetchd is a content-retrieval daemon speaking the Model Context
// Protocol over stdio. It turns URLs and raw bytes into normalized,
// LLM-safe content packets with chunked and compacted views.
//
// Configuration is loaded from WEBFETCHD_* environment variables.
//
// Usage:
//
//	# Start the daemon on stdio
//	webfetchd serve
//
//	# Configure via environment
//	WEBFETCHD_MAX_BYTES=1048576 WEBFETCHD_RESPECT_ROBOTS=false webfetchd serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "webfetchd",
	Short: "Content retrieval and normalization daemon for LLM agents",
	Long: `webfetchd fetches URLs behind SSRF, robots.txt, and rate-limit guards,
normalizes the responses into citation-friendly markdown packets, and serves
them over the Model Context Protocol.`,
	Version: version,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show detailed version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("webfetchd by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
