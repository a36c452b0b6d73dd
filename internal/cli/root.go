package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "0.1.0-dev"

var (
	// Global flags
	configFile   string
	envFile      string
	rpcURL       string
	keyHex       string
	callTimeout  time.Duration
	unitDecimals uint8
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "marketd",
	Short: "goMarketd - escrow marketplace for multi-unit tokens",
	Long: `goMarketd lists multi-unit tokens for sale at a price in a unit of account
and settles purchases atomically, paid either in the native asset or in an
allowlisted settlement token converted through price feeds.

Run "marketd server" to start the daemon. The remaining commands are a JSON-RPC
client for a running daemon.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "conf", "", "configuration file path (default marketd.toml)")
	flags.StringVar(&envFile, "env", ".env", "dotenv file loaded before the configuration")
	flags.StringVar(&rpcURL, "url", "http://127.0.0.1:5005/", "JSON-RPC endpoint of a running daemon")
	flags.StringVar(&keyHex, "key", "", "hex private key used to sign requests (default $MARKETD_KEY)")
	flags.DurationVar(&callTimeout, "timeout", 30*time.Second, "request timeout")
	flags.Uint8Var(&unitDecimals, "decimals", 18, "decimals of prices and native amounts entered on the command line")
}
