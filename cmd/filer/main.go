package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/justyntemme/filer/internal/config"
	"github.com/justyntemme/filer/internal/debug"
)

var version = "0.1.0"

var (
	debugFlag  bool
	configPath string

	cfg = config.NewManager()
)

func main() {
	log.SetFlags(0)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Printf("filer: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "filer",
	Short: "List and watch directories through a live directory cache",
	Long: `filer keeps an in-memory model of each directory it shows and
reconciles it incrementally with the filesystem: names are listed first,
details are filled in by a background recheck, and change notifications
trigger a debounced rescan.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debugFlag {
			debug.EnableAll()
		}
		path := configPath
		if path == "" {
			path = config.ConfigPath()
		}
		if err := cfg.LoadFrom(path); err != nil {
			return err
		}
		if err := cfg.ParseError(); err != nil {
			log.Printf("filer: %s: %v (using defaults)", path, err)
		}
		return nil
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable every debug category (needs a -tags debug build)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json (default ~/.config/filer/config.json)")

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(configCmd)
}
