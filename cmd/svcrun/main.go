package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	svcrun "github.com/axondata/go-svcrun"
)

var (
	cfgPath string
	verbose bool
	legacy  bool

	cfg *svcrun.Config
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "svcrun",
		Short:         "Manage the local backend services",
		Long:          "Start, stop, and inspect the application's local backend services through supervisord.",
		Version:       svcrun.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetLevel(log.WarnLevel)
			if verbose {
				log.SetLevel(log.DebugLevel)
			}

			path := cfgPath
			if path == "" {
				path = defaultConfigPath()
			}
			var err error
			cfg, err = svcrun.LoadConfig(path)
			if err != nil {
				return err
			}
			log.Debug("configuration loaded", "path", path, "state_dir", cfg.StateDir)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to the configuration file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&legacy, "legacy", false, "manage the server directly instead of through supervisord")

	cmd.AddCommand(
		startCmd(),
		stopCmd(),
		restartCmd(),
		statusCmd(),
		logsCmd(),
		purgeCmd(),
		configCmd(),
	)
	return cmd
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".svcrun", svcrun.ConfigFile)
}

// fail logs a lifecycle error and returns it so cobra sets the exit status.
// Fatal errors are called out so the user knows no further control commands
// were attempted.
func fail(err error) error {
	if err == nil {
		return nil
	}
	if svcrun.IsFatal(err) {
		log.Error("supervisord did not come up; no control commands were issued", "err", err)
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}
