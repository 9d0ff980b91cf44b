package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	svcrun "github.com/axondata/go-svcrun"
)

func startCmd() *cobra.Command {
	var (
		port    int
		develop bool
		service string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := svcrun.NewServer(cfg)
			return fail(srv.Start(cmd.Context(), svcrun.StartOptions{
				Port:    port,
				Dev:     develop,
				Legacy:  legacy,
				Service: service,
			}))
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (defaults to the configured port)")
	cmd.Flags().BoolVarP(&develop, "develop", "d", false, "start the server in developer mode")
	cmd.Flags().StringVarP(&service, "service", "s", "", "start a single service instead of the whole group")
	return cmd
}

func stopCmd() *cobra.Command {
	var service string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := svcrun.NewServer(cfg)
			return fail(srv.Stop(cmd.Context(), svcrun.StopOptions{
				Legacy:  legacy,
				Service: service,
			}))
		},
	}
	cmd.Flags().StringVarP(&service, "service", "s", "", "stop a single service instead of the whole group")
	return cmd
}

func restartCmd() *cobra.Command {
	var (
		port    int
		develop bool
		service string
	)
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := svcrun.NewServer(cfg)
			return fail(srv.Restart(cmd.Context(), svcrun.StartOptions{
				Port:    port,
				Dev:     develop,
				Legacy:  legacy,
				Service: service,
			}))
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (defaults to the running server's port)")
	cmd.Flags().BoolVarP(&develop, "develop", "d", false, "restart the server in developer mode")
	cmd.Flags().StringVarP(&service, "service", "s", "", "restart a single service instead of the whole group")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query the server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := svcrun.NewServer(cfg)
			return fail(srv.Status(cmd.Context(), legacy))
		},
	}
}

func logsCmd() *cobra.Command {
	var service string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Stream a service's logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := svcrun.NewServer(cfg)
			return fail(srv.Logs(cmd.Context(), svcrun.LogsOptions{
				Legacy:  legacy,
				Service: service,
			}))
		},
	}
	cmd.Flags().StringVarP(&service, "service", "s", "", "service whose logs to stream")
	return cmd
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Shut everything down and remove all generated files",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := svcrun.NewServer(cfg)
			return fail(srv.Purge(cmd.Context(), legacy))
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [key=value ...]",
		Short: "Show or update the persisted configuration",
		Long: "Without arguments, prints the current configuration. With key=value " +
			"arguments, applies each override and persists the result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				fmt.Fprint(os.Stdout, string(data))
				return nil
			}

			for _, pair := range args {
				if err := cfg.Set(pair); err != nil {
					return fail(err)
				}
				log.Debug("configuration updated", "pair", pair)
			}
			return fail(cfg.Save())
		},
	}
}
