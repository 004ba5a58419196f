package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/devindex/internal/config"
	"github.com/kailas-cloud/devindex/internal/version"
)

func newRootCmd() *cobra.Command {
	var env string

	cmd := &cobra.Command{
		Use:          "devindex",
		Short:        "Multi-tenant device inventory search service",
		Version:      version.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), env)
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(),
		"configuration environment, selects config/<env>.yaml")

	cmd.AddCommand(newServerCmd(&env))
	cmd.AddCommand(newMigrateCmd(&env))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newServerCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Serve the search and reindex APIs and run the reindex workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), *env)
		},
	}
}

func newMigrateCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Install the index template and create the device index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), *env)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
