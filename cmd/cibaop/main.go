// Command cibaop runs an OpenID Provider serving Client Initiated
// Backchannel Authentication.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zitadel/ciba/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		envFiles   []string
	)
	root := &cobra.Command{
		Use:           "cibaop",
		Short:         "OpenID Provider for Client Initiated Backchannel Authentication",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFiles...)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path of the YAML configuration (env CIBA_CONFIG)")
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the configuration")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newMigrateCmd(&configPath))
	return root
}

// loadConfig falls back to CIBA_CONFIG, which may come from a dotenv file.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("CIBA_CONFIG")
	}
	return config.Load(path)
}
