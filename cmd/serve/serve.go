package serve

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fernwick/speciarium/internal/catalog"
	"github.com/fernwick/speciarium/internal/conf"
)

// Command creates the serve command, running the catalog web application.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the species catalog web application",
		Long:  "Start the web server hosting the species catalog pages and the JSON API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return catalog.Serve(settings)
		},
	}

	// Set up flags specific to the 'serve' command
	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the web server")
	cmd.Flags().StringVar(&settings.Output.SQLite.Path, "dbpath", viper.GetString("output.sqlite.path"), "Path to the SQLite database file")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
