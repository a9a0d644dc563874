// defaults.go default values for viper configuration
package conf

import (
	"github.com/spf13/viper"
)

// setDefaultConfig sets the default values for the configuration parameters.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Main settings
	viper.SetDefault("main.name", "Speciarium")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "speciarium.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	// Web server settings
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")

	// Output settings
	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "speciarium.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "speciarium")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "speciarium")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	// Notification settings
	viper.SetDefault("notification.debug", false)
	viper.SetDefault("notification.maxnotifications", 1000)
	viper.SetDefault("notification.push.enabled", false)
	viper.SetDefault("notification.push.urls", []string{})

	// Catalog settings
	viper.SetDefault("catalog.pagesize", 25)
	viper.SetDefault("catalog.descriptionpreview", 120)
}
