// validate.go validation of user configurable settings
package conf

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateSettings validates the loaded settings and returns an error
// describing every problem found.
func ValidateSettings(settings *Settings) error {
	var problems []string

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		problems = append(problems, err.Error())
	}
	if err := validateOutputSettings(&settings.Output); err != nil {
		problems = append(problems, err.Error())
	}
	if err := validateNotificationSettings(&settings.Notification); err != nil {
		problems = append(problems, err.Error())
	}
	if err := validateCatalogSettings(&settings.Catalog); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validateWebServerSettings(ws *WebServerSettings) error {
	if !ws.Enabled {
		return nil
	}
	port, err := strconv.Atoi(ws.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver port must be a number between 1 and 65535, got %q", ws.Port)
	}
	return nil
}

func validateOutputSettings(out *OutputSettings) error {
	if out.SQLite.Enabled && out.MySQL.Enabled {
		return fmt.Errorf("only one database type can be enabled at a time")
	}
	if !out.SQLite.Enabled && !out.MySQL.Enabled {
		return fmt.Errorf("either SQLite or MySQL output must be enabled")
	}
	if out.SQLite.Enabled && out.SQLite.Path == "" {
		return fmt.Errorf("SQLite database path must not be empty")
	}
	if out.MySQL.Enabled {
		if out.MySQL.Database == "" || out.MySQL.Host == "" {
			return fmt.Errorf("MySQL database and host must not be empty")
		}
		if port, err := strconv.Atoi(out.MySQL.Port); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("MySQL port must be a number between 1 and 65535, got %q", out.MySQL.Port)
		}
	}
	return nil
}

func validateNotificationSettings(n *NotificationSettings) error {
	if n.MaxNotifications <= 0 {
		return fmt.Errorf("notification maxnotifications must be greater than 0, got %d", n.MaxNotifications)
	}
	if n.Push.Enabled && len(n.Push.URLs) == 0 {
		return fmt.Errorf("notification push is enabled but no push URLs are configured")
	}
	for _, u := range n.Push.URLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("notification push URLs must not be empty strings")
		}
	}
	return nil
}

func validateCatalogSettings(c *CatalogSettings) error {
	if c.PageSize <= 0 {
		return fmt.Errorf("catalog pagesize must be greater than 0, got %d", c.PageSize)
	}
	if c.DescriptionPreview < 0 {
		return fmt.Errorf("catalog descriptionpreview must not be negative, got %d", c.DescriptionPreview)
	}
	return nil
}
