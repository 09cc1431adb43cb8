package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate returns an aggregated error describing every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level))
	}
	if topic := c.Notifications.NtfyTopic; topic != "" &&
		!strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		errs = append(errs, fmt.Errorf("notifications.ntfy_topic: must be an http(s) URL, got %q", topic))
	}
	for i, entry := range c.Queue {
		if entry.Kind == "" {
			errs = append(errs, fmt.Errorf("queue[%d].kind: required", i))
		}
		if entry.Section == "" {
			errs = append(errs, fmt.Errorf("queue[%d].section: required", i))
			continue
		}
		if _, ok := c.Jobs[entry.Section]; !ok {
			errs = append(errs, fmt.Errorf("queue[%d].section: no [jobs.%s] table", i, entry.Section))
		}
	}
	return errors.Join(errs...)
}
