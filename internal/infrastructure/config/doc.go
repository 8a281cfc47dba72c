// Package config handles loading and validating tracker configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token, git token) should be
//     set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Configuration is loaded once at process start; nothing re-reads it
// during a cycle.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range cfg.Tracker.Regions {
//	    fmt.Println(r.Code, r.Name)
//	}
package config
