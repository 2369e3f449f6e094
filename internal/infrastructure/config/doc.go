// Package config handles loading and validating the Nest bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The Nest token and broker passwords should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - The HomeKit pin should be changed from the default before pairing
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Nest.APIURL)
package config
