// Package config provides the photobox configuration: the session options,
// the YAML/TOML configuration file loader, and the options.json snapshot
// handed to the capture collaborator.
package config
