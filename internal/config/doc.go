// Package config provides the configuration for footprint: built-in
// defaults, validation, the optional .footprint YAML file and the XDG
// directories used for run history.
//
// Precedence, lowest first: defaults, configuration file, command-line flags.
package config
