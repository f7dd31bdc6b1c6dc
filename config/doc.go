// Package config loads the cellrun service configuration.
//
// Values are layered, later sources winning:
//
//  1. [Default]
//  2. a YAML file (optional)
//  3. a .env file (optional), whose entries become environment variables
//  4. CELLRUN_* environment variables
//
// Command-line flags are applied on top by the caller. [Config.Validate]
// runs last.
package config
