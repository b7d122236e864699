// Package config loads and validates YAML configuration for the realtime
// client tools. Values support ${VAR} environment expansion; unset optional
// fields receive defaults before validation.
package config
