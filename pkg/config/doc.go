// Package config loads and validates the engine configuration. The file
// format is YAML; every section has working defaults, so a missing file or
// an empty document is a valid configuration. Validation runs through
// struct tags, and the log level can be overridden with NUMEVAL_LOG_LEVEL.
package config
