// Package config loads and validates the pipeline's YAML configuration
// and, in watch mode, hot-reloads it when the file changes.
//
// Defaults mirror the reference simulation setup (8000-cell ring, 57600
// steps per day, six 600-step windows over Travel Time grouped by the
// coarse OD bucket), so a config file only needs to state what differs.
package config
