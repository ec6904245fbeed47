// Package config loads run configuration.
//
// A configuration file is either CUE or YAML. Both are unified with the
// embedded #Config schema (schema.cue), which supplies defaults and rejects
// unknown fields, bad modes and malformed durations:
//
//	mode:    "fast"
//	workers: 4
//	timeout: "2 sec"
//	params: count: 10
//
// REACTORRT_MODE, REACTORRT_WORKERS, REACTORRT_TIMEOUT, REACTORRT_KEEPALIVE,
// REACTORRT_MAX_MICROSTEPS and REACTORRT_DB override file values.
package config
