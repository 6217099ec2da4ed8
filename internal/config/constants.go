package config

import "time"

// Application constants for HPI Pulse.
const (
	AppName    = "HPI Pulse"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. HPI_SERVER_PORT.
	EnvPrefix = "HPI"
	// EnvConfigFile points at an explicit YAML config file.
	EnvConfigFile = "HPI_CONFIG_FILE"

	// File paths, relative to the base directory.
	DefaultDataDir = "data"
	DefaultLogsDir = "logs"

	// NationwideRegion is the aggregate region pinned first in region lists.
	NationwideRegion = "United Kingdom"

	DefaultMergeConcurrency = 4
	DefaultCacheEntries     = 4
	DefaultHeadRows         = 10
	DefaultWatchDebounce    = 500 * time.Millisecond
	DefaultMergeTimeout     = 2 * time.Minute

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
)
