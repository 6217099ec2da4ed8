// Package config provides configuration management for HPI Pulse.
//
// # Configuration Sources
//
// Configuration is layered, later sources overriding earlier ones:
//
//	1. Default values (Default)
//	2. A YAML file: $HPI_CONFIG_FILE, config.yaml or configs/config.yaml
//	3. Environment variables prefixed HPI_
//
// # Environment Variables
//
//	HPI_SERVER_PORT=8080
//	HPI_PATHS_DATA_DIR=/srv/hpi/data
//	HPI_LOGGING_LEVEL=debug
//	HPI_DATASET_SOURCES=Indices=Indices-2025-06.csv,Sales=Sales-2025-06.csv
//	HPI_DATASET_WATCH=false
//
// # Dataset Sources
//
// The dataset section declares the extracts to merge, in order. In YAML:
//
//	dataset:
//	  sources:
//	    - id: indices
//	      path: Indices-2025-06.csv
//	      namespace: Indices
//	    - id: sales
//	      path: Sales-2025-06.csv
//	      namespace: Sales
//
// Source names and namespaces must be unique, and paths are slash-separated
// and relative to the data directory.
package config
