// Package config loads service configuration from environment variables.
//
// # Overview
//
// Every setting has a default; LoadConfig reads the environment once at
// startup and runs Validate before returning.
//
// Server settings:
//
//	SKYSEARCH_HOST="0.0.0.0"
//	SKYSEARCH_PORT="8080"
//	SKYSEARCH_HEALTH_PORT="9090"
//	SKYSEARCH_READ_TIMEOUT="15s"
//	SKYSEARCH_SHUTDOWN_TIMEOUT="30s"
//
// Store settings:
//
//	SKYSEARCH_STORE_DRIVER="postgres"  # postgres or sqlite3
//	SKYSEARCH_STORE_URL="postgres://localhost/skysearch?sslmode=disable"
//	SKYSEARCH_STORE_REPLICA_URLS="postgres://replica1/skysearch,postgres://replica2/skysearch"
//	SKYSEARCH_STORE_MAX_CONNS="20"
//
// Cache settings:
//
//	SKYSEARCH_CACHE_ENABLED="true"
//	SKYSEARCH_L1_CACHE_SIZE="1024"
//	SKYSEARCH_CACHE_TTL="30s"
//	SKYSEARCH_REDIS_URL="redis://localhost:6379"  # optional shared tier
//
// Search settings:
//
//	SKYSEARCH_DEFAULT_LIMIT="20"
//	SKYSEARCH_MAX_LIMIT="100"
//	SKYSEARCH_KINDS_FILE="/etc/skysearch/kinds.yaml"  # optional
//	SKYSEARCH_COUNT_SCHEDULE="@every 5m"
//
// Rate limit settings:
//
//	SKYSEARCH_RATE_LIMIT_ENABLED="false"
//	SKYSEARCH_RATE_LIMIT_REQUESTS="60"  # per window, per client
//	SKYSEARCH_RATE_LIMIT_WINDOW="1m"
//	SKYSEARCH_RATE_LIMIT_BURST="10"
//	SKYSEARCH_TRUST_PROXY_HEADERS="false"
//
// Observability settings:
//
//	SKYSEARCH_LOG_LEVEL="info"
//	SKYSEARCH_METRICS_ENABLED="true"
//	SKYSEARCH_OTEL_ENABLED="false"
//	SKYSEARCH_OTEL_ENDPOINT="localhost:4317"
//	SKYSEARCH_OTEL_SAMPLE_RATIO="1.0"
package config
