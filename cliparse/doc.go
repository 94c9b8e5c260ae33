// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cliparse.LoadDotEnv()
	cfg, err := cliparse.ParseFlags(os.Args[1:])

Defaults come from the struct tags, the environment overrides them and CLI
flags override the environment. LoadDotEnv reads an optional .env file into
the environment first; it never replaces variables that are already set.

# Environment Variables

	PORT                    -p             default 3318
	DATABASE_TYPE           -t             sqlite, postgres or memory (default sqlite)
	DATABASE_URL            -d             required unless DATABASE_TYPE=memory
	FEED_BACKEND            -feed          memory, redis or nats (default memory)
	REDIS_URL               -redis         required for the redis feed
	NATS_URL                -nats          defaults to nats://127.0.0.1:4222
	TOKEN_SECRET            -token-secret  required
	TOKEN_TTL                              default 24h
	REQUEST_TIMEOUT                        default 10s
	REQUIRE_SIGN_IN_TO_VOTE                default false
	ALLOWED_ORIGINS                        comma separated, empty allows any
	LOG_LEVEL               -log-level     debug, info, warn or error
	LOG_FORMAT                             text or json
	OTEL_ENDPOINT                          OTLP/HTTP traces endpoint, empty disables tracing

# Example

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
*/
package cliparse
