/*
Package log provides structured logging for chandler using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level. Every provisioning step (reconciliation targets, instance
deploys, health-gate polls, config applies, backup runs) emits structured
lines through this package.

# Architecture

	┌──────────────────── LOGGING SYSTEM ────────────────────┐
	│                                                         │
	│  ┌───────────────────────────────────────────┐         │
	│  │            Global Logger                   │         │
	│  │  - Zerolog instance                        │         │
	│  │  - Initialized via log.Init()              │         │
	│  │  - Thread-safe for concurrent use          │         │
	│  └──────────────────┬────────────────────────┘         │
	│                     │                                   │
	│  ┌──────────────────▼────────────────────────┐         │
	│  │           Configuration                    │         │
	│  │  - Level: debug/info/warn/error            │         │
	│  │  - Format: JSON or console (human)         │         │
	│  │  - Output: stdout, file, or custom writer  │         │
	│  └──────────────────┬────────────────────────┘         │
	│                     │                                   │
	│  ┌──────────────────▼────────────────────────┐         │
	│  │         Context Loggers                    │         │
	│  │  - WithComponent("health")                 │         │
	│  │  - WithModule("database")                  │         │
	│  │  - WithInstance("quayside-db")             │         │
	│  │  - WithTarget("/srv/quayside/mysql")       │         │
	│  └───────────────────────────────────────────┘         │
	└─────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init() at the CLI boundary
  - Accessible from all chandler packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information (per-poll gate classification)
  - Info: General informational messages (default production level)
  - Warn: Potential issues (corrupted directory repaired, stale lock taken)
  - Error: Operation failures (validator rejection, gate exhaustion)
  - Fatal: Critical errors (process exits)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithModule: Add module name context (database, proxy, ...)
  - WithInstance: Add service instance context (quayside-db, ...)
  - WithTarget: Add reconciliation target or backup target context

# Usage

Initializing the logger:

	import "github.com/quayside/chandler/pkg/log"

	// JSON output (agent mode)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

	// Console output (interactive CLI runs)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
	})

Component loggers:

	logger := log.WithComponent("reconcile")
	logger.Info().
		Str("path", target.Path).
		Str("outcome", string(outcome)).
		Msg("target ensured")

Module context:

	logger := log.WithModule("database")
	logger.Warn().
		Int("attempt", attempt).
		Msg("instance restarting, still waiting")

Error logging:

	if err := applier.Apply(ctx, tmpl); err != nil {
		log.Logger.Error().
			Err(err).
			Str("template", tmpl.Name).
			Msg("config apply failed")
	}

# Output Formats

JSON format (machine-readable, agent mode):

	{"level":"info","component":"gate","instance":"quayside-db",
	 "attempt":12,"time":"2024-06-01T10:30:00Z","message":"instance ready"}

Console format (human-readable, interactive runs):

	10:30AM INF instance ready component=gate instance=quayside-db attempt=12

# Best Practices

Use structured fields rather than formatted strings:

	// Good
	logger.Info().Str("domain", domain).Msg("site registered")

	// Avoid
	logger.Info().Msgf("site %s registered", domain)

Keep per-poll noise at debug level; the health gate logs restart-loop
progress at a reduced frequency on purpose, and nothing else should flood
the log during a crash loop.

# Integration Points

This package is used by every other chandler package. The CLI initializes it
before any component runs; tests that need quiet output call Init with an
io.Discard writer.
*/
package log
