/*
Package log provides structured logging for the control plane using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all packages in this module

Context Loggers:
  - WithComponent: add a component name to all logs
  - WithWorkspaceID: add workspace_id context
  - WithBucket: add bucket context
  - WithServiceName: add service_name context

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	log.Info("control plane starting")

	assignLog := log.WithComponent("assignment").
		With().Str("workspace_id", id).Logger()
	assignLog.Info().Msg("workspace claimed from queue")
	assignLog.Error().Err(err).Msg("attach bucket failed")

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance initialized once at startup
  - Accessible from all packages without passing a logger down call chains

Context Logger Pattern:
  - Create child loggers carrying fixed fields (workspace_id, bucket, ...)
  - Pass the child logger into the call instead of repeating fields per line

# Security

Never log bucket credentials or dummy-credential markers at Info level or
above; the bucket validator itself does not log.

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
