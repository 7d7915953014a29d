// Package logger provides structured logging for profilescout on top of zerolog.
//
// A Logger is created from config.LoggingConfig and writes either colored console
// lines or JSON. When a log file is configured it receives JSON in addition to the
// console output.
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("term", q.Term).Info("Fetching query")
//	log.InfoWithFields("Run finished", map[string]interface{}{"accepted": 12})
//
// Components receive a Logger explicitly. The package-level functions (Info, WithField,
// ...) use a global logger set up by Initialize and exist for the CLI layer.
//
// NewTestLogger captures messages for assertions and NewNopLogger discards them.
package logger
