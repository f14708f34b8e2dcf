// Package logger provides structured logging for metatrack using zerolog.
//
// It supports JSON and console output, level configuration, and
// component- and track-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("metadata").WithTrack(2, "id3-main")
//	log.Debug("sample parsed", logger.Fields(logger.FieldTimeUs, 100000))
package logger
