// Package config loads metatrack host configuration.
//
// Values come from a YAML file, a .env file and the process environment, in
// increasing order of precedence. Each key of the target struct is bound to
// its upper-cased path, so PIPELINE_DISPATCH_QUEUE_CAPACITY sets
// pipeline.dispatch.queue_capacity. With WithEnvPrefix("metatrack") the
// variable METATRACK_PIPELINE_DISPATCH_QUEUE_CAPACITY is read first.
//
//	var cfg config.Config
//	if err := config.Load("metatrack", &cfg); err != nil { ... }
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil { ... }
package config
