package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// Named loggers for the packages of a host. Packages resolve theirs with Get
// when they are constructed, so Seed must run before pipelines are built.
var (
	namedMu sync.RWMutex
	named   = map[string]*Logger{}
)

// Register stores l under name, replacing any earlier logger.
func Register(name string, l *Logger) {
	namedMu.Lock()
	defer namedMu.Unlock()
	named[name] = l
}

// Get returns the logger registered under name. Unknown names get the global
// logger tagged with name as its component.
func Get(name string) *Logger {
	namedMu.RLock()
	l, ok := named[name]
	namedMu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// Seed registers base tagged with each component name. A level configured in
// cfg.Components for a name replaces the level of base for that logger. cfg
// may be nil.
func Seed(base *Logger, cfg *Config, names ...string) {
	for _, name := range names {
		l := base.WithComponent(name)
		if lvl, ok := cfg.LevelFor(name); ok {
			l = l.WithLevel(lvl)
		}
		Register(name, l)
	}
}

// WithLevel returns a copy of l that writes events at lvl and above.
func (l *Logger) WithLevel(lvl zerolog.Level) *Logger {
	return &Logger{zl: l.zl.Level(lvl), service: l.service}
}
