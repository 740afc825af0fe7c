// Package logging provides category-named zap loggers for the game
// master's subsystems. Categories can be silenced individually so a
// session transcript stays readable while one system is being debugged.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a subsystem.
type Category string

const (
	CategorySession   Category = "session"   // session lifecycle, turn pipeline
	CategoryIntent    Category = "intent"    // classification and routing
	CategoryAgents    Category = "agents"    // capability dispatch
	CategoryWorld     Category = "world"     // store reads/writes, validation
	CategoryMemory    Category = "memory"    // windows, compaction, recall
	CategoryExpansion Category = "expansion" // dynamic world expansion
	CategoryClock     Category = "clock"     // time advancement
	CategoryBoot      Category = "boot"      // startup and configuration
)

// Config controls logger construction.
type Config struct {
	Debug      bool            `yaml:"debug"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"` // nil = all enabled
}

var (
	mu      sync.RWMutex
	root    *zap.Logger = zap.NewNop()
	enabled map[string]bool
	sugared             = make(map[Category]*zap.SugaredLogger)
)

// Initialize builds the root zap logger. Call once at startup; before
// that, all loggers are no-ops.
func Initialize(cfg Config) error {
	zcfg := zap.NewProductionConfig()
	if !cfg.JSONFormat {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if cfg.Debug {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	root = logger
	enabled = cfg.Categories
	sugared = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the logger for a category. Disabled categories get a no-op.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := sugared[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := sugared[cat]; ok {
		return l
	}
	var l *zap.SugaredLogger
	if enabled != nil && !enabled[string(cat)] {
		l = zap.NewNop().Sugar()
	} else {
		l = root.Named(string(cat)).Sugar()
	}
	sugared[cat] = l
	return l
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Convenience helpers matching the categories used on hot paths.

// Session logs at info level on the session category.
func Session(format string, args ...any) { Get(CategorySession).Infof(format, args...) }

// SessionDebug logs at debug level on the session category.
func SessionDebug(format string, args ...any) { Get(CategorySession).Debugf(format, args...) }

// Intent logs at debug level on the intent category.
func Intent(format string, args ...any) { Get(CategoryIntent).Debugf(format, args...) }

// Agents logs at debug level on the agents category.
func Agents(format string, args ...any) { Get(CategoryAgents).Debugf(format, args...) }

// World logs at info level on the world category.
func World(format string, args ...any) { Get(CategoryWorld).Infof(format, args...) }

// Memory logs at debug level on the memory category.
func Memory(format string, args ...any) { Get(CategoryMemory).Debugf(format, args...) }

// Expansion logs at info level on the expansion category.
func Expansion(format string, args ...any) { Get(CategoryExpansion).Infof(format, args...) }
