package testutil

import (
	"sync"

	"github.com/trezcool/roster/core"
)

// Logger records log messages instead of reporting them.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, msg)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.record(msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.record(msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.record(msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.record(msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.record(msg) }
func (l *Logger) Sync() error                        { return nil }
