package core

// Logger is any service that can log & report application events.
// expected args fmt: error | map[string]interface{}
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
	Sync() error
}

// LogPerson identifies the authenticated account an event happened for.
type LogPerson struct {
	ID       string
	Username string
}
