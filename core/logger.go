package core

// Logger logs to stdout and the error tracker.
// expected args fmt: error | map[string]interface{} | person (see services/logger)
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
