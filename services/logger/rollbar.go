package logsvc

import (
	"fmt"
	"io"
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/rs/zerolog"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/auth"
)

var exitFunc = os.Exit // mockable

// RollbarLogger reports to Rollbar and writes structured lines to out.
type RollbarLogger struct {
	zl zerolog.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(out io.Writer, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(out).Level(level).With().Timestamp().Str("app", conf.AppName).Logger()
	return &RollbarLogger{zl: zl}
}

// Named returns a copy of the logger tagging every line with component.
func (l RollbarLogger) Named(component string) *RollbarLogger {
	return &RollbarLogger{zl: l.zl.With().Str("component", component).Logger()}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, auth.Identity
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var idSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set logged in identity
		if id, ok := identity(arg); ok {
			if !idSet { // only set one identity
				rollbar.SetPerson(id.ID, id.Name, id.Email)
				idSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !idSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func identity(arg interface{}) (auth.Identity, bool) {
	switch v := arg.(type) {
	case auth.Identity:
		return v, true
	case *auth.Identity:
		if v != nil {
			return *v, true
		}
	}
	return auth.Identity{}, false
}

func (l RollbarLogger) print(level zerolog.Level, msg string, args []interface{}) {
	evt := l.zl.WithLevel(level)
	for i, arg := range args {
		switch v := arg.(type) {
		case error:
			evt = evt.Err(v)
		case map[string]interface{}:
			evt = evt.Fields(v)
		default:
			if id, ok := identity(arg); ok {
				evt = evt.Str("role", string(id.Role)).Str("identity", id.ID)
				continue
			}
			evt = evt.Interface(fmt.Sprintf("arg%d", i), v)
		}
	}
	evt.Msg(msg)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(zerolog.DebugLevel, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(zerolog.InfoLevel, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(zerolog.WarnLevel, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(zerolog.ErrorLevel, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print(zerolog.FatalLevel, msg, args)
	rollbar.Wait()
	exitFunc(1)
}
