package logsvc

import (
	"fmt"
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/auth"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
)

var levels = [...]struct {
	name   string
	report func(...interface{})
}{
	levelDebug: {"DEBUG", rollbar.Debug},
	levelInfo:  {"INFO", rollbar.Info},
	levelWarn:  {"WARN", rollbar.Warning},
	levelError: {"ERROR", rollbar.Error},
	levelFatal: {"FATAL", rollbar.Critical},
}

// RollbarLogger writes every entry to a standard logger and reports it to Rollbar when reporting is enabled.
// Debug entries are dropped unless the app runs in debug mode.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(strings.ToLower(conf.Env))
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

// Enable turns Rollbar reporting on or off. The desktop build runs offline by default.
func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// args: error | map[string]interface{} | auth.Profile | auth.Session
func (l *RollbarLogger) log(lvl level, msg string, args []interface{}) {
	if lvl == levelDebug && !l.debug {
		return
	}

	var person bool
	reported := make([]interface{}, 0, len(args))
	l.std.Printf("[%s] %s", levels[lvl].name, msg)

	for _, arg := range args {
		switch v := arg.(type) {
		case auth.Profile:
			if !person {
				rollbar.SetPerson(v.ID, v.FullName, v.Email)
				person = true
			}
			l.std.Printf("\tprofile: %s <%s>", v.ID, v.Email)
		case auth.Session:
			if !person {
				rollbar.SetPerson(v.UserID, v.FullName, v.Email)
				person = true
			}
			l.std.Printf("\tsession: %s <%s>", v.UserID, v.Email)
		default:
			reported = append(reported, arg)
			l.std.Printf("\t%s", describe(arg))
		}
	}
	if !person {
		rollbar.ClearPerson()
	}
	levels[lvl].report(rollbarArgs(msg, reported)...)
}

// rollbarArgs shapes args the way rollbar accepts them: the message, at most one error
// and a single map of extras. Any other value is added to the extras as text.
func rollbarArgs(msg string, args []interface{}) []interface{} {
	out := []interface{}{msg}
	var extras map[string]interface{}
	addExtra := func(k string, v interface{}) {
		if extras == nil {
			extras = make(map[string]interface{})
		}
		extras[k] = v
	}

	var hasErr bool
	for i, arg := range args {
		switch v := arg.(type) {
		case error:
			if !hasErr {
				out = append(out, v)
				hasErr = true
				continue
			}
			addExtra(fmt.Sprintf("error%d", i), v.Error())
		case map[string]interface{}:
			for k, val := range v {
				addExtra(k, val)
			}
		default:
			addExtra(fmt.Sprintf("arg%d", i), describe(v))
		}
	}
	if extras != nil {
		out = append(out, extras)
	}
	return out
}

func describe(arg interface{}) string {
	if err, ok := arg.(error); ok {
		return "error: " + err.Error()
	}
	return fmt.Sprintf("%+v", arg)
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(levelDebug, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(levelInfo, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(levelWarn, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(levelError, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(levelFatal, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
