package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aiworkshop/slides/core"
)

// RollbarLogger logs through zap and reports warnings and errors to Rollbar.
type RollbarLogger struct {
	zap    *zap.SugaredLogger
	report bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(zl *zap.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{zap: zl.Sugar(), report: true}
}

// NewNopLogger discards everything; for tests.
func NewNopLogger() *RollbarLogger {
	return &RollbarLogger{zap: zap.NewNop().Sugar()}
}

// NewZapLogger builds the development (debug) or production zap logger.
func NewZapLogger(conf *core.Config) (*zap.Logger, error) {
	var zc zap.Config
	if conf.Debug {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zl, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return zl.With(zap.String("app", conf.AppName), zap.String("env", conf.Env)), nil
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
	l.report = enabled
}

// Sync flushes zap buffers and waits for pending Rollbar reports.
func (l *RollbarLogger) Sync() {
	_ = l.zap.Sync()
	if l.report {
		rollbar.Wait()
	}
}

// expected fmt: msg | error, map[string]interface{}, anything else
func (l *RollbarLogger) fields(args []interface{}) []interface{} {
	kv := make([]interface{}, 0, len(args)*2)
	for i, arg := range args {
		switch a := arg.(type) {
		case error:
			kv = append(kv, zap.Error(a))
		case map[string]interface{}:
			for k, v := range a {
				kv = append(kv, k, v)
			}
		default:
			kv = append(kv, fmt.Sprintf("arg%d", i), a)
		}
	}
	return kv
}

func (l *RollbarLogger) rollbarArgs(msg string, args []interface{}) []interface{} {
	rArgs := make([]interface{}, 0, len(args)+1)
	rArgs = append(rArgs, msg)
	for _, arg := range args {
		switch arg.(type) {
		case error, map[string]interface{}:
			rArgs = append(rArgs, arg)
		}
	}
	return rArgs
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.zap.Debugw(msg, l.fields(args)...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.zap.Infow(msg, l.fields(args)...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	if l.report {
		rollbar.Warning(l.rollbarArgs(msg, args)...)
	}
	l.zap.Warnw(msg, l.fields(args)...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	if l.report {
		rollbar.Error(l.rollbarArgs(msg, args)...)
	}
	l.zap.Errorw(msg, l.fields(args)...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	if l.report {
		rollbar.Critical(l.rollbarArgs(msg, args)...)
		rollbar.Wait()
	}
	l.zap.Fatalw(msg, l.fields(args)...)
}
