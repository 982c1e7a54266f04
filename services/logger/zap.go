package logsvc

import (
	"go.uber.org/zap"

	"github.com/trezcool/darasa/core"
)

type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*ZapLogger)(nil)

// NewZapLogger builds the app logger: human-readable dev output when debug
// is on, JSON otherwise.
func NewZapLogger() (*ZapLogger, error) {
	var (
		zl  *zap.Logger
		err error
	)
	if core.Conf.GetBool("debug") {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: zl.Sugar()}, nil
}

// Sync flushes buffered entries; call it on shutdown.
func (l *ZapLogger) Sync() error { return l.sugar.Sync() }

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.sugar.Infow(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorw(msg, args...) }
