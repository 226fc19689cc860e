package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger は構造化ログを出力するインターフェース。
type Logger interface {
	Info(msg string, fields ...any)
	Error(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Debug(msg string, fields ...any)
	Fatal(msg string, fields ...any)
	// With は指定フィールドを常に付与する子ロガーを返す。
	With(fields ...any) Logger
}

type zapLogger struct {
	logger *zap.SugaredLogger
}

// New は指定レベルでJSON出力するロガーを生成する。
// 未知のレベルが指定された場合はinfoとして扱う。
func New(level string) Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	logger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return &zapLogger{logger: logger.Sugar()}
}

// FromZap は既存のzap.LoggerをLoggerとして扱う。出力先を差し替えたいテストで使用する。
func FromZap(l *zap.Logger) Logger {
	return &zapLogger{logger: l.Sugar()}
}

// NewNop は何も出力しないロガーを返す。テストで使用する。
func NewNop() Logger {
	return &zapLogger{logger: zap.NewNop().Sugar()}
}

// parseLevel はレベル文字列をzapのレベルに変換する。
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *zapLogger) Info(msg string, fields ...any) {
	l.logger.Infow(msg, fields...)
}

func (l *zapLogger) Error(msg string, fields ...any) {
	l.logger.Errorw(msg, fields...)
}

func (l *zapLogger) Warn(msg string, fields ...any) {
	l.logger.Warnw(msg, fields...)
}

func (l *zapLogger) Debug(msg string, fields ...any) {
	l.logger.Debugw(msg, fields...)
}

func (l *zapLogger) Fatal(msg string, fields ...any) {
	l.logger.Fatalw(msg, fields...)
}

func (l *zapLogger) With(fields ...any) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}
