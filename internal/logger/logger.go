package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const service = "devmeet"

// Options select the log format. Output defaults to stdout.
type Options struct {
	JSON   bool
	Debug  bool
	Output io.Writer
}

func New(opts Options) *zap.Logger {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	encCfg := zapcore.EncoderConfig{
		MessageKey:     "step",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "caller",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var (
		encoder zapcore.Encoder
		fields  []zap.Field
	)
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(encCfg)
		// log collectors group by service, a terminal does not need it
		fields = append(fields, zap.String("service", service))
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), level)

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
		zap.Fields(fields...),
	)
}
