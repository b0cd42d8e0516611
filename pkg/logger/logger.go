package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init 初始化全局 zap logger，并注册为 zap.L()
// env 为 "dev" 时使用 console 编码方便本地调试，其余环境输出 JSON
func Init(level, env string) error {
	var lv zapcore.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		lv = zapcore.InfoLevel
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if env == "dev" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), lv)
	log := zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(log)
	return nil
}

// Sync 刷新缓冲区，进程退出前调用
func Sync() {
	_ = zap.L().Sync()
}
