package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options описывает, куда и насколько подробно писать логи.
type Options struct {
	// Verbose включает уровень Debug.
	Verbose bool
	// File - путь к файлу с ротацией; пусто: только консоль.
	File string
	// Quiet поднимает порог консоли до Warn (CLI не засоряет вывод команд).
	Quiet bool
}

// New собирает zap-логгер: консоль в stderr и, при необходимости, файл с ротацией.
func New(opts Options) *zap.Logger {
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	consoleLevel := level
	if opts.Quiet && !opts.Verbose {
		consoleLevel = zapcore.WarnLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), consoleLevel),
	}
	if opts.File != "" {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, level))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}
