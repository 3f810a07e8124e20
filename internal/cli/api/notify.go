package api

import "go.uber.org/zap"

// Notifier показывает пользователю ошибки запросов (toast в UI, строка в CLI).
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc адаптирует функцию к Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

// LogNotifier пишет уведомления в лог.
type LogNotifier struct {
	Logger *zap.SugaredLogger
}

func (n LogNotifier) Notify(msg string) {
	if n.Logger != nil {
		n.Logger.Warnw("Request failed", "message", msg)
	}
}
