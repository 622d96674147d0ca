package service

import (
	"github.com/sirupsen/logrus"
)

// Level is the severity of a notification
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "info"
}

// Notification is a user-facing message about a non-fatal outcome.
type Notification struct {
	Level   Level
	Message string
}

// Notifier delivers notifications to the user.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *logrus.Logger
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(n Notification) {
	entry := l.Logger.WithField("notification", true)
	switch n.Level {
	case LevelError:
		entry.Error(n.Message)
	case LevelWarning:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}

// ChanNotifier forwards notifications to a channel, dropping them when the
// channel is full.
type ChanNotifier chan Notification

// Notify implements Notifier.
func (c ChanNotifier) Notify(n Notification) {
	select {
	case c <- n:
	default:
	}
}
