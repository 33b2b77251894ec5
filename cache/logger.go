package cache

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger      *logrus.Logger
	loggerMutex sync.RWMutex
)

// SetLogger replaces the process wide logger, nil restores the logrus default
func SetLogger(l *logrus.Logger) {
	loggerMutex.Lock()
	logger = l
	loggerMutex.Unlock()
}

// GetLogger falls back to logrus' standard logger until the launcher set one
func GetLogger() *logrus.Logger {
	loggerMutex.RLock()
	defer loggerMutex.RUnlock()

	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}
