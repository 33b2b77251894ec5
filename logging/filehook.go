package logging

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileHook writes every entry as one json line to a file, next to the
// human readable output on stderr
type FileHook struct {
	mu        sync.Mutex
	file      *os.File
	formatter *logrus.JSONFormatter
	levels    []logrus.Level
}

func NewFileHook(path string, minimum logrus.Level) (*FileHook, error) {
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open file for filehook: %v\n", err)
		return nil, err
	}

	var levels []logrus.Level
	for _, level := range logrus.AllLevels {
		if level <= minimum {
			levels = append(levels, level)
		}
	}

	return &FileHook{
		file:      logFile,
		formatter: &logrus.JSONFormatter{},
		levels:    levels,
	}, nil
}

func (hook *FileHook) Fire(entry *logrus.Entry) error {
	line, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	_, err = hook.file.Write(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to write to filehook: %v\n", err)
	}
	return err
}

func (hook *FileHook) Levels() []logrus.Level {
	return hook.levels
}

func (hook *FileHook) Close() error {
	hook.mu.Lock()
	defer hook.mu.Unlock()
	return hook.file.Close()
}
