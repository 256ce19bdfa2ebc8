package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
)

func renderEntry(entry LogEntry, format LogFormat) (string, error) {
	if format == FormatJSON {
		data, err := sonic.Marshal(entry)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	line := fmt.Sprintf("%s [%s] %s", entry.Timestamp.Format("2006/01/02 15:04:05"), entry.Level, entry.Message)
	if fields := entry.SortedFields(); len(fields) > 0 {
		line += " " + strings.Join(fields, " ")
	}
	return line, nil
}

// ConsoleOutput writes logs to a terminal stream
type ConsoleOutput struct {
	writer io.Writer
	format LogFormat
	mu     sync.Mutex
}

// NewConsoleOutput creates a new console output
func NewConsoleOutput(writer io.Writer, format LogFormat) Output {
	return &ConsoleOutput{writer: writer, format: format}
}

func (c *ConsoleOutput) Write(entry LogEntry) error {
	line, err := renderEntry(entry, c.format)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = fmt.Fprintln(c.writer, line)
	return err
}

func (c *ConsoleOutput) Close() error { return nil }

// FileOutput appends logs to a file
type FileOutput struct {
	file   *os.File
	format LogFormat
	mu     sync.Mutex
}

// NewFileOutput opens path for appending.
func NewFileOutput(path string, format LogFormat) (Output, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{file: file, format: format}, nil
}

func (f *FileOutput) Write(entry LogEntry) error {
	line, err := renderEntry(entry, f.format)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err = fmt.Fprintln(f.file, line)
	return err
}

func (f *FileOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
