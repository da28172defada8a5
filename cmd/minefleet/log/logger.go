// Package log wires slog to a timestamped log file plus stdout. The file
// writer is buffered, FlushLog/FlushAndClose push pending lines to disk.
package log

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	logFile *os.File
	writer  *bufio.Writer
)

func NewLogger(debug bool, saveDirectory, fileName string) (*slog.Logger, error) {
	if saveDirectory == "" {
		saveDirectory = "logs"
	}
	if err := os.MkdirAll(saveDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("error creating log directory: %w", err)
	}

	if fileName == "" {
		fileName = fmt.Sprintf("minefleet-%s.log", time.Now().Format("2006-01-02-15_04_05"))
	}

	f, err := os.OpenFile(filepath.Join(saveDirectory, fileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}

	mu.Lock()
	logFile = f
	writer = bufio.NewWriter(f)
	out := io.MultiWriter(os.Stdout, writer)
	mu.Unlock()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), nil
}

// FlushLog pushes buffered lines to disk, keeping the file open.
func FlushLog() {
	mu.Lock()
	defer mu.Unlock()
	if writer != nil {
		_ = writer.Flush()
	}
}

// FlushAndClose flushes and closes the log file. Safe to call more than once.
func FlushAndClose() {
	mu.Lock()
	defer mu.Unlock()
	if writer != nil {
		_ = writer.Flush()
		writer = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
