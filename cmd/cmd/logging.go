// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ostafen/lmtrie/internal/env"
	"github.com/ostafen/lmtrie/internal/logger"
	"github.com/spf13/cobra"
)

// session bundles the console logger with the diagnostic logger handed to
// the model.
type session struct {
	console *logger.Logger
	diag    *slog.Logger
	logFile *os.File
	logPath string
}

func openSession(cmd *cobra.Command) (*session, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	logPath, _ := cmd.Flags().GetString("log-file")
	if logDir, _ := cmd.Flags().GetString("log-dir"); logPath == "" && logDir != "" {
		logPath = filepath.Join(logDir, fmt.Sprintf("%s_%s.log", env.AppName, GenSessionID()))
	}

	s := &session{
		console: logger.New(cmd.ErrOrStderr(), level),
		logPath: absPath(logPath),
	}

	if logPath == "" {
		s.diag = slog.New(s.console.Handler())
		return s, nil
	}

	s.diag, s.logFile, err = setupLogger(s.logPath, level.Slog())
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) Close() error {
	if s.logFile != nil {
		return s.logFile.Close()
	}
	return nil
}

// GenSessionID returns a timestamp in the "YYYYMMDD_HHMMSS" format.
func GenSessionID() string {
	return time.Now().Format("20060102_150405")
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// setupLogger initializes a new slog.Logger appending to logFilePath.
// The returned *os.File should be closed by the caller.
func setupLogger(logFilePath string, minLevel slog.Level) (*slog.Logger, *os.File, error) {
	logDir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}

	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %q: %w", logFilePath, err)
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{
		Level:     minLevel,
		AddSource: true,
	})
	return slog.New(handler), f, nil
}
