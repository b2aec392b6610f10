package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	mu          sync.Mutex
	verboseMode bool
	infoLogger  *log.Logger
	debugLogger *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
)

func init() {
	// Diagnostics go to stderr so stdout only carries the report.
	SetOutput(os.Stderr)
}

// SetOutput redirects every logger to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	infoLogger = log.New(w, "", 0)
	debugLogger = log.New(w, "", 0) // Debug gets a timestamp prefix
	warnLogger = log.New(w, "WARNING: ", 0)
	errorLogger = log.New(w, "ERROR: ", 0)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(verbose bool) {
	mu.Lock()
	defer mu.Unlock()
	verboseMode = verbose
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verboseMode
}

func getTimestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

// Debugf logs a formatted debug message if verbose mode is enabled.
// Includes a timestamp.
func Debugf(format string, v ...interface{}) {
	if !IsVerbose() {
		return
	}
	mu.Lock()
	l := debugLogger
	mu.Unlock()
	l.Printf("[%s] DEBUG: %s", getTimestamp(), fmt.Sprintf(format, v...))
}

// Infof logs a formatted informational message.
func Infof(format string, v ...interface{}) {
	mu.Lock()
	l := infoLogger
	mu.Unlock()
	l.Printf(format, v...)
}

// Warnf logs a formatted warning. Warnings never stop a run.
func Warnf(format string, v ...interface{}) {
	mu.Lock()
	l := warnLogger
	mu.Unlock()
	l.Printf(format, v...)
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...interface{}) {
	mu.Lock()
	l := errorLogger
	mu.Unlock()
	l.Printf(format, v...)
}
