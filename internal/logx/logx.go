// Package logx reproduces the teacher's package-function logging contract
// (log.DEBUG/log.TRACE/log.PrintfStdErr, env-var gated) rather than
// introducing a structured-logging dependency the retrieved pack never
// reaches for. Messages are colorized with goutils/ansi the same way
// pkg/graft/errors.go formats MultiError/WarningError text.
package logx

import (
	"fmt"
	"os"
	"sync"

	"github.com/starkandwayne/goutils/ansi"
)

var (
	mu      sync.Mutex
	debugOn bool
	traceOn bool
	once    sync.Once
)

func initFromEnv() {
	once.Do(func() {
		debugOn = os.Getenv("RECONCILE_DEBUG") != ""
		traceOn = os.Getenv("RECONCILE_TRACE") != ""
		if traceOn {
			debugOn = true
		}
	})
}

// SetDebug toggles debug-level output programmatically (tests use this
// rather than mutating the process environment).
func SetDebug(on bool) {
	initFromEnv()
	mu.Lock()
	defer mu.Unlock()
	debugOn = on
}

// SetTrace toggles trace-level output programmatically.
func SetTrace(on bool) {
	initFromEnv()
	mu.Lock()
	defer mu.Unlock()
	traceOn = on
	if on {
		debugOn = true
	}
}

// DEBUG prints a debug-level message to stderr when debug output is
// enabled, formatted with ansi color directives.
func DEBUG(format string, args ...interface{}) {
	initFromEnv()
	mu.Lock()
	on := debugOn
	mu.Unlock()
	if !on {
		return
	}
	printfStdErr("@y{DEBUG} "+format+"\n", args...)
}

// TRACE prints a trace-level message to stderr when trace output is
// enabled.
func TRACE(format string, args ...interface{}) {
	initFromEnv()
	mu.Lock()
	on := traceOn
	mu.Unlock()
	if !on {
		return
	}
	printfStdErr("@b{TRACE} "+format+"\n", args...)
}

// INFO prints an informational message unconditionally.
func INFO(format string, args ...interface{}) {
	printfStdErr("@g{INFO} "+format+"\n", args...)
}

// WARN prints a warning message unconditionally.
func WARN(format string, args ...interface{}) {
	printfStdErr("@Y{WARN} "+format+"\n", args...)
}

// ERROR prints an error message unconditionally.
func ERROR(format string, args ...interface{}) {
	printfStdErr("@r{ERROR} "+format+"\n", args...)
}

func printfStdErr(format string, args ...interface{}) {
	msg := ansi.Sprintf(format, args...)
	fmt.Fprint(os.Stderr, msg)
}
