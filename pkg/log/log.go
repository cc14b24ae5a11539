// Package log provides the structured logger used across docvault: a thin
// wrapper over github.com/rs/zerolog with a per-package enable/disable
// registry and a dev/prod output switch, adapted from the teacher's
// pkg/log — trimmed to the chainable Event API (Error()/Warn()/Info()/
// Debug() returning *zerolog.Event) that every command service, the job
// queue and the sync dispatcher build their log lines with.
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.CallerSkipFrameCount = 3
}

var pkgs []string
var enabledLoggers = map[string]*zerolog.Logger{}

// Out is the log output writer.
var Out io.Writer = os.Stderr

// Mode selects console-formatted ("dev") or JSON ("prod") output.
var Mode = "dev"

// Logger is a per-package handle onto the shared zerolog output.
type Logger struct {
	pkg string
}

// ListRegisteredPackages returns the names of all packages that have
// called New, regardless of whether logging is currently enabled for them.
func ListRegisteredPackages() []string {
	return pkgs
}

// ListEnabledPackages returns the names of packages with logging enabled.
func ListEnabledPackages() []string {
	out := []string{}
	for k, l := range enabledLoggers {
		if l.GetLevel() != zerolog.Disabled {
			out = append(out, k)
		}
	}
	return out
}

// EnableAll enables every registered package's logger.
func EnableAll() {
	for _, pkg := range pkgs {
		Enable(pkg)
	}
}

// Enable turns on real output for pkg's logger.
func Enable(pkg string) {
	zl := build(pkg)
	enabledLoggers[pkg] = zl
}

// Disable silences pkg's logger.
func Disable(pkg string) {
	nop := zerolog.Nop()
	enabledLoggers[pkg] = &nop
}

func build(pkg string) *zerolog.Logger {
	zl := zerolog.New(Out).With().Str("pkg", pkg).Timestamp().Caller().Logger()
	if Mode == "" || Mode == "dev" {
		zl = zl.Output(zerolog.ConsoleWriter{Out: Out})
	}
	return &zl
}

// New registers pkg and returns a Logger for it. Logging is enabled by
// default so a package that never calls Enable/Disable still logs —
// callers that want silence call Disable(pkg) explicitly.
func New(pkg string) *Logger {
	pkgs = append(pkgs, pkg)
	enabledLoggers[pkg] = build(pkg)
	return &Logger{pkg: pkg}
}

func (l *Logger) zl() *zerolog.Logger {
	if zl, ok := enabledLoggers[l.pkg]; ok {
		return zl
	}
	nop := zerolog.Nop()
	return &nop
}

// Debug starts a debug-level log event.
func (l *Logger) Debug() *zerolog.Event { return l.zl().Debug() }

// Info starts an info-level log event.
func (l *Logger) Info() *zerolog.Event { return l.zl().Info() }

// Warn starts a warn-level log event.
func (l *Logger) Warn() *zerolog.Event { return l.zl().Warn() }

// Error starts an error-level log event.
func (l *Logger) Error() *zerolog.Event { return l.zl().Error() }
