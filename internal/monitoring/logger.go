// Package monitoring routes diagnostic output from background workers and
// agents through a swappable sink, so tests can capture or mute it.
package monitoring

import "log"

// Logf emits one diagnostic line. Defaults to log.Printf.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the sink. nil mutes all diagnostics.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}
