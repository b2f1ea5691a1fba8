// Package logging builds the zap loggers used by discuitsctl.
//
// Two encodings are supported: console, a colored single-line format for
// terminals, and json for log collectors. Both write to stderr so that
// command output on stdout stays machine readable.
package logging
