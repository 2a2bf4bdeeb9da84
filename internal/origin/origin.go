// Package origin attributes audited values to the application code that
// produced them.
//
// A Resolver walks a backtrace from the innermost frame outward and returns
// the first frame that belongs neither to this module nor to the Go runtime.
// The backtrace is an explicit capability (Frames) so tests and callers
// without stack access can supply their own.
package origin

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// UnknownFunction is reported when no external frame exists.
const UnknownFunction = "Unknown"

// ModulePath is the import path prefix treated as internal by default.
const ModulePath = "github.com/roach88/lineage"

// maxDepth bounds the number of frames captured per lookup.
const maxDepth = 32

// Frames yields stack frames innermost first.
// *runtime.Frames satisfies it.
type Frames interface {
	Next() (frame runtime.Frame, more bool)
}

// Frame is a resolved call site.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Unknown is the frame returned when resolution finds nothing.
var Unknown = Frame{Function: UnknownFunction}

// IsUnknown reports whether f is the Unknown sentinel.
func (f Frame) IsUnknown() bool {
	return f.Function == UnknownFunction && f.File == ""
}

// String formats the frame as "pkg.Func(file.go:42)".
func (f Frame) String() string {
	if f.IsUnknown() {
		return UnknownFunction
	}
	var b strings.Builder
	b.WriteString(f.Function)
	if f.File != "" {
		b.WriteByte('(')
		b.WriteString(filepath.Base(f.File))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(f.Line))
		b.WriteByte(')')
	}
	return b.String()
}

// Resolver finds the first frame outside a set of internal namespaces.
// A Resolver is immutable and safe for concurrent use.
type Resolver struct {
	internal []string
}

// runtimePrefixes cover goroutine bootstrap and runtime helpers.
var runtimePrefixes = []string{"runtime.", "runtime/"}

// NewResolver returns a resolver that treats the given function-name
// prefixes, plus the Go runtime, as internal.
func NewResolver(internal ...string) *Resolver {
	prefixes := make([]string, 0, len(internal)+len(runtimePrefixes))
	prefixes = append(prefixes, internal...)
	prefixes = append(prefixes, runtimePrefixes...)
	return &Resolver{internal: prefixes}
}

// DefaultResolver treats every package of this module as internal.
func DefaultResolver() *Resolver {
	return NewResolver(ModulePath+".", ModulePath+"/internal/")
}

// With returns a copy of r that also treats prefixes as internal.
func (r *Resolver) With(prefixes ...string) *Resolver {
	internal := make([]string, 0, len(r.internal)+len(prefixes))
	internal = append(internal, r.internal...)
	internal = append(internal, prefixes...)
	return &Resolver{internal: internal}
}

// IsInternal reports whether function belongs to an internal namespace.
func (r *Resolver) IsInternal(function string) bool {
	for _, p := range r.internal {
		if strings.HasPrefix(function, p) {
			return true
		}
	}
	return false
}

// Resolve returns the first frame whose function is not internal, or
// Unknown when every frame is.
func (r *Resolver) Resolve(frames Frames) Frame {
	if frames == nil {
		return Unknown
	}
	for {
		f, more := frames.Next()
		if f.Function != "" && !r.IsInternal(f.Function) {
			return Frame{Function: f.Function, File: f.File, Line: f.Line}
		}
		if !more {
			return Unknown
		}
	}
}

// Caller resolves the current goroutine's stack. skip counts frames above
// the caller of Caller, as with runtime.Callers.
func (r *Resolver) Caller(skip int) Frame {
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	if n == 0 {
		return Unknown
	}
	return r.Resolve(runtime.CallersFrames(pcs[:n]))
}
