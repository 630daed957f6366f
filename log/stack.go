// log/stack.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (f StackFrame) String() string {
	return fmt.Sprintf("%s:%d:%s", f.File, f.Line, f.Function)
}

// Callstack returns up to 16 frames of the caller of the Logger method
// that calls it, stopping at main.main.
func Callstack() []StackFrame {
	var pcs [16]uintptr
	// Skip runtime.Callers, Callstack, and the Logger method.
	frames := runtime.CallersFrames(pcs[:runtime.Callers(3, pcs[:])])

	var stack []StackFrame
	for {
		frame, more := frames.Next()
		if frame.Function == "" {
			break
		}
		fn := strings.TrimPrefix(frame.Function, "github.com/mmp/approachviz/")
		stack = append(stack, StackFrame{
			File:     filepath.Base(frame.File),
			Line:     frame.Line,
			Function: strings.TrimPrefix(fn, "main."),
		})
		if !more || frame.Function == "main.main" {
			break
		}
	}
	return stack
}
