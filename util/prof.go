// util/prof.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"fmt"
	"os"
	"runtime/pprof"
)

// StartProfiling starts writing a CPU profile to cpuPath and, when
// memPath is set, opens it for a heap profile. Either path may be empty.
// The returned stop function finishes both profiles; it may be called
// more than once.
func StartProfiling(cpuPath, memPath string) (stop func(), err error) {
	var cpu, mem *os.File
	stop = func() {
		if cpu != nil {
			pprof.StopCPUProfile()
			cpu.Close()
			cpu = nil
		}
		if mem != nil {
			if err := pprof.WriteHeapProfile(mem); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", mem.Name(), err)
			}
			mem.Close()
			mem = nil
		}
	}

	if cpuPath != "" {
		f, err := os.Create(cpuPath)
		if err != nil {
			return func() {}, fmt.Errorf("%s: %w", cpuPath, err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return func() {}, fmt.Errorf("starting CPU profile: %w", err)
		}
		cpu = f
	}
	if memPath != "" {
		if mem, err = os.Create(memPath); err != nil {
			stop()
			return func() {}, fmt.Errorf("%s: %w", memPath, err)
		}
	}
	return stop, nil
}
