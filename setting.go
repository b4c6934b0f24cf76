package cfhe

import (
	"runtime"
)

// Setting holds the execution settings of a CompressedEngine.
type Setting struct {
	Workers int // goroutines used by Compress and EvaluateEquality, runtime.NumCPU() if not positive
}

func (s Setting) workers() int {
	if s.Workers <= 0 {
		return runtime.NumCPU()
	}
	return s.Workers
}
