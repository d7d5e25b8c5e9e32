package ecs

import "runtime"

// DefaultChunkSize is the number of matches a ParForEach worker handles at once.
const DefaultChunkSize = 256

// Parallelism configures the worker pools of a World. Store it as a resource to
// override the defaults; both the Schedule and Query.ParForEach read it.
type Parallelism struct {
	// Workers bounds the number of goroutines. Values below 1 mean GOMAXPROCS.
	Workers int
	// ChunkSize is the number of matches per ParForEach task.
	ChunkSize int
}

func (p Parallelism) normalized() Parallelism {
	if p.Workers < 1 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	if p.ChunkSize < 1 {
		p.ChunkSize = DefaultChunkSize
	}
	return p
}

func (w *World) parallelism() Parallelism {
	if p, ok := GetResource[Parallelism](w); ok {
		return p.normalized()
	}
	return Parallelism{}.normalized()
}
