package ecs

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

const writeBorrowed = -1

// borrowFlag is a runtime read/write guard. Zero means free, a positive value
// counts live readers and writeBorrowed marks a single live writer.
type borrowFlag struct {
	state atomic.Int32
}

func (b *borrowFlag) acquireRead(t reflect.Type) {
	for {
		cur := b.state.Load()
		if cur == writeBorrowed {
			panic(fmt.Errorf("%w: %s is mutably borrowed", ErrBorrowConflict, t))
		}
		if b.state.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

func (b *borrowFlag) releaseRead() {
	b.state.Add(-1)
}

func (b *borrowFlag) acquireWrite(t reflect.Type) {
	if !b.state.CompareAndSwap(0, writeBorrowed) {
		panic(fmt.Errorf("%w: %s is already borrowed", ErrBorrowConflict, t))
	}
}

func (b *borrowFlag) releaseWrite() {
	b.state.Store(0)
}

func (b *borrowFlag) acquire(t reflect.Type, write bool) func() {
	if write {
		b.acquireWrite(t)
		return b.releaseWrite
	}
	b.acquireRead(t)
	return b.releaseRead
}
