// Copyright 2026, Crucible Sciences, Inc.

package dispatch

import (
	"sync"
)

// Ledger tracks execution slots. The sum of reservations never exceeds the
// total; Reserve and Release are atomic so admission can be driven from
// completion goroutines as well as the run loop.
type Ledger struct {
	total uint
	// --
	free         uint
	reservations map[string]uint // key => slots
	mux          *sync.Mutex
}

func NewLedger(total uint) *Ledger {
	return &Ledger{
		total: total,
		// --
		free:         total,
		reservations: map[string]uint{},
		mux:          &sync.Mutex{},
	}
}

// Reserve takes slots for key if they are free, returning false without
// reserving anything when they are not.
func (l *Ledger) Reserve(key string, slots uint) bool {
	l.mux.Lock()
	defer l.mux.Unlock()
	if slots > l.free {
		return false
	}
	if _, ok := l.reservations[key]; ok {
		return false // key already holds a reservation
	}
	l.free -= slots
	l.reservations[key] = slots
	return true
}

// Release frees key's reservation. Releasing an unknown key is a no-op.
func (l *Ledger) Release(key string) {
	l.mux.Lock()
	defer l.mux.Unlock()
	slots, ok := l.reservations[key]
	if !ok {
		return
	}
	delete(l.reservations, key)
	l.free += slots
}

// Reserved returns the slots held by key, 0 if none.
func (l *Ledger) Reserved(key string) uint {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.reservations[key]
}

func (l *Ledger) Total() uint {
	return l.total
}

func (l *Ledger) Free() uint {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.free
}
