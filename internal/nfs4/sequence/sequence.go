// Package sequence implements the per-session slot and sequence number
// allocator that RFC 5661 §2.10.6 requires every COMPOUND on a session to
// carry via a leading SEQUENCE operation: a slot ID bounded by the
// session's configured slot count, and a sequence number that must
// increase by exactly one on every reuse of that slot.
package sequence

import (
	"context"
	"math/bits"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/marmos91/nfs4c/internal/result"
)

// Info is the {slot, sequence} pair a SEQUENCE operation packs onto a
// COMPOUND call.
type Info struct {
	Slot     uint32
	Sequence uint32
}

// Sequence is a held slot lease. The caller must call Release exactly
// once, after the COMPOUND using it has received its reply, to return the
// slot (and its semaphore permit) to the pool. Go has no destructor to do
// this automatically, unlike the RAII guard this type is modeled on.
type Sequence struct {
	Info
	owner *Sequencer
}

// Release returns the slot to the pool, making it available to the next
// Acquire caller.
func (s *Sequence) Release() {
	s.owner.freeSlot(s.Slot)
}

// Sequencer manages the fixed-size slot table negotiated at CREATE_SESSION
// time. A slot's sequence counter persists across acquisitions of that
// slot: RFC 5661 requires the server to reject any sequence number other
// than the slot's last-used value plus one, so the counter here must
// never reset while the session is alive.
type Sequencer struct {
	sem *semaphore.Weighted

	mu        sync.Mutex
	busy      []uint64
	sequences []uint32
}

// NewSequencer creates a sequencer with the given number of slots, as
// negotiated with the server's ca_maxrequests in CREATE_SESSION.
func NewSequencer(size int) *Sequencer {
	if size <= 0 {
		panic("sequence: size must be positive")
	}
	return &Sequencer{
		sem:       semaphore.NewWeighted(int64(size)),
		busy:      make([]uint64, (size+63)/64),
		sequences: make([]uint32, size),
	}
}

// allocateSlotLocked finds the lowest-numbered free slot. The semaphore
// guarantees a free slot exists by the time this runs, so an all-ones busy
// table here indicates a bookkeeping bug rather than a real exhaustion
// case.
func (s *Sequencer) allocateSlotLocked() int {
	for i := range s.busy {
		if s.busy[i] != ^uint64(0) {
			first := bits.TrailingZeros64(^s.busy[i])
			bit := uint64(1) << uint(first)
			index := i*64 + first
			s.busy[i] |= bit
			return index
		}
	}
	panic("sequence: no free slots")
}

func (s *Sequencer) freeSlot(slot uint32) {
	index := slot / 64
	shift := slot % 64
	bit := uint64(1) << shift

	s.mu.Lock()
	s.busy[index] &^= bit
	s.mu.Unlock()

	s.sem.Release(1)
}

// Acquire blocks until a slot is free (or ctx is done), then returns it
// with its sequence number incremented by one from its last use.
func (s *Sequencer) Acquire(ctx context.Context) (*Sequence, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, result.FromIOError(err)
	}

	s.mu.Lock()
	index := s.allocateSlotLocked()
	s.sequences[index]++
	seq := s.sequences[index]
	s.mu.Unlock()

	return &Sequence{
		Info:  Info{Slot: uint32(index), Sequence: seq},
		owner: s,
	}, nil
}

// GetMax returns the highest valid slot ID, for the sa_highest_slot field
// of the SEQUENCE operation.
func (s *Sequencer) GetMax() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(len(s.sequences) - 1)
}

// Capacity returns the total number of slots in the table.
func (s *Sequencer) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sequences)
}

// InFlight returns the number of slots currently held.
func (s *Sequencer) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, word := range s.busy {
		n += bits.OnesCount64(word)
	}
	return n
}
