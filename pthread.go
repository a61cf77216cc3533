// pthread.go - Multi-threaded guest execution.
//
// Models a guest's pthread_create the way a real kernel would: a new
// thread gets its own register file and stack but shares the parent's
// address space outright. Concretely that means a new *Machine that
// shares the parent's Arena, decoded segment and syscall table by
// reference, with a freshly zeroed CPUState of its own — so a store
// through one thread's GPR-computed address is immediately visible to
// every other thread's loads, exactly like real shared memory. Run with
// golang.org/x/sync/errgroup (already in the module graph for its
// structured-concurrency idiom) so the first thread to fault cancels the
// rest; a thread that exits normally returns nil and cancels nothing.
package laemu

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Fork creates a new Machine sharing this Machine's Arena, decoded
// segment and syscall bindings, with a fresh register file. entry and
// stackTop seed the new thread's PC and stack pointer ($sp, r3); arg is
// placed in a0 as Linux's clone()/pthread contract passes the thread's
// start-routine argument.
func (m *Machine) Fork(entry, stackTop, arg uint64) *Machine {
	child := &Machine{
		Arena:           m.Arena,
		registry:        m.registry,
		segKey:          m.segKey,
		seg:             m.seg,
		Opts:            m.Opts,
		syscalls:        m.syscalls,
		fallbackSyscall: m.fallbackSyscall,
		UserData:        m.UserData,
		brk:             m.brk,
		tid:             nextTid.Add(1),
	}
	child.CPU.Reset(entry)
	child.CPU.SetGPR(regSP, stackTop)
	child.CPU.SetGPR(regA0, arg)
	if m.registry != nil {
		m.registry.mu.Lock()
		m.registry.refs[m.segKey]++
		m.registry.mu.Unlock()
	}
	return child
}

// RunThreadGroup runs a set of Machines (typically produced by Fork)
// concurrently, one goroutine per thread, and returns the first
// non-nil error any of them returns. Every thread's Run is given the
// same context, so cancelling ctx (or one thread's own fault, via
// errgroup's first-error cancellation) stops the rest promptly — a
// faulting thread does not leave its siblings spinning.
func RunThreadGroup(ctx context.Context, threads []*Machine) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range threads {
		t := t
		g.Go(func() error {
			return t.Run(gctx)
		})
	}
	return g.Wait()
}
