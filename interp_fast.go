// interp_fast.go - Threaded-bytecode fast-path interpreter.
//
// Inside one straight-line run (a stretch of
// instructions with no divergent control flow between them, as recorded
// in BlockBytes by segment.go's forward pass), the loop indexes directly
// into the decoded segment's instruction slice instead of re-validating
// PC alignment and re-checking segment bounds before every single
// instruction the way fetch() (and therefore the precise interpreter)
// does. Both interpreters share the exact same Handler.Invoke call per
// instruction, so they are structurally guaranteed to compute identical
// results — the fast path only removes redundant bookkeeping on the
// common case, never changes what runs.
package laemu

import "context"

func (m *Machine) runFast(ctx context.Context) error {
	for {
		if m.exited {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.InstructionLimitReached() {
			return nil
		}

		if m.seg != nil {
			if idx, ok := m.segIndex(m.CPU.PC); ok {
				if err := m.runBlock(idx); err != nil {
					return err
				}
				continue
			}
		}

		di, err := m.fetch()
		if err != nil {
			return err
		}
		if err := di.Handler.Invoke(m, di.Raw); err != nil {
			return err
		}
		m.CPU.InstructionCount++
	}
}

// segIndex returns the instruction-slice index for pc within the
// current segment, or false if pc falls outside it or has been
// invalidated (BcInvalid), which pushes the caller back to the slow
// re-decode path in fetch().
func (m *Machine) segIndex(pc uint64) (int, bool) {
	if pc < m.seg.BasePC || pc >= m.seg.BasePC+m.seg.Length || pc&3 != 0 {
		return 0, false
	}
	idx := int((pc - m.seg.BasePC) / 4)
	if m.seg.Instrs[idx].Bytecode == BcInvalid {
		return 0, false
	}
	return idx, true
}

// runBlock executes the straight-line run starting at idx, stopping
// either at the run's end (BlockBytes exhausted) or the moment a
// divergent instruction redirects PC outside of sequential order —
// whichever comes first. Because every non-divergent handler leaves PC
// at its own address+4 (decode_int.go's advance helper), the loop can
// simply increment idx in lockstep rather than recomputing segIndex
// after every instruction.
func (m *Machine) runBlock(idx int) error {
	seg := m.seg
	run := seg.Instrs[idx].BlockBytes / 4
	for i := uint32(0); i < run; i++ {
		if m.InstructionLimitReached() {
			return nil
		}
		di := seg.Instrs[idx+int(i)]
		if di.Bytecode == BcInvalid {
			// Invalidated by an executable write: hand back to runFast,
			// whose segIndex check sends this PC to fetch() for a re-decode.
			return nil
		}
		if err := di.Handler.Invoke(m, di.Raw); err != nil {
			return err
		}
		m.CPU.InstructionCount++
		if m.exited {
			return nil
		}
	}
	return nil
}
