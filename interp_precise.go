// interp_precise.go - Single-step precise interpreter.
//
// The slow path: one fetch, one decode-cache lookup (or re-decode), one
// handler invocation, one tracer callback, repeat. Used
// by --precise and whenever a tracer is installed, since the fast path's
// whole-block execution (interp_fast.go) cannot call out mid-block
// without destroying the performance the block-bytes lookahead buys.
package laemu

import "context"

func (m *Machine) runPrecise(ctx context.Context) error {
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

		pc := m.CPU.PC
		di, err := m.fetch()
		if err != nil {
			return err
		}
		if err := di.Handler.Invoke(m, di.Raw); err != nil {
			return err
		}
		m.CPU.InstructionCount++
		if m.Opts.Tracer != nil {
			m.Opts.Tracer(&m.CPU, di, pc)
		}
	}
}
