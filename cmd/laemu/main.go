// Command laemu runs a statically linked LoongArch64 ELF binary under
// user-mode emulation.
//
// The flag package (stdlib) is used for argument parsing rather than a
// third-party CLI library — see DESIGN.md.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/intuitionamiga/laemu"
)

const defaultMemory = 256 << 20 // 256 MiB, generous for a static LoongArch binary's .text+.data+stack

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := flag.NewFlagSet("laemu", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "print every executed instruction")
	fs.BoolVar(verbose, "verbose", false, "print every executed instruction")
	silent := fs.Bool("s", false, "suppress all emulator-generated output")
	fs.BoolVar(silent, "silent", false, "suppress all emulator-generated output")
	timing := fs.Bool("t", false, "print wall-clock run time on exit")
	fs.BoolVar(timing, "timing", false, "print wall-clock run time on exit")
	stats := fs.Bool("stats", false, "print a bytecode-frequency histogram on exit")
	precise := fs.Bool("precise", false, "force the single-step interpreter")
	fuel := fs.Uint64("f", 0, "maximum instructions to execute (0 = unlimited)")
	fs.Uint64Var(fuel, "fuel", 0, "maximum instructions to execute (0 = unlimited)")
	memory := fs.Uint64("m", defaultMemory, "guest address space size in bytes")
	fs.Uint64Var(memory, "memory", defaultMemory, "guest address space size in bytes")

	if err := fs.Parse(argv); err != nil {
		return 2
	}
	args := fs.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: laemu [flags] <elf-path> [guest-args...]")
		fs.PrintDefaults()
		return 2
	}

	path, guestArgs := args[0], args[1:]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "laemu: %v\n", err)
		return 1
	}

	m := laemu.NewMachine(*memory)
	loaded, err := m.LoadELF(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "laemu: loading %s: %v\n", path, err)
		return 1
	}
	defer m.Release()

	setupStack(m, loaded, guestArgs)

	m.Opts = laemu.Options{MaxInstructions: *fuel, Precise: *precise}
	if *verbose {
		m.Opts.Precise = true
		m.Opts.Tracer = func(cpu *laemu.CPUState, di laemu.DecodedInstruction, pc uint64) {
			if *silent {
				return
			}
			fmt.Fprintf(os.Stderr, "0x%08x: %s\n", pc, di.Printer(cpu, di.Raw, pc))
		}
	}

	host := NewTerminalHost()
	host.Start()
	defer host.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	start := time.Now()
	runErr := m.Run(ctx)
	elapsed := time.Since(start)

	host.Stop()

	if runErr != nil {
		if !*silent {
			fmt.Fprintf(os.Stderr, "laemu: %v\n", runErr)
		}
		return 1
	}

	if *timing && !*silent {
		fmt.Fprintf(os.Stderr, "laemu: %d instructions in %s\n", m.CPU.InstructionCount, elapsed)
	}
	if *stats && !*silent {
		printBytecodeStatistics(m)
	}

	if m.Exited() {
		return int(m.ExitCode())
	}
	return 0
}

// setupStack writes argc/argv/envp/NULL-auxv onto the guest stack and
// points $sp at it, and seeds $a0/$a1 with argc/argv the way a real
// kernel's ELF loader primes a freshly exec'd process. envp carries
// LC_ALL and USER (defaulted if the host doesn't set them) plus the
// rest of the host's environment, unchanged.
func setupStack(m *laemu.Machine, loaded *laemu.LoadedELF, guestArgs []string) {
	stackTop := m.Arena.Size() &^ 0xf // the stack sits at the very top of the arena
	const stackSize = 1 << 20
	m.Arena.Protect(stackTop-stackSize, stackTop, laemu.PermRead|laemu.PermWrite)
	m.Arena.SetStackAddress(stackTop)

	argv := append([]string{"a.out"}, guestArgs...)
	sp := uint64(stackTop)

	strAddrs := make([]uint64, len(argv))
	for i, s := range argv {
		b := append([]byte(s), 0)
		sp -= uint64(len(b))
		sp &^= 0x7
		_ = m.Arena.Memcpy(sp, b)
		strAddrs[i] = sp
	}

	env := envStrings()
	envAddrs := make([]uint64, len(env))
	for i, s := range env {
		b := append([]byte(s), 0)
		sp -= uint64(len(b))
		sp &^= 0x7
		_ = m.Arena.Memcpy(sp, b)
		envAddrs[i] = sp
	}

	sp &^= 0xf
	// NULL auxv terminator, NULL envp terminator, argv[], argc.
	sp -= 16 // auxv: a single AT_NULL (type 0, val 0) entry
	_ = m.Arena.Write64(sp, 0)
	_ = m.Arena.Write64(sp+8, 0)

	sp -= 8 // envp terminator
	_ = m.Arena.Write64(sp, 0)

	sp -= uint64(len(envAddrs)) * 8
	envpBase := sp
	for i, a := range envAddrs {
		_ = m.Arena.Write64(envpBase+uint64(i)*8, a)
	}

	sp -= uint64(len(strAddrs)+1) * 8
	argvBase := sp
	for i, a := range strAddrs {
		_ = m.Arena.Write64(argvBase+uint64(i)*8, a)
	}
	_ = m.Arena.Write64(argvBase+uint64(len(strAddrs))*8, 0)

	sp -= 8
	_ = m.Arena.Write64(sp, uint64(len(argv)))

	m.CPU.Reset(loaded.Entry)
	m.CPU.SetGPR(3, sp) // $sp
	m.CPU.SetGPR(4, uint64(len(argv)))
	m.CPU.SetGPR(5, argvBase)
}

// envStrings returns the host's environment, adding default LC_ALL and
// USER entries when the host doesn't already set them.
func envStrings() []string {
	env := os.Environ()
	has := func(key string) bool {
		prefix := key + "="
		for _, e := range env {
			if strings.HasPrefix(e, prefix) {
				return true
			}
		}
		return false
	}
	if !has("LC_ALL") {
		env = append(env, "LC_ALL=C")
	}
	if !has("USER") {
		env = append(env, "USER=laemu")
	}
	return env
}

func printBytecodeStatistics(m *laemu.Machine) {
	counts := m.CollectBytecodeStatistics()
	type row struct {
		name  string
		count int
	}
	rows := make([]row, 0, len(counts))
	for bc, n := range counts {
		if n == 0 {
			continue
		}
		rows = append(rows, row{laemu.BytecodeName(bc), n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].count > rows[j].count })
	fmt.Fprintln(os.Stderr, "bytecode histogram:")
	for _, r := range rows {
		fmt.Fprintf(os.Stderr, "  %-14s %d\n", r.name, r.count)
	}
}
