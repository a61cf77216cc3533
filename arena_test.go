package laemu

import "testing"

func TestArenaReadWriteRoundTrip(t *testing.T) {
	a := NewArena(4096)
	if err := a.Write64(0x100, 0xdeadbeefcafef00d); err != nil {
		t.Fatalf("Write64: %v", err)
	}
	v, err := a.Read64(0x100)
	if err != nil {
		t.Fatalf("Read64: %v", err)
	}
	if v != 0xdeadbeefcafef00d {
		t.Fatalf("got 0x%x, want 0xdeadbeefcafef00d", v)
	}

	if err := a.Write32(0x200, 0x12345678); err != nil {
		t.Fatalf("Write32: %v", err)
	}
	lo, _ := a.Read16(0x200)
	if lo != 0x5678 {
		t.Fatalf("low half = 0x%x, want 0x5678", lo)
	}
}

func TestArenaBoundsFault(t *testing.T) {
	a := NewArena(16)
	_, err := a.Read64(10)
	if err == nil {
		t.Fatal("expected a ProtectionFault reading past the end of the arena")
	}
	f, ok := err.(*Fault)
	if !ok || f.Kind != ProtectionFault {
		t.Fatalf("got %v, want *Fault{ProtectionFault}", err)
	}
}

func TestArenaExecWriteInvalidates(t *testing.T) {
	a := NewArena(4096)
	a.Protect(0, 64, PermRead|PermExec)

	var got []uint64
	a.SetExecInvalidator(func(addr uint64, length int) {
		got = append(got, addr)
	})

	if err := a.Write32(16, 0x01020304); err != nil {
		t.Fatalf("Write32 into exec range should invalidate, not fail: %v", err)
	}
	if len(got) != 1 || got[0] != 16 {
		t.Fatalf("invalidator called with %v, want [16]", got)
	}
}

func TestArenaExecWriteFaultMode(t *testing.T) {
	a := NewArena(4096)
	a.Protect(0, 64, PermExec)
	a.ExecWritesFault = true

	err := a.Write32(16, 0)
	f, ok := err.(*Fault)
	if !ok || f.Kind != ProtectionFault {
		t.Fatalf("got %v, want ProtectionFault when ExecWritesFault is set", err)
	}
}

func TestArenaReadCString(t *testing.T) {
	a := NewArena(64)
	_ = a.Memcpy(0, []byte("hello\x00world"))
	s, err := a.ReadCString(0, 64)
	if err != nil {
		t.Fatalf("ReadCString: %v", err)
	}
	if s != "hello" {
		t.Fatalf("got %q, want %q", s, "hello")
	}
}
