// syscalls_linux.go - The Linux syscall bundle installed on every new
// Machine.
//
// Numbers follow the generic Linux syscall ABI LoongArch64 shares with
// arm64 and riscv64 (asm-generic/unistd.h); there is no LoongArch-
// specific syscall table to diverge from. Host-facing operations
// (openat/read/write/fstat/...) go through golang.org/x/sys/unix rather
// than the stdlib "syscall" package for the cross-platform constant
// coverage it provides.
package laemu

import (
	"encoding/binary"
	"time"

	"golang.org/x/sys/unix"
)

const (
	sysIoctl           = 29
	sysOpenat          = 56
	sysClose           = 57
	sysLseek           = 62
	sysRead            = 63
	sysWrite           = 64
	sysWritev          = 66
	sysFstat           = 80
	sysExit            = 93
	sysExitGroup       = 94
	sysSetTidAddress   = 96
	sysClockGettime    = 113
	sysRtSigaction     = 134
	sysRtSigprocmask   = 135
	sysBrk             = 214
	sysMunmap          = 215
	sysMmap            = 222
	sysMprotect        = 226
	sysGetrandom       = 278
)

func installLinuxSyscalls(m *Machine) {
	m.syscalls[sysRead] = sysRead_
	m.syscalls[sysWrite] = sysWrite_
	m.syscalls[sysWritev] = sysWritev_
	m.syscalls[sysOpenat] = sysOpenat_
	m.syscalls[sysClose] = sysClose_
	m.syscalls[sysLseek] = sysLseek_
	m.syscalls[sysFstat] = sysFstat_
	m.syscalls[sysBrk] = sysBrk_
	m.syscalls[sysMmap] = sysMmap_
	m.syscalls[sysMunmap] = sysMunmap_
	m.syscalls[sysMprotect] = sysMprotect_
	m.syscalls[sysSetTidAddress] = sysSetTidAddress_
	m.syscalls[sysExit] = sysExit_
	m.syscalls[sysExitGroup] = sysExit_
	m.syscalls[sysRtSigaction] = sysIgnoredOK
	m.syscalls[sysRtSigprocmask] = sysIgnoredOK
	m.syscalls[sysIoctl] = sysIoctlStub
	m.syscalls[sysClockGettime] = sysClockGettime_
	m.syscalls[sysGetrandom] = sysGetrandom_

	m.brk = 0 // set by the loader once the image's end-of-data address is known
}

func sysErrno(m *Machine, err error) error {
	if errno, ok := err.(unix.Errno); ok {
		SetSysResult(&m.CPU, uint64(-int64(errno)))
		return nil
	}
	SetSysResult(&m.CPU, uint64(-int64(unix.EIO)))
	return nil
}

func sysRead_(m *Machine) error {
	a := SysArgs(&m.CPU)
	fd, addr, count := int(a[0]), a[1], a[2]
	buf := make([]byte, count)
	n, err := unix.Read(fd, buf)
	if err != nil {
		return sysErrno(m, err)
	}
	if n > 0 {
		if werr := m.Arena.Memcpy(addr, buf[:n]); werr != nil {
			return werr
		}
	}
	SetSysResult(&m.CPU, uint64(n))
	return nil
}

func sysWrite_(m *Machine) error {
	a := SysArgs(&m.CPU)
	fd, addr, count := int(a[0]), a[1], a[2]
	buf, err := m.Arena.ReadBytes(addr, int(count))
	if err != nil {
		return err
	}
	n, werr := unix.Write(fd, buf)
	if werr != nil {
		return sysErrno(m, werr)
	}
	SetSysResult(&m.CPU, uint64(n))
	return nil
}

// sysWritev_ implements the common "flatten iovecs then write" path
// rather than a true scatter/gather host syscall, since the guest's
// iovec structs live in emulated memory and must be copied out anyway.
func sysWritev_(m *Machine) error {
	a := SysArgs(&m.CPU)
	fd, iovAddr, iovcnt := int(a[0]), a[1], int(a[2])
	var total int
	for i := 0; i < iovcnt; i++ {
		base := iovAddr + uint64(i*16)
		ptr, err := m.Arena.Read64(base)
		if err != nil {
			return err
		}
		length, err := m.Arena.Read64(base + 8)
		if err != nil {
			return err
		}
		buf, err := m.Arena.ReadBytes(ptr, int(length))
		if err != nil {
			return err
		}
		n, werr := unix.Write(fd, buf)
		if werr != nil {
			return sysErrno(m, werr)
		}
		total += n
	}
	SetSysResult(&m.CPU, uint64(total))
	return nil
}

func sysOpenat_(m *Machine) error {
	a := SysArgs(&m.CPU)
	dirfd, pathAddr, flags, mode := int(a[0]), a[1], int(a[2]), uint32(a[3])
	path, err := m.Arena.ReadCString(pathAddr, 4096)
	if err != nil {
		return err
	}
	fd, oerr := unix.Openat(dirfd, path, flags, mode)
	if oerr != nil {
		return sysErrno(m, oerr)
	}
	SetSysResult(&m.CPU, uint64(fd))
	return nil
}

func sysClose_(m *Machine) error {
	a := SysArgs(&m.CPU)
	if err := unix.Close(int(a[0])); err != nil {
		return sysErrno(m, err)
	}
	SetSysResult(&m.CPU, 0)
	return nil
}

func sysLseek_(m *Machine) error {
	a := SysArgs(&m.CPU)
	off, err := unix.Seek(int(a[0]), int64(a[1]), int(a[2]))
	if err != nil {
		return sysErrno(m, err)
	}
	SetSysResult(&m.CPU, uint64(off))
	return nil
}

// sysFstat_ fills a guest stat buffer with the fields guest programs
// actually consult (size, mode, blocks); the full Linux struct stat
// layout is host-specific and not reproduced field-for-field.
func sysFstat_(m *Machine) error {
	a := SysArgs(&m.CPU)
	fd, statAddr := int(a[0]), a[1]
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return sysErrno(m, err)
	}
	buf := make([]byte, 144)
	binary.LittleEndian.PutUint64(buf[0:], uint64(st.Dev))
	binary.LittleEndian.PutUint64(buf[8:], st.Ino)
	binary.LittleEndian.PutUint32(buf[16:], st.Mode)
	binary.LittleEndian.PutUint64(buf[48:], uint64(st.Size))
	binary.LittleEndian.PutUint64(buf[56:], uint64(st.Blksize))
	binary.LittleEndian.PutUint64(buf[64:], uint64(st.Blocks))
	if err := m.Arena.Memcpy(statAddr, buf); err != nil {
		return err
	}
	SetSysResult(&m.CPU, 0)
	return nil
}

// sysBrk_ implements the Linux brk() convention: called with 0 to query
// the current break, or a nonzero address to request growing it. Since
// the arena is a fixed flat allocation, "growing" the break never
// actually grows the arena — it only moves the bookkeeping pointer, and
// fails (returns the old break unchanged) once requested beyond the
// arena's size, which a well-behaved guest libc interprets as ENOMEM.
func sysBrk_(m *Machine) error {
	a := SysArgs(&m.CPU)
	req := a[0]
	if req == 0 {
		SetSysResult(&m.CPU, m.brk)
		return nil
	}
	if req <= m.Arena.Size() {
		m.brk = req
	}
	SetSysResult(&m.CPU, m.brk)
	return nil
}

// sysMmap_ supports only anonymous, non-fixed mappings, bump-allocated
// from the top of the arena downward. File-backed mmap is out of scope:
// guest programs that need file contents in memory read() them instead,
// which every libc falls back to when mmap fails.
func sysMmap_(m *Machine) error {
	a := SysArgs(&m.CPU)
	length, flags, fd := a[1], a[3], int64(int32(a[4]))
	const mapAnonymous = 0x20
	if flags&mapAnonymous == 0 || fd != -1 {
		SetSysResult(&m.CPU, uint64(-int64(unix.ENOSYS)))
		return nil
	}
	addr, err := m.Arena.allocateAnon(length)
	if err != nil {
		SetSysResult(&m.CPU, uint64(-int64(unix.ENOMEM)))
		return nil
	}
	SetSysResult(&m.CPU, addr)
	return nil
}

func sysMunmap_(m *Machine) error {
	SetSysResult(&m.CPU, 0)
	return nil
}

func sysMprotect_(m *Machine) error {
	a := SysArgs(&m.CPU)
	addr, length, prot := a[0], a[1], a[2]
	var perm Permission
	if prot&0x1 != 0 {
		perm |= PermRead
	}
	if prot&0x2 != 0 {
		perm |= PermWrite
	}
	if prot&0x4 != 0 {
		perm |= PermExec
	}
	m.Arena.Protect(addr, addr+length, perm)
	SetSysResult(&m.CPU, 0)
	return nil
}

func sysSetTidAddress_(m *Machine) error {
	SetSysResult(&m.CPU, uint64(m.tid))
	return nil
}

func sysExit_(m *Machine) error {
	a := SysArgs(&m.CPU)
	m.exited = true
	m.exitCode = int64(int32(a[0]))
	return nil
}

func sysIgnoredOK(m *Machine) error {
	SetSysResult(&m.CPU, 0)
	return nil
}

func sysIoctlStub(m *Machine) error {
	SetSysResult(&m.CPU, uint64(-int64(unix.ENOTTY)))
	return nil
}

func sysClockGettime_(m *Machine) error {
	a := SysArgs(&m.CPU)
	tsAddr := a[1]
	now := time.Now()
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:], uint64(now.Unix()))
	binary.LittleEndian.PutUint64(buf[8:], uint64(now.Nanosecond()))
	if err := m.Arena.Memcpy(tsAddr, buf); err != nil {
		return err
	}
	SetSysResult(&m.CPU, 0)
	return nil
}

func sysGetrandom_(m *Machine) error {
	a := SysArgs(&m.CPU)
	addr, count := a[0], a[1]
	buf := make([]byte, count)
	n, err := unix.Getrandom(buf, 0)
	if err != nil {
		return sysErrno(m, err)
	}
	if err := m.Arena.Memcpy(addr, buf[:n]); err != nil {
		return err
	}
	SetSysResult(&m.CPU, uint64(n))
	return nil
}
