package proc

import (
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Alive reports whether pid refers to a live, non-zombie process.
// EPERM from kill(2) still means the process exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if err := syscall.Kill(pid, 0); err != nil {
		if err == syscall.EPERM {
			return true
		}
		return false
	}
	return !zombie(pid)
}

func zombie(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return false
	}

	// The state field follows the parenthesized comm, which may itself
	// contain spaces and parens.
	s := string(b)
	i := strings.LastIndexByte(s, ')')
	if i < 0 || i+2 >= len(s) {
		return false
	}
	fields := strings.Fields(s[i+1:])
	if len(fields) == 0 {
		return false
	}
	return fields[0] == "Z"
}
