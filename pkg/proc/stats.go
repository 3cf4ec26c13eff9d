// Package proc reads liveness and resource usage for the run's processes
// straight from /proc.
package proc

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// userHZ is the kernel's jiffies-per-second for the fields we read.
// Fixed at 100 on Linux regardless of the scheduler tick.
const userHZ = 100

// Stats is one resource sample for a process.
type Stats struct {
	PID        int     `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	MemoryMB   int64   `json:"memory_mb"`
	VirtualMB  int64   `json:"virtual_mb"`
	State      string  `json:"state"`
	Threads    int     `json:"threads"`
}

type cpuSample struct {
	jiffies uint64
	at      time.Time
}

// Sampler produces Stats for the watched pids, tracking CPU deltas
// between consecutive samples of the same pid. Not safe for concurrent
// use; the watcher samples from a single goroutine.
type Sampler struct {
	prev map[int]cpuSample
}

func NewSampler() *Sampler {
	return &Sampler{prev: make(map[int]cpuSample)}
}

// Sample reads the current stats for pid. The first sample of a pid
// reports zero CPU; later samples report usage since the previous one.
func (s *Sampler) Sample(pid int) (*Stats, error) {
	if pid <= 0 {
		return nil, errors.New("invalid pid")
	}

	st, err := readStatLine(pid)
	if err != nil {
		return nil, err
	}

	pageSize := int64(os.Getpagesize())
	out := &Stats{
		PID:       pid,
		MemoryMB:  st.rss * pageSize / (1024 * 1024),
		VirtualMB: int64(st.vsize) / (1024 * 1024),
		State:     string(st.state),
		Threads:   st.threads,
	}

	now := time.Now()
	total := st.utime + st.stime
	if prev, ok := s.prev[pid]; ok {
		elapsed := now.Sub(prev.at).Seconds()
		if elapsed > 0 && total >= prev.jiffies {
			cpuSeconds := float64(total-prev.jiffies) / userHZ
			out.CPUPercent = cpuSeconds / elapsed * 100.0
		}
	}
	s.prev[pid] = cpuSample{jiffies: total, at: now}

	return out, nil
}

// Forget drops the CPU tracking state for a pid that exited.
func (s *Sampler) Forget(pid int) {
	delete(s.prev, pid)
}

// statLine holds the /proc/[pid]/stat fields the sampler needs.
type statLine struct {
	state   byte
	utime   uint64
	stime   uint64
	threads int
	start   uint64
	vsize   uint64
	rss     int64
}

func readStatLine(pid int) (*statLine, error) {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return nil, errors.Wrap(err, "read stat file")
	}

	// Format: pid (comm) state ... The comm can contain spaces and
	// parens, so split after the last ')'.
	content := string(b)
	i := strings.LastIndexByte(content, ')')
	if i < 0 {
		return nil, errors.New("malformed stat file: no closing paren")
	}
	fields := strings.Fields(content[i+1:])
	if len(fields) < 22 {
		return nil, errors.Errorf("malformed stat file: expected 22+ fields, got %d", len(fields))
	}

	// 0-based indices after comm: 0 state, 11 utime, 12 stime,
	// 17 num_threads, 19 starttime, 20 vsize, 21 rss.
	st := &statLine{state: fields[0][0]}

	if st.utime, err = strconv.ParseUint(fields[11], 10, 64); err != nil {
		return nil, errors.Wrap(err, "parse utime")
	}
	if st.stime, err = strconv.ParseUint(fields[12], 10, 64); err != nil {
		return nil, errors.Wrap(err, "parse stime")
	}
	if st.threads, err = strconv.Atoi(fields[17]); err != nil {
		return nil, errors.Wrap(err, "parse num_threads")
	}
	if st.start, err = strconv.ParseUint(fields[19], 10, 64); err != nil {
		return nil, errors.Wrap(err, "parse starttime")
	}
	if st.vsize, err = strconv.ParseUint(fields[20], 10, 64); err != nil {
		return nil, errors.Wrap(err, "parse vsize")
	}
	if st.rss, err = strconv.ParseInt(fields[21], 10, 64); err != nil {
		return nil, errors.Wrap(err, "parse rss")
	}
	return st, nil
}

var bootTimeOnce struct {
	sync.Once
	t   time.Time
	err error
}

// BootTime returns the system boot time from /proc/stat. Cached; btime
// does not change while we run.
func BootTime() (time.Time, error) {
	bootTimeOnce.Do(func() {
		bootTimeOnce.t, bootTimeOnce.err = readBootTime()
	})
	return bootTimeOnce.t, bootTimeOnce.err
}

func readBootTime() (time.Time, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return time.Time{}, errors.Wrap(err, "open /proc/stat")
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "btime ") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		btime, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return time.Time{}, errors.Wrap(err, "parse btime")
		}
		return time.Unix(btime, 0), nil
	}
	return time.Time{}, errors.New("btime not found in /proc/stat")
}

// StartedAt returns when pid started, derived from its start jiffies and
// the boot time.
func StartedAt(pid int) (time.Time, error) {
	st, err := readStatLine(pid)
	if err != nil {
		return time.Time{}, err
	}
	boot, err := BootTime()
	if err != nil {
		return time.Time{}, err
	}
	return boot.Add(time.Duration(st.start/userHZ) * time.Second), nil
}
