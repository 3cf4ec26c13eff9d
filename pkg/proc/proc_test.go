package proc

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliveSelf(t *testing.T) {
	assert.True(t, Alive(os.Getpid()))
}

func TestAliveInvalidPID(t *testing.T) {
	assert.False(t, Alive(0))
	assert.False(t, Alive(-1))
}

func TestAliveExitedChild(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())
	assert.False(t, Alive(cmd.Process.Pid))
}

func TestSamplerSelf(t *testing.T) {
	s := NewSampler()

	st, err := s.Sample(os.Getpid())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), st.PID)
	assert.NotEmpty(t, st.State)
	assert.GreaterOrEqual(t, st.Threads, 1)
	assert.Greater(t, st.MemoryMB, int64(0))
	assert.Greater(t, st.VirtualMB, int64(0))
	// First sample has no baseline.
	assert.Equal(t, 0.0, st.CPUPercent)

	time.Sleep(50 * time.Millisecond)
	st2, err := s.Sample(os.Getpid())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, st2.CPUPercent, 0.0)
}

func TestSamplerInvalidPID(t *testing.T) {
	s := NewSampler()
	_, err := s.Sample(0)
	assert.Error(t, err)
}

func TestSamplerForget(t *testing.T) {
	s := NewSampler()
	_, err := s.Sample(os.Getpid())
	require.NoError(t, err)
	s.Forget(os.Getpid())

	st, err := s.Sample(os.Getpid())
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.CPUPercent)
}

func TestStartedAt(t *testing.T) {
	started, err := StartedAt(os.Getpid())
	require.NoError(t, err)

	boot, err := BootTime()
	require.NoError(t, err)

	assert.False(t, started.Before(boot))
	assert.False(t, started.After(time.Now().Add(time.Second)))
}
