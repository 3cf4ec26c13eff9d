package boot

import (
	"context"
	"time"

	"github.com/go-go-golems/bootgate/pkg/launch"
	"github.com/rs/zerolog/log"
)

const teardownTimeout = 15 * time.Second

// ownership tracks who is responsible for stopping the primary. The
// orchestrator holds it from the moment the primary starts; release hands
// the process to the caller on a clean exit so the primary can outlive
// the run. Every other exit route tears the primary down.
type ownership struct {
	proc     launch.Process
	released bool
}

func (o *ownership) release() {
	o.released = true
}

// finish stops the primary's process group unless ownership was
// released. It reports whether the primary was actually stopped.
func (o *ownership) finish() bool {
	if o.proc == nil || o.released {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	if err := o.proc.Shutdown(ctx); err != nil {
		log.Warn().Str("process", o.proc.Name()).Int("pid", o.proc.PID()).Err(err).Msg("primary teardown failed")
		return false
	}
	return true
}
