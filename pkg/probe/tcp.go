package probe

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

type tcpChecker struct {
	address string
	timeout time.Duration
}

func newTCPChecker(t Target) (*tcpChecker, error) {
	if t.Address == "" {
		return nil, errors.New("tcp probe missing address")
	}
	return &tcpChecker{address: t.Address, timeout: probeTimeout(t)}, nil
}

func (c *tcpChecker) Describe() string {
	return "tcp " + c.address
}

func (c *tcpChecker) Check(ctx context.Context) Result {
	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return notReady(err)
	}
	_ = conn.Close()
	return Result{Status: StatusReady, Reason: "connected"}
}
