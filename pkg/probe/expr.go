package probe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
)

var ErrExprTimeout = errors.New("probe: expr eval timeout")

const maxExprBody = 1 << 20

// exprChecker fetches an HTTP endpoint and evaluates a JS predicate
// against the response. The script sees:
//
//	status  - HTTP status code (number)
//	body    - response body (string, capped at 1 MiB)
//	headers - response headers (object, first value per key)
//	json    - body parsed as JSON, or null when it does not parse
//
// The last expression value is coerced to a boolean; true means Ready.
// A checker owns one goja runtime and is not safe for concurrent use.
type exprChecker struct {
	url         string
	client      *http.Client
	vm          *goja.Runtime
	prog        *goja.Program
	evalTimeout time.Duration
}

func newExprChecker(t Target) (*exprChecker, error) {
	url := t.URL
	if url == "" {
		url = t.Address
	}
	if url == "" {
		return nil, errors.New("expr probe missing url")
	}
	if t.Expr == "" {
		return nil, errors.New("expr probe missing expr")
	}

	prog, err := goja.Compile("probe:expr", t.Expr, false)
	if err != nil {
		return nil, errors.Wrap(err, "compile expr")
	}

	return &exprChecker{
		url:         url,
		client:      &http.Client{Timeout: probeTimeout(t)},
		vm:          goja.New(),
		prog:        prog,
		evalTimeout: probeTimeout(t),
	}, nil
}

func (c *exprChecker) Describe() string {
	return "expr " + c.url
}

func (c *exprChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return notReady(err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return notReady(err)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxExprBody))
	_ = resp.Body.Close()
	if err != nil {
		return notReady(err)
	}

	headers := map[string]string{}
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	_ = c.vm.Set("status", resp.StatusCode)
	_ = c.vm.Set("body", string(body))
	_ = c.vm.Set("headers", headers)

	var parsed any
	if json.Unmarshal(body, &parsed) == nil {
		_ = c.vm.Set("json", parsed)
	} else {
		_ = c.vm.Set("json", goja.Null())
	}

	v, err := c.eval()
	if err != nil {
		return notReady(errors.Wrap(err, "eval expr"))
	}
	if v.ToBoolean() {
		return Result{Status: StatusReady, Reason: "predicate true (status " + strconv.Itoa(resp.StatusCode) + ")"}
	}
	return Result{Status: StatusNotReady, Reason: "predicate false (status " + strconv.Itoa(resp.StatusCode) + ")"}
}

func (c *exprChecker) eval() (goja.Value, error) {
	timer := time.AfterFunc(c.evalTimeout, func() {
		c.vm.Interrupt(ErrExprTimeout)
	})
	defer timer.Stop()
	defer c.vm.ClearInterrupt()

	v, err := c.vm.RunProgram(c.prog)
	if err != nil {
		if isExprTimeout(err) {
			return nil, ErrExprTimeout
		}
		return nil, err
	}
	return v, nil
}

func isExprTimeout(err error) bool {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if v, ok := interrupted.Value().(error); ok && errors.Is(v, ErrExprTimeout) {
			return true
		}
	}
	return errors.Is(err, ErrExprTimeout)
}
