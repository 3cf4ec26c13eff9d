package cmds

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-go-golems/bootgate/pkg/events"
	"github.com/go-go-golems/bootgate/pkg/state"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var n int
	var stderrStream bool
	var follow bool
	var since string

	cmd := &cobra.Command{
		Use:   "logs [primary|dependent]",
		Short: "Tail a process's captured log file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}

			role := events.RolePrimary
			if len(args) == 1 {
				role = args[0]
			}

			run, err := state.Load(opts.Root)
			if err != nil {
				return err
			}

			var rec *state.ProcessRecord
			switch role {
			case events.RolePrimary:
				rec = run.Primary
			case events.RoleDependent:
				rec = run.Dependent
			default:
				return errors.Errorf("unknown role %q (want primary or dependent)", role)
			}
			if rec == nil {
				return errors.Errorf("no %s recorded for this run", role)
			}

			path := rec.StdoutLog
			if stderrStream {
				path = rec.StderrLog
			}
			if path == "" {
				return errors.Errorf("no captured log for %s (run started without log capture)", role)
			}

			var sinceAt time.Time
			if since != "" {
				sinceAt, err = dateparse.ParseAny(since)
				if err != nil {
					return errors.Wrapf(err, "parse --since %q", since)
				}
			}

			lines, err := state.TailLines(path, n, 2<<20)
			if err != nil {
				return err
			}
			for _, line := range filterSince(lines, sinceAt) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}

			if !follow {
				return nil
			}
			return followFile(cmd, path, sinceAt)
		},
	}

	cmd.Flags().IntVarP(&n, "lines", "n", 50, "How many trailing lines to print")
	cmd.Flags().BoolVar(&stderrStream, "stderr", false, "Tail stderr instead of stdout")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing as the file grows")
	cmd.Flags().StringVar(&since, "since", "", "Only print lines with a timestamp at or after this (lenient formats)")
	return cmd
}

// followFile polls the file for growth and prints whole new lines until
// interrupted.
func followFile(cmd *cobra.Command, path string, sinceAt time.Time) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "stat log")
	}
	offset := info.Size()

	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()

	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		info, err := os.Stat(path)
		if err != nil {
			// The stop command may remove logs while we follow.
			if os.IsNotExist(err) {
				return nil
			}
			return errors.Wrap(err, "stat log")
		}
		if info.Size() < offset {
			// Truncated; start over from the top.
			offset = 0
			partial = ""
		}
		if info.Size() == offset {
			continue
		}

		chunk, err := readRange(path, offset, info.Size())
		if err != nil {
			return err
		}
		offset = info.Size()

		buf := partial + chunk
		lines := strings.Split(buf, "\n")
		partial = lines[len(lines)-1]
		for _, line := range filterSince(lines[:len(lines)-1], sinceAt) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	}
}

func readRange(path string, from, to int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open log")
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(from, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "seek log")
	}
	b := make([]byte, to-from)
	if _, err := io.ReadFull(f, b); err != nil && err != io.ErrUnexpectedEOF {
		return "", errors.Wrap(err, "read log")
	}
	return string(b), nil
}

// filterSince drops lines whose leading timestamp is before cutoff.
// Lines without a recognizable timestamp are kept; services log in
// whatever format they like and silence would be worse than noise.
func filterSince(lines []string, cutoff time.Time) []string {
	if cutoff.IsZero() {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		at, ok := lineTimestamp(line)
		if ok && at.Before(cutoff) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// lineTimestamp tries to parse a timestamp from the first one or two
// whitespace-separated fields of a log line.
func lineTimestamp(line string) (time.Time, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return time.Time{}, false
	}

	if at, err := dateparse.ParseAny(fields[0]); err == nil {
		return at, true
	}
	if len(fields) >= 2 {
		if at, err := dateparse.ParseAny(fields[0] + " " + fields[1]); err == nil {
			return at, true
		}
	}
	return time.Time{}, false
}
