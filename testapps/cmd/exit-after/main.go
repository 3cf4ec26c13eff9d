package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// exit-after is a dependent stand-in: it prints a line, sleeps, then
// exits with the requested code.
func main() {
	var after time.Duration
	var code int
	flag.DurationVar(&after, "after", 250*time.Millisecond, "Duration before exit")
	flag.IntVar(&code, "code", 0, "Exit code")
	flag.Parse()

	_, _ = fmt.Fprintf(os.Stderr, "exit-after starting (after=%s code=%d)\n", after, code)
	_, _ = fmt.Fprintln(os.Stdout, "exit-after: hello")
	time.Sleep(after)
	_, _ = fmt.Fprintln(os.Stderr, "exit-after: exiting now")
	os.Exit(code)
}
