package problem

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Resolver answers the should-fix question for one detected problem.
// Repair code depends only on this interface and stays free of I/O.
type Resolver interface {
	// ShouldFix reports whether the problem described by format/args gets
	// repaired. def is the static default for this particular question; it
	// normally equals kind.Default() but a caller may force an answer (for
	// example when a repair is implied by an earlier one).
	ShouldFix(kind Kind, def Answer, format string, args ...any) bool
}

// Observer is notified of every decision the pass acts on.
type Observer interface {
	RecordFix(kind Kind, fixed bool)
}

// ConsoleResolver prints each problem and the chosen action to out and, in
// interactive mode, reads the answer from in.
type ConsoleResolver struct {
	mode Mode
	in   *bufio.Reader
	out  io.Writer
}

// NewConsoleResolver creates a resolver. in may be nil for every mode but
// ModeInteractive.
func NewConsoleResolver(mode Mode, in io.Reader, out io.Writer) *ConsoleResolver {
	r := &ConsoleResolver{
		mode: mode,
		out:  out,
	}
	if in != nil {
		r.in = bufio.NewReader(in)
	}
	return r
}

func (r *ConsoleResolver) ShouldFix(kind Kind, def Answer, format string, args ...any) bool {
	msg := fmt.Sprintf(format, args...)
	fix, ask := Decide(kind, def, r.mode)

	if ask && r.in != nil {
		fix = r.prompt(msg, fix)
	} else {
		fmt.Fprintf(r.out, "[%s] %s %s\n", kind, msg, answerText(fix))
	}

	return fix
}

func (r *ConsoleResolver) prompt(msg string, def bool) bool {
	hint := "<n>"
	if def {
		hint = "<y>"
	}

	for {
		fmt.Fprintf(r.out, "%s %s ", msg, hint)

		line, err := r.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))

		switch answer {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		case "":
			if err != nil {
				// Input closed: nobody left to ask.
				fmt.Fprintln(r.out)
			}
			return def
		}

		if err != nil {
			return def
		}
	}
}

func answerText(fix bool) string {
	if fix {
		return "y"
	}
	return "n"
}

// StaticResolver answers from Decide alone without printing. Tests and
// library callers that do their own reporting use it.
type StaticResolver struct {
	Mode Mode

	// Asked records every kind that was asked about, in order.
	Asked []Kind
}

func (r *StaticResolver) ShouldFix(kind Kind, def Answer, format string, args ...any) bool {
	r.Asked = append(r.Asked, kind)
	fix, _ := Decide(kind, def, r.Mode)
	return fix
}
