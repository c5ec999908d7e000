package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/chazu/pyjs/compiler"
	"github.com/chazu/pyjs/server"
)

const replFileName = "<stdin>"

// repl reads statements from in, compiles each as it completes and
// prints the result (or the selected dump) to out.
type repl struct {
	b    backend
	in   io.Reader
	out  io.Writer
	dump string
}

func newREPL(b backend, in io.Reader, out io.Writer) *repl {
	return &repl{b: b, in: in, out: out, dump: server.DumpJS}
}

// run loops until :quit or end of input.
func (r *repl) run(ctx context.Context) {
	fmt.Fprintln(r.out, "pyjs REPL (':help' for commands)")

	scanner := bufio.NewScanner(r.in)
	var buf strings.Builder

	for {
		if buf.Len() == 0 {
			fmt.Fprint(r.out, ">> ")
		} else {
			fmt.Fprint(r.out, ".. ")
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if buf.Len() == 0 && strings.HasPrefix(line, ":") {
			if !r.command(line) {
				return
			}
			continue
		}

		blank := strings.TrimSpace(line) == ""
		if blank && buf.Len() == 0 {
			continue
		}
		if !blank {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		if blank || r.complete(buf.String()) {
			r.submit(ctx, buf.String())
			buf.Reset()
		}
	}

	if buf.Len() > 0 {
		r.submit(ctx, buf.String())
	}
	fmt.Fprintln(r.out)
}

// complete reports whether the buffered input can be compiled without
// waiting for more lines. A compound statement ends only at a blank line;
// anything else is complete once it parses without running out of input.
func (r *repl) complete(src string) bool {
	first, _, _ := strings.Cut(src, "\n")
	first = strings.TrimSpace(first)
	if strings.HasSuffix(first, ":") || strings.HasPrefix(first, "@") {
		return false
	}
	_, err := compiler.Parse(replFileName, src)
	return !compiler.IsIncomplete(err)
}

func (r *repl) submit(ctx context.Context, src string) {
	var (
		text string
		err  error
	)
	if r.dump == server.DumpJS {
		text, err = r.b.Compile(ctx, replFileName, src)
	} else {
		text, err = r.b.Dump(ctx, r.dump, replFileName, src)
	}
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	fmt.Fprint(r.out, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(r.out)
	}
}

// command handles REPL meta-commands. It returns false to quit.
func (r *repl) command(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :help, :h, :?     Show this help")
		fmt.Fprintf(r.out, "  :dump KIND        Print %s for each statement\n", strings.Join(server.DumpKinds, "|"))
		fmt.Fprintln(r.out, "  :quit, :q         Exit REPL")
		fmt.Fprintln(r.out, "A blank line ends a compound statement.")
	case ":quit", ":q":
		return false
	case ":dump":
		if len(fields) < 2 {
			fmt.Fprintf(r.out, "dump: %s\n", r.dump)
			break
		}
		if !slices.Contains(server.DumpKinds, fields[1]) {
			fmt.Fprintf(r.out, "Unknown dump kind %q (want %s)\n", fields[1], strings.Join(server.DumpKinds, "|"))
			break
		}
		r.dump = fields[1]
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (try :help)\n", fields[0])
	}
	return true
}
