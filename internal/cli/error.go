package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hlop3z/litestore/internal/alerr"
)

// FormatError formats an error for CLI display:
//
//	error[E4001]: failed to execute statement
//	   |
//	   | sql: SELECT * FROM nope
//	   | table: t_Person
//	note: cause: no such table: nope
//	help: ...
//
// Errors without a code are printed on one line.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var ae *alerr.Error
	if !errors.As(err, &ae) {
		return Error("error") + ": " + err.Error() + "\n"
	}

	var b strings.Builder
	b.WriteString(Error("error"))
	b.WriteString("[")
	b.WriteString(Code(string(ae.GetCode())))
	b.WriteString("]: ")
	b.WriteString(ae.GetMessage())
	b.WriteString("\n")

	ctx := ae.GetContext()
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		if k != "helps" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		b.WriteString("   ")
		b.WriteString(Pipe())
		b.WriteString("\n")
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("   %s %s: %v\n", Pipe(), k, ctx[k]))
		}
	}

	if cause := ae.GetCause(); cause != nil {
		b.WriteString(FormatNote("cause: " + firstLine(cause.Error())))
	}
	for _, h := range ae.Helps() {
		b.WriteString(FormatHelp(h))
	}
	return b.String()
}

// firstLine drops the context block a nested coded error prints after its heading.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// FormatWarning formats a warning line.
func FormatWarning(msg string) string {
	return Warning("warning") + ": " + msg + "\n"
}

// FormatNote formats a note line.
func FormatNote(msg string) string {
	return Note("note") + ": " + msg + "\n"
}

// FormatHelp formats a help line.
func FormatHelp(msg string) string {
	return Help("help") + ": " + msg + "\n"
}

// FormatSuccess formats a success line.
func FormatSuccess(msg string) string {
	return Success("success") + ": " + msg + "\n"
}
