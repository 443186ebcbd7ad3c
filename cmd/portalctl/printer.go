package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// printer writes status lines, colored when enabled.
type printer struct {
	out       io.Writer
	useColors bool
}

func newPrinter(out io.Writer, useColors bool) *printer {
	return &printer{out: out, useColors: useColors}
}

// colorEnabled honours --no-color, NO_COLOR and dumb terminals.
func colorEnabled(noColor bool) bool {
	if noColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

func (p *printer) line(attr color.Attribute, prefix, format string, args ...any) {
	if p.useColors {
		color.New(attr).Fprintf(p.out, format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, prefix+format+"\n", args...)
}

func (p *printer) Info(format string, args ...any) {
	p.line(color.FgCyan, "", format, args...)
}

func (p *printer) Success(format string, args ...any) {
	p.line(color.FgGreen, "[OK] ", format, args...)
}

func (p *printer) Warning(format string, args ...any) {
	p.line(color.FgYellow, "[WARN] ", format, args...)
}

func (p *printer) Error(format string, args ...any) {
	p.line(color.FgRed, "[ERROR] ", format, args...)
}
