package main

import (
	"fmt"
	"io"
)

func newProgressLine(out io.Writer) *progressLine {
	return &progressLine{out: out}
}

// progressLine renders advisory progress as a single overwritable
// line: each update replaces the previous rendering instead of
// appending.
type progressLine struct {
	out       io.Writer
	lastWidth int
}

func (p *progressLine) Update(text string) {
	padding := ""
	if diff := p.lastWidth - len(text); diff > 0 {
		for i := 0; i < diff; i++ {
			padding += " "
		}
	}

	fmt.Fprintf(p.out, "\r%s%s", text, padding)
	p.lastWidth = len(text)
}

func (p *progressLine) Finish() {
	if p.lastWidth == 0 {
		return
	}

	fmt.Fprintln(p.out)
	p.lastWidth = 0
}
