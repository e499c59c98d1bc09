package main

import (
	"bytes"
	"fmt"
)

// Section accumulates the assembly text of one output section.
type Section struct {
	buf bytes.Buffer
}

// Emit appends one line of literal text.
func (s *Section) Emit(line string) {
	s.buf.WriteString(line)
	s.buf.WriteByte('\n')
}

// Emitf appends one formatted line.
func (s *Section) Emitf(format string, args ...any) {
	fmt.Fprintf(&s.buf, format, args...)
	s.buf.WriteByte('\n')
}

// Ins appends a tab-indented instruction.
func (s *Section) Ins(format string, args ...any) {
	s.buf.WriteByte('\t')
	s.Emitf(format, args...)
}

func (s *Section) Len() int {
	return s.buf.Len()
}

func (s *Section) String() string {
	return s.buf.String()
}

func (s *Section) Reset() {
	s.buf.Reset()
}

// AppendTo appends the section's text to dst.
func (s *Section) AppendTo(dst *bytes.Buffer) {
	dst.Write(s.buf.Bytes())
}
