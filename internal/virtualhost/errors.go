package virtualhost

import (
	"fmt"
	"strings"
)

// ParseError reports component markup that could not be split into blocks.
type ParseError struct {
	Offset int
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse component: %d:%d: %s", e.Line, e.Column, e.Msg)
}

func newParseError(source string, offset int, msg string) *ParseError {
	line, col := lineColumn(source, offset)
	return &ParseError{Offset: offset, Line: line, Column: col, Msg: msg}
}

// SectionParseError reports <script setup> content that is not valid script syntax.
// Line and Column are relative to the whole component file.
type SectionParseError struct {
	Lang   string
	Line   int
	Column int
	Msg    string
}

func (e *SectionParseError) Error() string {
	lang := e.Lang
	if lang == "" {
		lang = "js"
	}
	return fmt.Sprintf("parse <script setup> (%s): %d:%d: %s", lang, e.Line, e.Column, e.Msg)
}

// lineColumn converts a byte offset into 1-based line and column numbers.
func lineColumn(source string, offset int) (int, int) {
	if offset > len(source) {
		offset = len(source)
	}
	if offset < 0 {
		offset = 0
	}
	prefix := source[:offset]
	line := strings.Count(prefix, "\n") + 1
	col := offset - strings.LastIndexByte(prefix, '\n')
	return line, col
}
