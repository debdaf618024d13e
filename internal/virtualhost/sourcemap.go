package virtualhost

import (
	"encoding/json"
	"strings"
)

const base64VLQChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// SourceMap is a revision 3 source map with a single source.
type SourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// JSON encodes the map in its on-disk form.
func (m *SourceMap) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// position is a zero-based line and UTF-16 column.
type position struct {
	line int
	col  int
}

func (p position) advance(text string) position {
	for _, r := range text {
		switch {
		case r == '\n':
			p.line++
			p.col = 0
		case r >= 0x10000:
			p.col += 2
		default:
			p.col++
		}
	}
	return p
}

type mappingBuilder struct {
	sb         strings.Builder
	gen        position
	lastGenCol int
	hasSegment bool
	last       position
}

// segment maps the current generated position to src.
func (b *mappingBuilder) segment(src position) {
	if b.hasSegment {
		b.sb.WriteByte(',')
	}
	writeVLQ(&b.sb, b.gen.col-b.lastGenCol)
	writeVLQ(&b.sb, 0)
	writeVLQ(&b.sb, src.line-b.last.line)
	writeVLQ(&b.sb, src.col-b.last.col)
	b.lastGenCol = b.gen.col
	b.hasSegment = true
	b.last = src
}

// advance moves the generated position over text without mapping it.
func (b *mappingBuilder) advance(text string) {
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			b.gen = b.gen.advance(text)
			return
		}
		b.gen = b.gen.advance(text[:i])
		b.newLine()
		text = text[i+1:]
	}
}

func (b *mappingBuilder) newLine() {
	b.sb.WriteByte(';')
	b.gen.line++
	b.gen.col = 0
	b.lastGenCol = 0
	b.hasSegment = false
}

// copySource emits untouched source text, mapping its start and every line start.
func (b *mappingBuilder) copySource(text string, src *position) {
	if text == "" {
		return
	}
	b.segment(*src)
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			b.gen = b.gen.advance(text)
			*src = src.advance(text)
			return
		}
		b.gen = b.gen.advance(text[:i])
		*src = src.advance(text[:i+1])
		b.newLine()
		text = text[i+1:]
		if text != "" {
			b.segment(*src)
		}
	}
}

func (b *mappingBuilder) String() string {
	return b.sb.String()
}

func writeVLQ(sb *strings.Builder, v int) {
	u := v << 1
	if v < 0 {
		u = (-v)<<1 | 1
	}
	for {
		digit := u & 31
		u >>= 5
		if u > 0 {
			digit |= 32
		}
		sb.WriteByte(base64VLQChars[digit])
		if u == 0 {
			return
		}
	}
}

