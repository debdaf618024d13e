package virtualhost

import (
	"fmt"
	"sort"
	"strings"
)

// Patch records offset-based edits against an immutable source text.
type Patch struct {
	src   string
	edits []edit
}

type edit struct {
	start int
	end   int
	text  string
	seq   int
}

// NewPatch starts an empty patch over src.
func NewPatch(src string) *Patch {
	return &Patch{src: src}
}

// Insert places text at offset. Insertions at the same offset keep call order.
func (p *Patch) Insert(offset int, text string) error {
	return p.add(offset, offset, text)
}

// Overwrite replaces src[start:end] with text.
func (p *Patch) Overwrite(start, end int, text string) error {
	if end <= start {
		return fmt.Errorf("overwrite %d:%d: empty range", start, end)
	}
	return p.add(start, end, text)
}

func (p *Patch) add(start, end int, text string) error {
	if start < 0 || end > len(p.src) || start > end {
		return fmt.Errorf("edit %d:%d out of range 0:%d", start, end, len(p.src))
	}
	for _, e := range p.edits {
		if editsConflict(start, end, e.start, e.end) {
			return fmt.Errorf("edit %d:%d overlaps edit %d:%d", start, end, e.start, e.end)
		}
	}
	p.edits = append(p.edits, edit{start: start, end: end, text: text, seq: len(p.edits)})
	return nil
}

// editsConflict reports whether two edits touch the same source bytes.
// An insertion only conflicts with a replacement that strictly contains it.
func editsConflict(aStart, aEnd, bStart, bEnd int) bool {
	aInsert, bInsert := aStart == aEnd, bStart == bEnd
	switch {
	case aInsert && bInsert:
		return false
	case aInsert:
		return aStart > bStart && aStart < bEnd
	case bInsert:
		return bStart > aStart && bStart < aEnd
	default:
		return aStart < bEnd && bStart < aEnd
	}
}

// HasChanges reports whether any edit alters the text.
func (p *Patch) HasChanges() bool {
	for _, e := range p.edits {
		if e.text != p.src[e.start:e.end] {
			return true
		}
	}
	return false
}

func (p *Patch) sorted() []edit {
	edits := append([]edit(nil), p.edits...)
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		// Insertions come before a replacement starting at the same offset.
		iInsert := edits[i].start == edits[i].end
		jInsert := edits[j].start == edits[j].end
		if iInsert != jInsert {
			return iInsert
		}
		return edits[i].seq < edits[j].seq
	})
	return edits
}

// String renders the patched text.
func (p *Patch) String() string {
	var sb strings.Builder
	sb.Grow(len(p.src))
	cursor := 0
	for _, e := range p.sorted() {
		sb.WriteString(p.src[cursor:e.start])
		sb.WriteString(e.text)
		cursor = e.end
	}
	sb.WriteString(p.src[cursor:])
	return sb.String()
}

// SourceMap maps the patched text back to src. Untouched text maps at every
// line start and after every edit; replacements map to the start of the range
// they replace; inserted text is unmapped.
func (p *Patch) SourceMap(file string) *SourceMap {
	b := &mappingBuilder{}
	var srcPos position
	cursor := 0
	for _, e := range p.sorted() {
		b.copySource(p.src[cursor:e.start], &srcPos)
		if e.end > e.start {
			b.segment(srcPos)
		}
		b.advance(e.text)
		srcPos = srcPos.advance(p.src[e.start:e.end])
		cursor = e.end
	}
	b.copySource(p.src[cursor:], &srcPos)

	return &SourceMap{
		Version:        3,
		File:           file,
		Sources:        []string{file},
		SourcesContent: []string{p.src},
		Names:          []string{},
		Mappings:       b.String(),
	}
}
