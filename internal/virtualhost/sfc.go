package virtualhost

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Block is one top-level section of a single-file component.
type Block struct {
	Type    string
	Attrs   map[string]string
	Lang    string
	Setup   bool
	Content string
	// Start and End delimit Content within the component source.
	Start int
	End   int
	// TagStart is the offset of the opening '<', TagEnd the offset just past the closing tag.
	TagStart int
	TagEnd   int
}

// Descriptor is the block layout of a parsed component.
type Descriptor struct {
	Source       string
	Template     *Block
	Script       *Block
	ScriptSetup  *Block
	Styles       []*Block
	CustomBlocks []*Block
}

// ParseSFC splits component source into its top-level blocks.
func ParseSFC(source string) (*Descriptor, error) {
	s := &sfcScanner{src: source}
	s.reset(0)

	desc := &Descriptor{Source: source}
	for {
		tt, start := s.next()
		switch tt {
		case html.ErrorToken:
			if err := s.z.Err(); !errors.Is(err, io.EOF) {
				return nil, newParseError(source, start, err.Error())
			}
			return desc, nil
		case html.SelfClosingTagToken:
			s.dropRawState()
		case html.StartTagToken:
			block, err := s.readBlock(start)
			if err != nil {
				return nil, err
			}
			if err := desc.add(block); err != nil {
				return nil, err
			}
		}
	}
}

func (d *Descriptor) add(b *Block) error {
	if b.Type != "template" && strings.TrimSpace(b.Content) == "" {
		if _, hasSrc := b.Attrs["src"]; !hasSrc {
			return nil
		}
	}

	switch b.Type {
	case "template":
		if d.Template != nil {
			return newParseError(d.Source, b.TagStart, "single file component can contain only one <template> element")
		}
		d.Template = b
	case "script":
		if b.Setup {
			if d.ScriptSetup != nil {
				return newParseError(d.Source, b.TagStart, "single file component can contain only one <script setup> element")
			}
			d.ScriptSetup = b
			return nil
		}
		if d.Script != nil {
			return newParseError(d.Source, b.TagStart, "single file component can contain only one <script> element")
		}
		d.Script = b
	case "style":
		d.Styles = append(d.Styles, b)
	default:
		d.CustomBlocks = append(d.CustomBlocks, b)
	}
	return nil
}

type sfcScanner struct {
	src    string
	z      *html.Tokenizer
	offset int
}

// reset restarts tokenization at an absolute offset.
func (s *sfcScanner) reset(at int) {
	s.z = html.NewTokenizer(strings.NewReader(s.src[at:]))
	s.offset = at
}

// next advances one token and returns its type and absolute start offset.
func (s *sfcScanner) next() (html.TokenType, int) {
	tt := s.z.Next()
	start := s.offset
	s.offset += len(s.z.Raw())
	return tt, start
}

// dropRawState restarts the tokenizer after a self-closing tag. The tokenizer
// enters raw text mode for <textarea/>, <title/> and similar even when the
// tag closes itself.
func (s *sfcScanner) dropRawState() {
	s.reset(s.offset)
}

// readBlock consumes a top-level element whose start tag was just read.
func (s *sfcScanner) readBlock(tagStart int) (*Block, error) {
	name, hasAttr := s.z.TagName()
	block := &Block{
		Type:     string(name),
		Attrs:    make(map[string]string),
		TagStart: tagStart,
		Start:    s.offset,
	}
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = s.z.TagAttr()
		block.Attrs[string(key)] = string(val)
	}
	block.Lang = block.Attrs["lang"]
	_, block.Setup = block.Attrs["setup"]

	var err error
	switch {
	case block.Type == "script" || block.Type == "style":
		err = s.readRawBlock(block)
	case block.Type == "template" && block.Lang != "" && block.Lang != "html":
		err = s.scanToEndTag(block)
	default:
		err = s.readNestedBlock(block)
	}
	if err != nil {
		return nil, err
	}
	block.Content = s.src[block.Start:block.End]
	return block, nil
}

// readRawBlock relies on the tokenizer treating script and style bodies as raw text.
func (s *sfcScanner) readRawBlock(block *Block) error {
	for {
		tt, start := s.next()
		switch tt {
		case html.ErrorToken:
			return s.missingEndTag(block)
		case html.EndTagToken:
			if name, _ := s.z.TagName(); string(name) == block.Type {
				block.End = start
				block.TagEnd = s.offset
				return nil
			}
		}
	}
}

// readNestedBlock ends the block at the matching same-name end tag.
func (s *sfcScanner) readNestedBlock(block *Block) error {
	depth := 1
	for {
		tt, start := s.next()
		switch tt {
		case html.ErrorToken:
			return s.missingEndTag(block)
		case html.SelfClosingTagToken:
			s.dropRawState()
		case html.StartTagToken:
			if name, _ := s.z.TagName(); string(name) == block.Type {
				depth++
			}
		case html.EndTagToken:
			if name, _ := s.z.TagName(); string(name) == block.Type {
				depth--
				if depth == 0 {
					block.End = start
					block.TagEnd = s.offset
					return nil
				}
			}
		}
	}
}

// scanToEndTag handles templates in a non-html language, whose body is opaque.
func (s *sfcScanner) scanToEndTag(block *Block) error {
	closing := "</" + block.Type
	i := indexFold(s.src[block.Start:], closing)
	if i < 0 {
		return s.missingEndTag(block)
	}
	block.End = block.Start + i
	s.reset(block.End)
	tt, _ := s.next()
	if tt != html.EndTagToken {
		return s.missingEndTag(block)
	}
	block.TagEnd = s.offset
	return nil
}

func (s *sfcScanner) missingEndTag(block *Block) error {
	if err := s.z.Err(); err != nil && !errors.Is(err, io.EOF) {
		return newParseError(s.src, s.offset, err.Error())
	}
	return newParseError(s.src, block.TagStart, fmt.Sprintf("element <%s> is missing end tag", block.Type))
}

// indexFold is a case-insensitive strings.Index for an ASCII needle.
func indexFold(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if strings.EqualFold(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}
