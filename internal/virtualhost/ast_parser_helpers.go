package virtualhost

import (
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

var (
	typeScriptSyntaxLanguage = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	typeScriptTSXLanguage    = sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
)

func newScriptParser(lang string) (*sitter.Parser, error) {
	if isTSXScript(lang) {
		return newParserForLanguage(typeScriptTSXLanguage)
	}
	return newParserForLanguage(typeScriptSyntaxLanguage)
}

func newParserForLanguage(language *sitter.Language) (*sitter.Parser, error) {
	parser := sitter.NewParser()
	if err := parser.SetLanguage(language); err != nil {
		parser.Close()
		return nil, err
	}
	return parser, nil
}

func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return node.Utf8Text(source)
}

func unquoteStringLiteral(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 {
		return raw
	}
	if raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		raw = `"` + strings.ReplaceAll(raw[1:len(raw)-1], `"`, `\"`) + `"`
	}
	unquoted, err := strconv.Unquote(raw)
	if err != nil {
		return strings.Trim(raw, "\"'`")
	}
	return unquoted
}

// walkTreePreOrder visits nodes depth-first; returning false from visit skips the node's children.
func walkTreePreOrder(root *sitter.Node, visit func(*sitter.Node) bool) {
	if root == nil || visit == nil {
		return
	}

	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(node) {
			continue
		}

		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			child := node.Child(uint(i))
			if child != nil {
				stack = append(stack, child)
			}
		}
	}
}

// firstSyntaxError returns the first ERROR or MISSING node in document order.
func firstSyntaxError(root *sitter.Node) *sitter.Node {
	var found *sitter.Node
	walkTreePreOrder(root, func(node *sitter.Node) bool {
		if found != nil {
			return false
		}
		if node.IsError() || node.IsMissing() {
			found = node
			return false
		}
		return node.HasError()
	})
	return found
}
