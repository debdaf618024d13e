package virtualhost

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const (
	optionsMacro   = "defineOptions"
	optionsKey     = "options"
	virtualHostKey = "virtualHost"
)

// optionsCall is a lifted defineOptions call and its byte range in the setup content.
type optionsCall struct {
	Start int
	End   int
	Call  *Call
}

// parseOptionsCalls parses <script setup> content and lifts every outermost defineOptions call.
func parseOptionsCalls(desc *Descriptor, setup *Block) ([]optionsCall, error) {
	if _, err := canonicalScriptLang(setup.Lang); err != nil {
		line, col := lineColumn(desc.Source, setup.TagStart)
		return nil, &SectionParseError{Lang: setup.Lang, Line: line, Column: col, Msg: err.Error()}
	}

	parser, err := newScriptParser(setup.Lang)
	if err != nil {
		return nil, fmt.Errorf("create script parser: %w", err)
	}
	defer parser.Close()

	src := []byte(setup.Content)
	tree := parser.Parse(src, nil)
	if tree == nil {
		line, col := lineColumn(desc.Source, setup.Start)
		return nil, &SectionParseError{Lang: setup.Lang, Line: line, Column: col, Msg: "parser produced no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, nil
	}
	if root.HasError() {
		return nil, syntaxError(desc, setup, root, src)
	}

	var calls []optionsCall
	walkTreePreOrder(root, func(node *sitter.Node) bool {
		if !isOptionsCall(node, src) {
			return true
		}
		calls = append(calls, optionsCall{
			Start: int(node.StartByte()),
			End:   int(node.EndByte()),
			Call:  liftCall(node, src),
		})
		return false
	})
	return calls, nil
}

func syntaxError(desc *Descriptor, setup *Block, root *sitter.Node, src []byte) *SectionParseError {
	offset := setup.Start
	msg := "syntax error"
	if node := firstSyntaxError(root); node != nil {
		offset += int(node.StartByte())
		if node.IsMissing() {
			msg = fmt.Sprintf("missing %q", node.Kind())
		} else {
			msg = fmt.Sprintf("unexpected %q", truncate(nodeText(node, src), 40))
		}
	}
	line, col := lineColumn(desc.Source, offset)
	return &SectionParseError{Lang: setup.Lang, Line: line, Column: col, Msg: msg}
}

func isOptionsCall(node *sitter.Node, src []byte) bool {
	if node.Kind() != "call_expression" {
		return false
	}
	fn := node.ChildByFieldName("function")
	return fn != nil && fn.Kind() == "identifier" && nodeText(fn, src) == optionsMacro
}

func liftCall(node *sitter.Node, src []byte) *Call {
	call := &Call{Callee: nodeText(node.ChildByFieldName("function"), src)}
	if typeArgs := node.ChildByFieldName("type_arguments"); typeArgs != nil {
		call.TypeArgs = nodeText(typeArgs, src)
	}

	args := node.ChildByFieldName("arguments")
	if args == nil {
		return call
	}
	if args.Kind() != "arguments" {
		// Tagged template form.
		call.Args = []Expr{&Raw{Text: nodeText(args, src)}}
		return call
	}
	for i := uint(0); i < args.NamedChildCount(); i++ {
		arg := args.NamedChild(i)
		if arg == nil {
			continue
		}
		if arg.Kind() == "comment" {
			call.Comments = append(call.Comments, nodeText(arg, src))
			continue
		}
		call.Args = append(call.Args, liftExpr(arg, src))
	}
	return call
}

func liftExpr(node *sitter.Node, src []byte) Expr {
	if node == nil {
		return &Raw{}
	}
	switch node.Kind() {
	case "object":
		return liftObject(node, src)
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	case "identifier":
		return &Ident{Name: nodeText(node, src)}
	default:
		return &Raw{Text: nodeText(node, src)}
	}
}

func liftObject(node *sitter.Node, src []byte) *Object {
	obj := &Object{Source: nodeText(node, src)}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		text := nodeText(child, src)
		switch child.Kind() {
		case "pair":
			key := child.ChildByFieldName("key")
			obj.Members = append(obj.Members, &Property{
				Key:    nodeText(key, src),
				Value:  liftExpr(child.ChildByFieldName("value"), src),
				Source: text,
				name:   propertyKeyName(key, src),
			})
		case "comment":
			obj.Members = append(obj.Members, &RawMember{Text: text, comment: true})
		case "method_definition":
			obj.Members = append(obj.Members, &RawMember{
				Text: text,
				Key:  propertyKeyName(child.ChildByFieldName("name"), src),
			})
		case "shorthand_property_identifier":
			obj.Members = append(obj.Members, &RawMember{Text: text, Key: text})
		default:
			obj.Members = append(obj.Members, &RawMember{Text: text})
		}
	}
	return obj
}

// propertyKeyName resolves identifier and string keys; computed keys have no static name.
func propertyKeyName(key *sitter.Node, src []byte) string {
	if key == nil {
		return ""
	}
	switch key.Kind() {
	case "property_identifier", "identifier":
		return nodeText(key, src)
	case "string":
		return unquoteStringLiteral(nodeText(key, src))
	default:
		return ""
	}
}
