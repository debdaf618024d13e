package virtualhost

import "strings"

const indentUnit = "  "

// Expr is a node of the small expression tree lifted from a defineOptions call.
type Expr interface {
	render(depth int) string
}

// Call is a call expression with a plain identifier callee.
type Call struct {
	Callee   string
	TypeArgs string
	// Comments found in the argument list, rendered ahead of the first argument.
	Comments []string
	Args     []Expr
}

// Object is an object literal. Source holds the original text; an object that
// has not been touched renders back to it verbatim.
type Object struct {
	Members []Member
	Source  string
	touched bool
}

// Member is one entry of an object literal.
type Member interface {
	// Name is the resolved key, or "" when the member has no static key.
	Name() string
	isComment() bool
	render(depth int) string
}

// Property is a key/value member. Key keeps its source spelling.
type Property struct {
	Key    string
	Value  Expr
	Source string
	name   string
}

// RawMember is a member kept verbatim: spreads, shorthands, methods, comments.
type RawMember struct {
	Text    string
	Key     string
	comment bool
}

// Ident is an identifier reference.
type Ident struct{ Name string }

// Bool is a boolean literal.
type Bool bool

// Raw is any expression kept as its source text.
type Raw struct{ Text string }

func (c *Call) String() string { return c.render(0) }

func (c *Call) render(depth int) string {
	var sb strings.Builder
	sb.WriteString(c.Callee)
	sb.WriteString(c.TypeArgs)
	sb.WriteByte('(')
	for _, comment := range c.Comments {
		sb.WriteString(comment)
		if strings.HasPrefix(comment, "//") {
			sb.WriteByte('\n')
			sb.WriteString(strings.Repeat(indentUnit, depth))
		} else {
			sb.WriteByte(' ')
		}
	}
	for i, arg := range c.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.render(depth))
	}
	sb.WriteByte(')')
	return sb.String()
}

func (o *Object) render(depth int) string {
	if !o.touched && o.Source != "" {
		return o.Source
	}
	if len(o.Members) == 0 {
		return "{}"
	}

	lastValue := -1
	for i, m := range o.Members {
		if !m.isComment() {
			lastValue = i
		}
	}

	var sb strings.Builder
	sb.WriteString("{\n")
	for i, m := range o.Members {
		sb.WriteString(strings.Repeat(indentUnit, depth+1))
		sb.WriteString(m.render(depth + 1))
		if !m.isComment() && i < lastValue {
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(strings.Repeat(indentUnit, depth))
	sb.WriteByte('}')
	return sb.String()
}

// Lookup returns the index of the first member named name, or -1.
func (o *Object) Lookup(name string) int {
	for i, m := range o.Members {
		if m.Name() == name {
			return i
		}
	}
	return -1
}

// Append adds a member after all existing ones.
func (o *Object) Append(m Member) {
	o.Members = append(o.Members, m)
	o.touched = true
}

// Replace swaps the member at i.
func (o *Object) Replace(i int, m Member) {
	o.Members[i] = m
	o.touched = true
}

func (p *Property) Name() string { return p.name }
func (p *Property) isComment() bool { return false }

func (p *Property) render(depth int) string {
	if obj, ok := p.Value.(*Object); ok && obj.touched {
		return p.Key + ": " + obj.render(depth)
	}
	if p.Source != "" {
		return p.Source
	}
	return p.Key + ": " + p.Value.render(depth)
}

func (r *RawMember) Name() string { return r.Key }
func (r *RawMember) isComment() bool { return r.comment }
func (r *RawMember) render(int) string { return r.Text }
func (i *Ident) render(int) string { return i.Name }
func (r *Raw) render(int) string { return r.Text }
func (b Bool) render(int) string {
	if b {
		return "true"
	}
	return "false"
}

func newProperty(key string, value Expr) *Property {
	return &Property{Key: key, Value: value, name: key}
}

func newObject(members ...Member) *Object {
	return &Object{Members: members, touched: true}
}

// defaultOptionsCall is defineOptions({ options: { virtualHost: true } }).
func defaultOptionsCall() *Call {
	return &Call{
		Callee: optionsMacro,
		Args:   []Expr{defaultOptionsObject()},
	}
}

func defaultOptionsObject() *Object {
	return newObject(newProperty(optionsKey, newObject(newProperty(virtualHostKey, Bool(true)))))
}
