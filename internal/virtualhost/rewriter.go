package virtualhost

import (
	"fmt"
	"strings"
)

// Result is the outcome of rewriting one component.
type Result struct {
	Code string
	// Map is set when existing script text was patched.
	Map      *SourceMap
	Changed  bool
	Warnings []string
}

// Rewrite ensures the component declares options.virtualHost through defineOptions.
func Rewrite(source string) (*Result, error) {
	return RewriteFile("", source)
}

// RewriteFile is Rewrite with a file name recorded in the source map.
func RewriteFile(filename, source string) (*Result, error) {
	desc, err := ParseSFC(source)
	if err != nil {
		return nil, err
	}

	setup := desc.ScriptSetup
	if setup == nil {
		return &Result{Code: synthesizeSetup(desc), Changed: true}, nil
	}

	patch := NewPatch(source)
	var warnings []string
	merged := false
	if strings.Contains(setup.Content, optionsMacro) {
		calls, err := parseOptionsCalls(desc, setup)
		if err != nil {
			return nil, err
		}
		for _, oc := range calls {
			changed, warns := ensureVirtualHost(oc.Call)
			warnings = append(warnings, warns...)
			if !changed {
				continue
			}
			if err := patch.Overwrite(setup.Start+oc.Start, setup.Start+oc.End, oc.Call.String()); err != nil {
				return nil, fmt.Errorf("patch %s call: %w", optionsMacro, err)
			}
		}
		merged = len(calls) > 0
	}
	if !merged {
		if err := patch.Insert(setup.End, "\n"+defaultOptionsCall().String()+"\n"); err != nil {
			return nil, fmt.Errorf("append %s call: %w", optionsMacro, err)
		}
	}

	if !patch.HasChanges() {
		return &Result{Code: source, Warnings: warnings}, nil
	}
	return &Result{
		Code:     patch.String(),
		Map:      patch.SourceMap(filename),
		Changed:  true,
		Warnings: warnings,
	}, nil
}

// synthesizeSetup prepends a <script setup> block holding the default call.
// A plain <script lang> is mirrored since both scripts must share a language.
func synthesizeSetup(desc *Descriptor) string {
	open := "<script setup>"
	if desc.Script != nil && desc.Script.Lang != "" {
		open = fmt.Sprintf("<script setup lang=%q>", desc.Script.Lang)
	}
	return open + "\n" + defaultOptionsCall().String() + "\n</script>\n\n" + desc.Source
}

// ensureVirtualHost mutates call so that its first argument carries
// options.virtualHost. An existing virtualHost is never overwritten.
func ensureVirtualHost(call *Call) (bool, []string) {
	if len(call.Args) == 0 {
		call.Args = []Expr{defaultOptionsObject()}
		return true, nil
	}

	arg, ok := call.Args[0].(*Object)
	if !ok {
		warning := fmt.Sprintf("%s argument %q is not an object literal and was replaced", optionsMacro, summarize(call.Args[0]))
		call.Args = []Expr{defaultOptionsObject()}
		return true, []string{warning}
	}

	var warnings []string
	options, warning := ensureObjectProperty(arg, optionsKey)
	if warning != "" {
		warnings = append(warnings, warning)
	}
	if options.Lookup(virtualHostKey) < 0 {
		options.Append(newProperty(virtualHostKey, Bool(true)))
	}
	if options.touched {
		arg.touched = true
	}
	return arg.touched, warnings
}

// ensureObjectProperty returns the object literal stored under name, creating
// or replacing the member when it is missing or holds something else.
func ensureObjectProperty(obj *Object, name string) (*Object, string) {
	i := obj.Lookup(name)
	if i < 0 {
		value := newObject()
		obj.Append(newProperty(name, value))
		return value, ""
	}

	value := newObject()
	if prop, ok := obj.Members[i].(*Property); ok {
		if existing, ok := prop.Value.(*Object); ok {
			return existing, ""
		}
		obj.Replace(i, &Property{Key: prop.Key, Value: value, name: name})
		return value, fmt.Sprintf("%s value %q is not an object literal and was replaced", name, summarize(prop.Value))
	}

	replaced := obj.Members[i]
	obj.Replace(i, newProperty(name, value))
	return value, fmt.Sprintf("%s member %q is not a key/value pair and was replaced", name, truncate(firstLine(replaced.render(0)), 40))
}

func summarize(e Expr) string {
	return truncate(firstLine(e.render(0)), 40)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
