package virtualhost

import (
	"fmt"
	"strings"
)

const (
	scriptLangJS  = "js"
	scriptLangTS  = "ts"
	scriptLangJSX = "jsx"
	scriptLangTSX = "tsx"
)

const componentExt = ".vue"

// canonicalScriptLang maps a <script lang> attribute to a supported grammar key.
func canonicalScriptLang(lang string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(lang))
	switch normalized {
	case "", "js", "javascript", "mjs", "cjs":
		return scriptLangJS, nil
	case "ts", "typescript", "mts", "cts":
		return scriptLangTS, nil
	case "jsx":
		return scriptLangJSX, nil
	case "tsx":
		return scriptLangTSX, nil
	default:
		return "", fmt.Errorf("unsupported script language: %s", lang)
	}
}

func isTSXScript(lang string) bool {
	canonical, err := canonicalScriptLang(lang)
	if err != nil {
		return false
	}
	return canonical == scriptLangJSX || canonical == scriptLangTSX
}

// isComponentPath reports whether a normalized path carries the component extension.
func isComponentPath(path string) bool {
	return strings.HasSuffix(path, componentExt)
}
