// Package tmpl renders the command templates used by shell-backed
// reviewers and verifiers.
package tmpl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// shellQuote returns a shell-safe quoted string. It wraps the string in single
// quotes and escapes any existing single quotes using the '\'' technique.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	escaped := strings.ReplaceAll(s, "'", `'\''`)
	return "'" + escaped + "'"
}

var funcs = template.FuncMap{
	"shq":  shellQuote,
	"join": strings.Join,
}

// CommandData is the data available to command templates.
type CommandData struct {
	Path      string // sandbox-relative artifact path
	Dir       string // sandbox-relative directory of the artifact ("." for the root)
	Root      string // absolute sandbox root
	Iteration int    // 1-based round number, 0 when not applicable
}

// Render executes a Go template string with the given data.
// Returns an error if the template is invalid or references undefined keys.
//
// Available template functions:
//   - shq: Shell-quote a string for safe use in shell commands
//   - join: Join string slice with separator
func Render(tmpl string, data any) (string, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

// Check parses tmpl and executes it against zero-valued CommandData so
// config validation can surface template errors before a run starts.
func Check(tmpl string) error {
	_, err := Render(tmpl, CommandData{})
	return err
}
