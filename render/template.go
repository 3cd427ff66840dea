// Package render loads and compiles row templates. Placeholders use the
// `{{ field }}` syntax; values are escaped for XML/HTML output. There is no
// triple-brace form: write `{{ field|safe }}` to insert a value unescaped.
package render

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
)

// ErrInvalidText is returned when a template file is not valid UTF-8
var ErrInvalidText = errors.New("template is not valid UTF-8 text")

// TemplateReadError reports a template file that could not be read
type TemplateReadError struct {
	Path string
	Err  error
}

func (e *TemplateReadError) Error() string {
	return fmt.Sprintf("failed to read template %s: %v", e.Path, e.Err)
}

func (e *TemplateReadError) Unwrap() error {
	return e.Err
}

// TemplateCompileError reports malformed placeholder syntax
type TemplateCompileError struct {
	Name string
	Err  error
}

func (e *TemplateCompileError) Error() string {
	return fmt.Sprintf("failed to compile template %s: %v", e.Name, e.Err)
}

func (e *TemplateCompileError) Unwrap() error {
	return e.Err
}

// Load reads the whole template file
func Load(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", &TemplateReadError{Path: path, Err: err}
	}
	if !utf8.Valid(content) {
		return "", &TemplateReadError{Path: path, Err: ErrInvalidText}
	}
	return string(content), nil
}

// Template is a compiled template. It is safe to render many times.
type Template struct {
	name         string
	tpl          *pongo2.Template
	placeholders []string
}

// Compile parses text once. name is only used in error messages.
func Compile(name, text string) (*Template, error) {
	tpl, err := pongo2.FromString(text)
	if err != nil {
		return nil, &TemplateCompileError{Name: name, Err: err}
	}
	return &Template{
		name:         name,
		tpl:          tpl,
		placeholders: Placeholders(text),
	}, nil
}

// Placeholders returns the field names the template references, in order of
// first use
func (t *Template) Placeholders() []string {
	out := make([]string, len(t.placeholders))
	copy(out, t.placeholders)
	return out
}

// Missing returns the referenced fields that values does not provide
func (t *Template) Missing(values map[string]string) []string {
	var missing []string
	for _, name := range t.placeholders {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Render substitutes values into the template. Fields whose names are not
// identifiers (`first name`, `e-mail`) cannot be referenced and are left out.
func (t *Template) Render(values map[string]string) (string, error) {
	ctx := make(pongo2.Context, len(values))
	for k, v := range values {
		if contextKey.MatchString(k) {
			ctx[k] = v
		}
	}
	out, err := t.tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", t.name, err)
	}
	return out, nil
}

var (
	contextKey  = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	variableTag = regexp.MustCompile(`\{\{-?\s*([A-Za-z_][A-Za-z0-9_]*)`)
	forTag      = regexp.MustCompile(`\{%-?\s*for\s+([A-Za-z_][A-Za-z0-9_]*)(?:\s*,\s*([A-Za-z_][A-Za-z0-9_]*))?\s+in\s`)
	setTag      = regexp.MustCompile(`\{%-?\s*set\s+([A-Za-z_][A-Za-z0-9_]*)\s*=`)
	withTag     = regexp.MustCompile(`\{%-?\s*with\s+([^%]*)%\}`)
	withAssign  = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*=`)
)

var literals = map[string]bool{
	"true": true, "false": true, "True": true, "False": true,
	"nil": true, "none": true, "None": true, "forloop": true,
}

// Placeholders lists the dataset fields referenced by `{{ ... }}` expressions
// in text. Names bound inside the template by for, set and with tags are not
// fields and are left out.
func Placeholders(text string) []string {
	bound := make(map[string]bool)
	for _, m := range forTag.FindAllStringSubmatch(text, -1) {
		bound[m[1]] = true
		if m[2] != "" {
			bound[m[2]] = true
		}
	}
	for _, m := range setTag.FindAllStringSubmatch(text, -1) {
		bound[m[1]] = true
	}
	for _, m := range withTag.FindAllStringSubmatch(text, -1) {
		for _, a := range withAssign.FindAllStringSubmatch(m[1], -1) {
			bound[a[1]] = true
		}
	}

	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, m := range variableTag.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if literals[name] || bound[name] || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
