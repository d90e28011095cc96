package converter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMissingServerVariable is matched by every *ServerVariableError.
var ErrMissingServerVariable = errors.New("converter: undeclared server variable")

// ServerVariableError reports a server URL placeholder with no matching
// entry in the server's variables map.
type ServerVariableError struct {
	Name     string
	Template string
}

func (e *ServerVariableError) Error() string {
	return fmt.Sprintf("converter: server url %q references undeclared variable %q", e.Template, e.Name)
}

func (e *ServerVariableError) Is(target error) bool {
	return target == ErrMissingServerVariable
}

// placeholder matches "{name}" where name is made of word characters only.
var placeholder = regexp.MustCompile(`(?i)\{(\w+)\}`)

// replacePlaceholders calls replace for every placeholder in s, in order, and
// splices in the returned value. Anything that is not a well-formed
// placeholder is copied through untouched.
func replacePlaceholders(s string, replace func(name string) (string, error)) (string, error) {
	matches := placeholder.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		v, err := replace(s[m[2]:m[3]])
		if err != nil {
			return "", err
		}
		b.WriteString(v)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// RewritePath turns "{name}" path parameters into the ":name" form used by
// route endpoints. The leading slash, if any, is kept.
func RewritePath(path string) string {
	out, _ := replacePlaceholders(path, func(name string) (string, error) {
		return ":" + name, nil
	})
	return out
}

// ResolveServerVariables substitutes each "{name}" in template with
// defaults[name]. A placeholder without an entry yields a *ServerVariableError.
func ResolveServerVariables(template string, defaults map[string]string) (string, error) {
	return replacePlaceholders(template, func(name string) (string, error) {
		v, ok := defaults[name]
		if !ok {
			return "", &ServerVariableError{Name: name, Template: template}
		}
		return v, nil
	})
}

// trimLeadingSlash strips every leading slash, not just the first, so "//api"
// becomes "api". Endpoints and prefixes must never start with a slash.
func trimLeadingSlash(s string) string {
	return strings.TrimLeft(s, "/")
}
