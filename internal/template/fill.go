// Package template fills {{variable}} tokens in workflow documents.
//
// Workflow templates are opaque JSON blobs handed to the render backend.
// Variables appear in two positions: as an entire quoted token
// ("{{seed}}"), where the replacement must stay JSON-typed, and embedded
// inside a longer string ("a photo of {{subject}}"), where the replacement
// is plain text.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_.-]+)\}\}`)

// Fill replaces every occurrence of the mapped variables in doc.
//
// All standalone substitutions are applied first, for every variable, then
// all inline ones. Unresolved tokens are left untouched; validating
// completeness is the caller's job. Output depends only on doc and vars.
func Fill(doc string, vars map[string]interface{}) (string, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	// Standalone pass: the value is the entire quoted token, so the
	// JSON-encoded form replaces quotes and all. Numbers stay numeric.
	for _, name := range names {
		encoded, err := json.Marshal(vars[name])
		if err != nil {
			return "", fmt.Errorf("failed to encode variable %q: %w", name, err)
		}
		doc = strings.ReplaceAll(doc, `"{{`+name+`}}"`, string(encoded))
	}

	// Inline pass: the token sits inside a larger string, so the value's
	// unescaped textual form is spliced in.
	for _, name := range names {
		doc = strings.ReplaceAll(doc, `{{`+name+`}}`, textForm(vars[name]))
	}

	return doc, nil
}

// Unresolved returns the variable names still present in doc, in order of
// first appearance
func Unresolved(doc string) []string {
	seen := make(map[string]bool)
	var names []string

	for _, match := range tokenPattern.FindAllStringSubmatch(doc, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}

	return names
}

// textForm renders a variable value for inline substitution
func textForm(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}

	return string(encoded)
}
