package statement

import (
	"regexp"
	"strconv"
)

// ReferenceExtractor pulls the payment reference out of a free-text
// description.
type ReferenceExtractor struct {
	pattern *regexp.Regexp
}

func NewReferenceExtractor(pattern string) (*ReferenceExtractor, error) {
	re, err := compileReference(pattern)
	if err != nil {
		return nil, err
	}
	return &ReferenceExtractor{pattern: re}, nil
}

// Extract returns the normalized reference, or "" when the description has
// none or names more than one distinct reference.
func (e *ReferenceExtractor) Extract(description string) string {
	var found string
	for _, match := range e.pattern.FindAllStringSubmatch(description, -1) {
		ref := normalizeReference(match[1])
		if ref == "" {
			continue
		}
		if found != "" && found != ref {
			return ""
		}
		found = ref
	}
	return found
}

func normalizeReference(raw string) string {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return ""
	}
	return strconv.Itoa(n)
}
