package converter

import (
	"slices"
	"strings"

	"github.com/mark3labs/mockimport/internal/environment"
)

// BuildHeaders returns the headers of one response. The first header is
// always Content-Type: application/json unless contentTypes is non-empty and
// does not list application/json, in which case its first entry is used.
// Each name in headerNames follows with an empty value, in order. Empty names
// are dropped, and so are names that spell Content-Type, so the response
// keeps a single one.
func BuildHeaders(contentTypes, headerNames []string) []environment.Header {
	contentType := environment.DefaultContentType
	if len(contentTypes) > 0 && !slices.Contains(contentTypes, environment.DefaultContentType) {
		contentType = contentTypes[0]
	}

	headers := make([]environment.Header, 0, 1+len(headerNames))
	headers = append(headers, environment.ContentType(contentType))
	for _, name := range headerNames {
		if name == "" || strings.EqualFold(name, environment.ContentTypeHeader) {
			continue
		}
		headers = append(headers, environment.NewHeader(name, ""))
	}
	return headers
}
