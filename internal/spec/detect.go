package spec

import "strings"

// Dialect identifies which major version of the API description format a
// document is written in.
type Dialect int

const (
	Unrecognized Dialect = iota
	// Swagger2 documents carry a top-level "swagger" field.
	Swagger2
	// OpenAPI3 documents carry a top-level "openapi" field starting with "3.".
	OpenAPI3
)

func (d Dialect) String() string {
	switch d {
	case Swagger2:
		return "swagger2"
	case OpenAPI3:
		return "openapi3"
	default:
		return "unrecognized"
	}
}

// Detect classifies doc. A non-empty "swagger" field wins over "openapi".
func Detect(doc *Document) Dialect {
	root := doc.Root()
	if v := root.Get("swagger").Text(); strings.TrimSpace(v) != "" {
		return Swagger2
	}
	if v := root.Get("openapi").Text(); strings.HasPrefix(strings.TrimSpace(v), "3.") {
		return OpenAPI3
	}
	return Unrecognized
}
