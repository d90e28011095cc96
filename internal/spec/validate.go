package spec

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
)

// Validate checks doc against the full grammar of its dialect with
// kin-openapi. OpenAPI 3.x documents are validated from their raw bytes;
// Swagger 2.0 documents are validated from the dereferenced tree after
// conversion to v3. Unresolved $ref complaints are tolerated. Conversion
// itself never calls Validate: documents outside the supported subset are
// normalized best-effort instead.
func Validate(ctx context.Context, doc *Document) error {
	if doc == nil {
		return &SpecError{Code: InputError, Message: "spec: nil document"}
	}
	switch Detect(doc) {
	case OpenAPI3:
		loader := openapi3.NewLoader()
		loader.IsExternalRefsAllowed = true
		t, err := loader.LoadFromDataWithPath(doc.Raw, locationURL(doc.Location))
		if err != nil {
			return mapValidateOrParseErr(err, doc.Location)
		}
		return validateV3(ctx, t, doc.Location)
	case Swagger2:
		v2, err := decodeV2(doc.root)
		if err != nil {
			return &SpecError{Code: ParseError, Message: fmt.Sprintf("parse swagger 2.0: %v", err), Location: doc.Location, Cause: err}
		}
		t, err := openapi2conv.ToV3(v2)
		if err != nil {
			return &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: doc.Location, Cause: err}
		}
		return validateV3(ctx, t, doc.Location)
	default:
		return &SpecError{Code: ValidationError, Message: "spec: unknown or unsupported OpenAPI/Swagger version", Location: doc.Location}
	}
}

func validateV3(ctx context.Context, t *openapi3.T, location string) error {
	if err := t.Validate(ctx); err != nil && !canProceedDespiteValidation(err) {
		return mapValidateOrParseErr(err, location)
	}
	return nil
}

func locationURL(location string) *url.URL {
	if location == "" {
		return nil
	}
	if isHTTPURL(location) {
		u, err := url.Parse(location)
		if err == nil {
			return u
		}
	}
	return &url.URL{Path: location}
}

func mapValidateOrParseErr(err error, location string) error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	// Heuristics: some loader errors are parse errors.
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'\"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	// Unwrap MultiError and take the first for brevity.
	var me openapi3.MultiError
	if errors.As(err, &me) && len(me) > 0 {
		return extractJSONPointer(me[0])
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}

// canProceedDespiteValidation returns true for validation errors that only
// concern unresolved $ref entries.
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unresolved ref") || strings.Contains(s, "found unresolved ref")
}
