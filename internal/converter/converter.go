// Package converter turns a dereferenced Swagger 2.0 or OpenAPI 3.x document
// into a mock environment.
//
// Conversion is best effort: unsupported methods, range status codes such as
// "4XX" and missing optional fields are skipped or defaulted, never reported.
// Only two conditions stop an import: a document in neither dialect
// (ErrUnrecognizedDialect) and a server URL that uses an undeclared variable
// (ErrMissingServerVariable). A Converter holds no state between calls and may
// be shared by concurrent imports.
package converter

import (
	"errors"

	"github.com/mark3labs/mockimport/internal/environment"
	"github.com/mark3labs/mockimport/internal/logging"
	"github.com/mark3labs/mockimport/internal/spec"
)

// ErrUnrecognizedDialect is returned when a document is neither Swagger 2.0
// nor OpenAPI 3.x. No environment is produced.
var ErrUnrecognizedDialect = errors.New("converter: document is neither Swagger 2.0 nor OpenAPI 3.x")

type Converter struct {
	log logging.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger reports skipped constructs at debug level.
func WithLogger(l logging.Logger) Option {
	return func(c *Converter) { c.log = logging.OrNop(l) }
}

func New(opts ...Option) *Converter {
	c := &Converter{log: logging.Nop{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Import converts doc into a new Environment. doc must already be
// dereferenced.
func (c *Converter) Import(doc *spec.Document) (*environment.Environment, error) {
	dialect := spec.Detect(doc)
	a := adapterFor(dialect)
	if a == nil {
		return nil, ErrUnrecognizedDialect
	}

	log := c.log.With("dialect", dialect.String())
	root := doc.Root()
	env := environment.DefaultEnvironment()
	if err := a.applyDocument(env, root, log); err != nil {
		return nil, err
	}
	env.Routes = extractRoutes(root, a, log)
	log.Debug("document converted", "name", env.Name, "port", env.Port, "prefix", env.EndpointPrefix, "routes", len(env.Routes))
	return env, nil
}

// Import converts doc with a default Converter.
func Import(doc *spec.Document) (*environment.Environment, error) {
	return New().Import(doc)
}
