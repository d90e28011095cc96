package converter

import (
	"strings"

	"github.com/mark3labs/mockimport/internal/environment"
	"github.com/mark3labs/mockimport/internal/logging"
	"github.com/mark3labs/mockimport/internal/spec"
)

// ExtractRoutes walks every path and supported method of doc, in document
// order, and builds one route per operation. It returns nil when dialect is
// Unrecognized.
func ExtractRoutes(doc *spec.Document, dialect spec.Dialect) []environment.Route {
	a := adapterFor(dialect)
	if a == nil {
		return nil
	}
	return extractRoutes(doc.Root(), a, logging.Nop{})
}

func extractRoutes(root spec.Node, a dialectAdapter, log logging.Logger) []environment.Route {
	routes := make([]environment.Route, 0)
	for _, path := range root.Get("paths").Pairs() {
		if !path.Value.IsMap() {
			log.Debug("skipping path item that is not an object", "path", path.Key)
			continue
		}
		for _, op := range path.Value.Pairs() {
			method, ok := environment.ParseMethod(strings.ToLower(op.Key))
			if !ok {
				// path-level "parameters", "summary", "x-*" extensions and
				// unsupported verbs such as trace all land here.
				log.Debug("skipping unsupported method", "path", path.Key, "method", op.Key)
				continue
			}
			if !op.Value.IsMap() {
				log.Debug("skipping operation that is not an object", "path", path.Key, "method", op.Key)
				continue
			}
			responses := extractResponses(op.Value, a, log.With("path", path.Key, "method", op.Key))
			routes = append(routes, environment.NewRoute(
				method,
				trimLeadingSlash(RewritePath(path.Key)),
				documentation(op.Value),
				responses,
			))
		}
	}
	return routes
}

// extractResponses keeps the responses whose status code is whitelisted.
// A malformed response only drops its own status code.
func extractResponses(operation spec.Node, a dialectAdapter, log logging.Logger) []environment.RouteResponse {
	var out []environment.RouteResponse
	for _, r := range operation.Get("responses").Pairs() {
		if !environment.IsSupportedStatus(r.Key) {
			log.Debug("skipping unsupported status code", "status", r.Key)
			continue
		}
		if !r.Value.IsMap() {
			log.Debug("skipping response that is not an object", "status", r.Key)
			continue
		}
		headers := BuildHeaders(a.contentTypes(operation, r.Value), r.Value.Get("headers").Keys())
		out = append(out, environment.NewRouteResponse(r.Key, r.Value.Get("description").Text(), headers))
	}
	return out
}

func documentation(operation spec.Node) string {
	if s := operation.Get("summary").Text(); s != "" {
		return s
	}
	return operation.Get("description").Text()
}
