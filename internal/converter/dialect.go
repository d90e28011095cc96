package converter

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/mark3labs/mockimport/internal/environment"
	"github.com/mark3labs/mockimport/internal/logging"
	"github.com/mark3labs/mockimport/internal/spec"
)

// dialectAdapter reads the fields whose location differs between Swagger 2.0
// and OpenAPI 3.x. Everything else is walked by the shared route extractor.
type dialectAdapter interface {
	// applyDocument sets the document-level fields of env: name, port and
	// endpoint prefix for Swagger 2.0, the endpoint prefix for OpenAPI 3.x.
	applyDocument(env *environment.Environment, root spec.Node, log logging.Logger) error
	// contentTypes lists the media types a response may be served with.
	contentTypes(operation, response spec.Node) []string
}

func adapterFor(d spec.Dialect) dialectAdapter {
	switch d {
	case spec.Swagger2:
		return swagger2Adapter{}
	case spec.OpenAPI3:
		return openAPI3Adapter{}
	default:
		return nil
	}
}

func environmentName(root spec.Node) string {
	if title := root.Path("info", "title").Text(); title != "" {
		return title
	}
	return environment.PlaceholderEnvironment
}

type swagger2Adapter struct{}

func (swagger2Adapter) applyDocument(env *environment.Environment, root spec.Node, _ logging.Logger) error {
	if port, ok := hostPort(root.Get("host").Text()); ok {
		env.Port = port
	}
	if basePath := root.Get("basePath").Text(); basePath != "" {
		env.EndpointPrefix = trimLeadingSlash(basePath)
	}
	env.Name = environmentName(root)
	return nil
}

// contentTypes reads the operation's own "produces". The document-level list
// is not consulted.
func (swagger2Adapter) contentTypes(operation, _ spec.Node) []string {
	return operation.Get("produces").Strings()
}

// hostPort extracts the port from a "host[:port]" value. Like parseInt, it
// reads the leading digits after the first colon; anything outside 1-65535
// is rejected.
func hostPort(host string) (int, bool) {
	parts := strings.Split(host, ":")
	if len(parts) < 2 {
		return 0, false
	}
	digits := parts[1]
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	port, err := strconv.Atoi(digits[:end])
	if err != nil || port < 1 || port > 65535 {
		return 0, false
	}
	return port, true
}

type openAPI3Adapter struct{}

// applyDocument takes the endpoint prefix from the path of the first server
// URL. Name and port keep their defaults, even when the URL carries a port.
// A URL that does not parse leaves the prefix empty; only an undeclared
// variable fails the import.
func (openAPI3Adapter) applyDocument(env *environment.Environment, root spec.Node, log logging.Logger) error {
	servers := root.Get("servers").Items()
	if len(servers) == 0 {
		return nil
	}
	u, err := ServerURL(servers[0])
	var sve *ServerVariableError
	switch {
	case errors.As(err, &sve):
		return err
	case err != nil:
		log.Debug("ignoring unparsable server url", "error", err)
	case u != nil:
		env.EndpointPrefix = trimLeadingSlash(u.EscapedPath())
	}
	return nil
}

func (openAPI3Adapter) contentTypes(_, response spec.Node) []string {
	return response.Get("content").Keys()
}

// ServerURL resolves the "url" of an OpenAPI 3 server object, substituting
// variable defaults. It returns nil when the server has no url. An undeclared
// variable yields a *ServerVariableError; a result that is not a URL yields
// the *url.Error from url.Parse.
func ServerURL(server spec.Node) (*url.URL, error) {
	template := server.Get("url").Text()
	if template == "" {
		return nil, nil
	}
	defaults := make(map[string]string)
	for _, v := range server.Get("variables").Pairs() {
		defaults[v.Key] = v.Value.Get("default").Text()
	}
	resolved, err := ResolveServerVariables(template, defaults)
	if err != nil {
		return nil, err
	}
	return url.Parse(resolved)
}
