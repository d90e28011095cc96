package environment

const (
	// DefaultPort is used when the source document does not carry a usable port.
	DefaultPort = 3000
	// DefaultStatusCode is the status of a freshly built response.
	DefaultStatusCode = "200"

	ContentTypeHeader      = "Content-Type"
	DefaultContentType     = "application/json"
	PlaceholderEnvironment = "OpenAPI import"
)

// DefaultEnvironment returns an empty environment listening on DefaultPort.
func DefaultEnvironment() *Environment {
	return &Environment{
		Port:   DefaultPort,
		Routes: []Route{},
	}
}

// DefaultRoute returns a GET route with no endpoint and no responses.
func DefaultRoute() Route {
	return Route{
		Method:    GET,
		Responses: []RouteResponse{},
	}
}

// DefaultRouteResponse returns a 200 response with an empty body and no headers.
func DefaultRouteResponse() RouteResponse {
	return RouteResponse{
		StatusCode: DefaultStatusCode,
		Headers:    []Header{},
	}
}

func NewHeader(key, value string) Header {
	return Header{Key: key, Value: value}
}

// ContentType builds the Content-Type header for the given media type,
// falling back to DefaultContentType when mediaType is empty.
func ContentType(mediaType string) Header {
	if mediaType == "" {
		mediaType = DefaultContentType
	}
	return NewHeader(ContentTypeHeader, mediaType)
}

// NewRouteResponse builds a response from explicit fields. An empty status
// falls back to DefaultStatusCode and nil headers become an empty list. The
// body is always empty: bodies are not generated at import time.
func NewRouteResponse(statusCode, label string, headers []Header) RouteResponse {
	r := DefaultRouteResponse()
	if statusCode != "" {
		r.StatusCode = statusCode
	}
	r.Label = label
	if headers != nil {
		r.Headers = headers
	}
	return r
}

// FallbackRouteResponse is the single response given to routes whose source
// operation declares no supported status code.
func FallbackRouteResponse() RouteResponse {
	return NewRouteResponse(DefaultStatusCode, "", []Header{ContentType(DefaultContentType)})
}

// NewRoute builds a route from explicit fields. An empty method falls back to
// GET and an empty response list is replaced by FallbackRouteResponse, so a
// route built here always has at least one response.
func NewRoute(method Method, endpoint, documentation string, responses []RouteResponse) Route {
	r := DefaultRoute()
	if method != "" {
		r.Method = method
	}
	r.Endpoint = endpoint
	r.Documentation = documentation
	if len(responses) == 0 {
		responses = []RouteResponse{FallbackRouteResponse()}
	}
	r.Responses = responses
	return r
}
