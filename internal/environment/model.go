package environment

// Mock environment model produced by the converter and consumed by the emitter.

type Method string

const (
	GET     Method = "get"
	POST    Method = "post"
	PUT     Method = "put"
	PATCH   Method = "patch"
	DELETE  Method = "delete"
	HEAD    Method = "head"
	OPTIONS Method = "options"
)

// Methods lists the supported HTTP methods in their canonical order.
var Methods = []Method{GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS}

// ParseMethod reports whether name (already lower-cased) is a supported method.
func ParseMethod(name string) (Method, bool) {
	for _, m := range Methods {
		if string(m) == name {
			return m, true
		}
	}
	return "", false
}

type Environment struct {
	Name           string  `json:"name"`
	Port           int     `json:"port"`
	EndpointPrefix string  `json:"endpointPrefix"`
	Routes         []Route `json:"routes"`
}

type Route struct {
	Method        Method          `json:"method"`
	Endpoint      string          `json:"endpoint"`
	Documentation string          `json:"documentation"`
	Responses     []RouteResponse `json:"responses"`
}

type RouteResponse struct {
	StatusCode string   `json:"statusCode"`
	Label      string   `json:"label"`
	Body       string   `json:"body"`
	Headers    []Header `json:"headers"`
}

type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
