package converter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/mockimport/internal/environment"
	"github.com/mark3labs/mockimport/internal/spec"
)

func load(t *testing.T, src string) *spec.Document {
	t.Helper()
	doc, err := spec.Parse([]byte(strings.TrimSpace(src) + "\n"))
	require.NoError(t, err)
	require.NoError(t, spec.Dereference(context.Background(), doc, nil))
	return doc
}

const petstoreV2 = `
swagger: "2.0"
info:
  title: Swagger Petstore
  version: 1.0.0
host: api.example.com:8443
basePath: /v1/
produces:
  - application/xml
paths:
  /pets:
    get:
      summary: List all pets
      description: ignored when a summary exists
      produces: [application/json, application/xml]
      responses:
        "200":
          description: A paged array of pets
          headers:
            x-next:
              type: string
        default:
          description: unexpected error
    post:
      description: Create a pet
      responses:
        "201":
          description: Null response
  /pets/{petId}:
    parameters:
      - name: petId
        in: path
        required: true
        type: string
    get:
      operationId: showPetById
      responses:
        "200":
          $ref: '#/responses/Pet'
        "404":
          description: not found
    x-internal:
      summary: vendor extension
responses:
  Pet:
    description: Expected response to a valid request
    headers:
      X-Rate-Limit:
        type: integer
      X-Trace:
        type: string
`

func TestImport_Swagger2(t *testing.T) {
	t.Parallel()

	env, err := Import(load(t, petstoreV2))
	require.NoError(t, err)

	assert.Equal(t, "Swagger Petstore", env.Name)
	assert.Equal(t, 8443, env.Port)
	assert.Equal(t, "v1/", env.EndpointPrefix)
	require.Len(t, env.Routes, 3)

	list := env.Routes[0]
	assert.Equal(t, environment.GET, list.Method)
	assert.Equal(t, "pets", list.Endpoint)
	assert.Equal(t, "List all pets", list.Documentation)
	require.Len(t, list.Responses, 1, "default is not a literal status code")
	assert.Equal(t, environment.RouteResponse{
		StatusCode: "200",
		Label:      "A paged array of pets",
		Headers: []environment.Header{
			{Key: "Content-Type", Value: "application/json"},
			{Key: "x-next", Value: ""},
		},
	}, list.Responses[0])

	create := env.Routes[1]
	assert.Equal(t, environment.POST, create.Method)
	assert.Equal(t, "Create a pet", create.Documentation)
	require.Len(t, create.Responses, 1)
	assert.Equal(t, "201", create.Responses[0].StatusCode)
	assert.Equal(t, []environment.Header{{Key: "Content-Type", Value: "application/json"}}, create.Responses[0].Headers,
		"document-level produces is ignored")

	show := env.Routes[2]
	assert.Equal(t, "pets/:petId", show.Endpoint)
	assert.Empty(t, show.Documentation)
	require.Len(t, show.Responses, 2)
	assert.Equal(t, "Expected response to a valid request", show.Responses[0].Label)
	assert.Equal(t, []environment.Header{
		{Key: "Content-Type", Value: "application/json"},
		{Key: "X-Rate-Limit", Value: ""},
		{Key: "X-Trace", Value: ""},
	}, show.Responses[0].Headers)
	assert.Equal(t, "404", show.Responses[1].StatusCode)

	require.NoError(t, environment.Validate(env))
}

func TestImport_Swagger2_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		port   int
		prefix string
		title  string
	}{
		{"no host", `swagger: "2.0"`, environment.DefaultPort, "", environment.PlaceholderEnvironment},
		{"host without port", "swagger: '2.0'\nhost: api.example.com\nbasePath: /", environment.DefaultPort, "", environment.PlaceholderEnvironment},
		{"non numeric port", "swagger: '2.0'\nhost: 'api.example.com:http'", environment.DefaultPort, "", environment.PlaceholderEnvironment},
		{"port out of range", "swagger: '2.0'\nhost: 'api.example.com:70000'", environment.DefaultPort, "", environment.PlaceholderEnvironment},
		{"trailing garbage", "swagger: '2.0'\nhost: 'localhost:8080abc'\ninfo: {title: T}", 8080, "", "T"},
		{"repeated leading slashes", "swagger: '2.0'\nbasePath: //api", environment.DefaultPort, "api", environment.PlaceholderEnvironment},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env, err := Import(load(t, tc.src))
			require.NoError(t, err)
			assert.Equal(t, tc.port, env.Port)
			assert.Equal(t, tc.prefix, env.EndpointPrefix)
			assert.Equal(t, tc.title, env.Name)
			assert.NotNil(t, env.Routes)
			assert.Empty(t, env.Routes)
		})
	}
}

const petstoreV3 = `
openapi: 3.0.3
info:
  title: Petstore v3
  version: 1.0.0
servers:
  - url: https://{env}.example.com/{basePath}
    variables:
      env:
        default: prod
        enum: [prod, staging]
      basePath:
        default: api
  - url: http://localhost:8080/ignored
paths:
  /pets:
    get:
      description: Returns all pets
      responses:
        "200":
          description: pet list
          content:
            application/xml:
              schema: {type: array}
            text/plain: {}
          headers:
            X-Total:
              schema: {type: integer}
        4XX:
          description: client error
    trace:
      responses:
        "200": {description: ok}
  /pets/{id}:
    delete:
      summary: Remove
      responses:
        "204":
          description: gone
    PATCH:
      responses:
        "200":
          description: patched
          content:
            application/json: {}
            application/xml: {}
`

func TestImport_OpenAPI3(t *testing.T) {
	t.Parallel()

	env, err := Import(load(t, petstoreV3))
	require.NoError(t, err)

	assert.Empty(t, env.Name, "name is not derived from info.title")
	assert.Equal(t, environment.DefaultPort, env.Port, "port is never derived from servers")
	assert.Equal(t, "api", env.EndpointPrefix)
	require.Len(t, env.Routes, 3)

	get := env.Routes[0]
	assert.Equal(t, "Returns all pets", get.Documentation)
	require.Len(t, get.Responses, 1)
	assert.Equal(t, []environment.Header{
		{Key: "Content-Type", Value: "application/xml"},
		{Key: "X-Total", Value: ""},
	}, get.Responses[0].Headers)

	del := env.Routes[1]
	assert.Equal(t, environment.DELETE, del.Method)
	assert.Equal(t, "pets/:id", del.Endpoint)
	require.Len(t, del.Responses, 1)
	assert.Equal(t, "204", del.Responses[0].StatusCode)
	assert.Equal(t, []environment.Header{{Key: "Content-Type", Value: "application/json"}}, del.Responses[0].Headers,
		"no content map falls back to application/json")

	patch := env.Routes[2]
	assert.Equal(t, environment.PATCH, patch.Method)
	assert.Equal(t, "application/json", patch.Responses[0].Headers[0].Value)

	require.NoError(t, environment.Validate(env))
}

func TestServerURL_ResolvesHost(t *testing.T) {
	t.Parallel()

	doc := load(t, petstoreV3)
	u, err := ServerURL(doc.Root().Get("servers").Items()[0])
	require.NoError(t, err)
	assert.Equal(t, "prod.example.com", u.Host)
	assert.Equal(t, "/api", u.Path)
}

func TestImport_OpenAPI3_Servers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		prefix string
	}{
		{"no servers", "openapi: 3.0.0", ""},
		{"empty servers", "openapi: 3.0.0\nservers: []", ""},
		{"relative url", "openapi: 3.0.0\nservers: [{url: /v2/api}]", "v2/api"},
		{"host only", "openapi: 3.0.0\nservers: [{url: 'http://localhost:8080'}]", ""},
		{"server without url", "openapi: 3.1.0\nservers: [{description: none}]", ""},
		{"escaped path kept", "openapi: 3.0.0\nservers: [{url: 'https://example.com/a%20b/api'}]", "a%20b/api"},
		{"invalid escape", "openapi: 3.0.0\nservers: [{url: 'https://example.com/a%zz/api'}]", ""},
		{"invalid port from variable", "openapi: 3.0.0\nservers: [{url: 'https://example.com:{port}/api', variables: {port: {default: eight}}}]", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env, err := Import(load(t, tc.src))
			require.NoError(t, err)
			assert.Equal(t, tc.prefix, env.EndpointPrefix)
			assert.Equal(t, environment.DefaultPort, env.Port)
		})
	}
}

func TestServerURL_ParseError(t *testing.T) {
	t.Parallel()

	doc := load(t, "openapi: 3.0.0\nservers: [{url: 'https://example.com/a%zz/api'}]")
	u, err := ServerURL(doc.Root().Get("servers").Items()[0])
	assert.Nil(t, u)
	require.Error(t, err)
	var sve *ServerVariableError
	assert.False(t, errors.As(err, &sve))
}

func TestImport_OpenAPI3_EmptyHeaderName(t *testing.T) {
	t.Parallel()

	env, err := Import(load(t, `
openapi: 3.0.0
paths:
  /a:
    get:
      responses:
        "200":
          description: ok
          headers:
            "": {}
            X-Id: {}
`))
	require.NoError(t, err)
	assert.Equal(t, []environment.Header{
		{Key: "Content-Type", Value: "application/json"},
		{Key: "X-Id", Value: ""},
	}, env.Routes[0].Responses[0].Headers)
	require.NoError(t, environment.Validate(env))
}

func TestImport_OpenAPI3_UndeclaredServerVariable(t *testing.T) {
	t.Parallel()

	env, err := Import(load(t, `
openapi: 3.0.0
servers:
  - url: https://{region}.example.com/v1
    variables:
      env: {default: prod}
paths:
  /a:
    get:
      responses: {"200": {description: ok}}
`))
	assert.Nil(t, env)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingServerVariable))
}

func TestImport_Unrecognized(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"info: {title: x}",
		"openapi: 2.0.0",
		"swagger: ''",
	} {
		env, err := Import(load(t, src))
		assert.Nil(t, env, src)
		assert.ErrorIs(t, err, ErrUnrecognizedDialect, src)
	}

	env, err := Import(nil)
	assert.Nil(t, env)
	assert.ErrorIs(t, err, ErrUnrecognizedDialect)
}

func TestImport_NoRecognizedStatusCodes(t *testing.T) {
	t.Parallel()

	for _, m := range environment.Methods {
		src := `
openapi: 3.0.0
paths:
  /things/{id}:
    ` + string(m) + `:
      responses:
        4XX:
          description: client error
          content:
            application/xml: {}
        default:
          description: other
`
		env, err := Import(load(t, src))
		require.NoError(t, err)
		require.Len(t, env.Routes, 1, m)
		r := env.Routes[0]
		assert.Equal(t, m, r.Method)
		require.Len(t, r.Responses, 1)
		assert.Equal(t, environment.FallbackRouteResponse(), r.Responses[0])
		assert.Equal(t, []environment.Header{{Key: "Content-Type", Value: "application/json"}}, r.Responses[0].Headers)
	}
}

func TestImport_MissingResponses(t *testing.T) {
	t.Parallel()

	env, err := Import(load(t, `
swagger: "2.0"
paths:
  /ping:
    head: {}
    options:
      responses: []
`))
	require.NoError(t, err)
	require.Len(t, env.Routes, 2)
	for _, r := range env.Routes {
		require.Len(t, r.Responses, 1)
		assert.Equal(t, "200", r.Responses[0].StatusCode)
	}
}

func TestImport_MalformedEntriesAreSkipped(t *testing.T) {
	t.Parallel()

	env, err := Import(load(t, `
openapi: 3.0.0
paths:
  /broken: not-an-object
  /partial:
    get: just-a-string
    put:
      responses:
        "200": oops
        "201":
          description: created
  /empty: {}
  /only-vendor:
    x-handler: foo
    parameters: []
`))
	require.NoError(t, err)
	require.Len(t, env.Routes, 1, "paths without supported methods contribute nothing")
	r := env.Routes[0]
	assert.Equal(t, environment.PUT, r.Method)
	require.Len(t, r.Responses, 1, "a malformed response only drops its own status code")
	assert.Equal(t, "201", r.Responses[0].StatusCode)
}

func TestImport_Ordering(t *testing.T) {
	t.Parallel()

	env, err := Import(load(t, `
swagger: "2.0"
paths:
  /zoo:
    put: {responses: {"200": {description: a}}}
    get: {responses: {"200": {description: b}}}
  /alpha:
    delete: {responses: {"204": {description: c}}}
  /middle/{id}:
    options: {responses: {"200": {description: d}}}
    post: {responses: {"201": {description: e}, "200": {description: f}}}
    head: {responses: {"200": {description: g}}}
`))
	require.NoError(t, err)

	var got []string
	for _, r := range env.Routes {
		got = append(got, string(r.Method)+" "+r.Endpoint)
	}
	assert.Equal(t, []string{
		"put zoo",
		"get zoo",
		"delete alpha",
		"options middle/:id",
		"post middle/:id",
		"head middle/:id",
	}, got)

	post := env.Routes[4]
	require.Len(t, post.Responses, 2)
	assert.Equal(t, "201", post.Responses[0].StatusCode)
	assert.Equal(t, "200", post.Responses[1].StatusCode)
}

func TestImport_ReferencedResponseKeepsOrder(t *testing.T) {
	t.Parallel()

	env, err := Import(load(t, `
openapi: 3.0.0
paths:
  /report:
    get:
      responses:
        "200":
          $ref: '#/components/responses/Report'
components:
  responses:
    Report:
      description: report
      headers:
        X-Zeta: {}
        X-Alpha: {}
      content:
        text/plain: {}
        application/xml: {}
`))
	require.NoError(t, err)
	assert.Equal(t, []environment.Header{
		{Key: "Content-Type", Value: "text/plain"},
		{Key: "X-Zeta", Value: ""},
		{Key: "X-Alpha", Value: ""},
	}, env.Routes[0].Responses[0].Headers)
}

func TestImport_DuplicatesAreKept(t *testing.T) {
	t.Parallel()

	env, err := Import(load(t, `
openapi: 3.0.0
paths:
  /a/{x}:
    get: {responses: {"200": {description: one}}}
  /a/{y}:
    get: {responses: {"200": {description: two}}}
`))
	require.NoError(t, err)
	require.Len(t, env.Routes, 2)
	assert.Equal(t, "a/:x", env.Routes[0].Endpoint)
	assert.Equal(t, "a/:y", env.Routes[1].Endpoint)
}

func TestExtractRoutes(t *testing.T) {
	t.Parallel()

	doc := load(t, petstoreV2)
	assert.Len(t, ExtractRoutes(doc, spec.Swagger2), 3)
	assert.Nil(t, ExtractRoutes(doc, spec.Unrecognized))
	assert.Empty(t, ExtractRoutes(load(t, "openapi: 3.0.0"), spec.OpenAPI3))
}

func TestImport_Concurrent(t *testing.T) {
	t.Parallel()

	c := New()
	docs := []*spec.Document{load(t, petstoreV2), load(t, petstoreV3)}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(doc *spec.Document) {
			defer wg.Done()
			env, err := c.Import(doc)
			assert.NoError(t, err)
			assert.Len(t, env.Routes, 3)
		}(docs[i%2])
	}
	wg.Wait()
}
