package emitter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/mockimport/internal/environment"
)

func minimalEnvironment() *environment.Environment {
	env := environment.DefaultEnvironment()
	env.Name = "Sample API"
	env.EndpointPrefix = "v1"
	env.Routes = []environment.Route{
		environment.NewRoute(environment.GET, "pets/:id", "Show a pet", []environment.RouteResponse{
			environment.NewRouteResponse("200", "ok", []environment.Header{environment.ContentType("application/json")}),
			environment.NewRouteResponse("404", "missing", []environment.Header{environment.ContentType("")}),
		}),
		environment.NewRoute(environment.DELETE, "pets/:id", "", nil),
	}
	return env
}

// sequentialIDs returns deterministic UUIDs 00000000-0000-0000-0000-000000000001, ...
func sequentialIDs() func() uuid.UUID {
	var n byte
	return func() uuid.UUID {
		n++
		var id uuid.UUID
		id[15] = n
		return id
	}
}

func TestEmit_DryRun_Plan(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	res, err := Emit(context.Background(), minimalEnvironment(), Options{OutDir: dir, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "sample-api.json", res.Planned.RelPath)
	assert.Equal(t, filepath.Join(dir, "sample-api.json"), res.Path)
	assert.Positive(t, res.Planned.Size)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "dry-run must not write")
}

func TestEmit_WriteAndContents(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	res, err := Emit(context.Background(), minimalEnvironment(), Options{
		OutDir:   dir,
		FileName: "petstore.yaml",
		NewID:    sequentialIDs(),
	})
	require.NoError(t, err)
	assert.Equal(t, "petstore.json", res.Planned.RelPath)

	data, err := os.ReadFile(filepath.Join(dir, "petstore.json"))
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", doc.UUID)
	assert.Equal(t, "Sample API", doc.Name)
	assert.Equal(t, environment.DefaultPort, doc.Port)
	assert.Equal(t, "v1", doc.EndpointPrefix)
	require.Len(t, doc.Routes, 2)

	show := doc.Routes[0]
	assert.Equal(t, "00000000-0000-0000-0000-000000000002", show.UUID)
	assert.Equal(t, environment.GET, show.Method)
	require.Len(t, show.Responses, 2)
	assert.Equal(t, "00000000-0000-0000-0000-000000000003", show.Responses[0].UUID)
	assert.Equal(t, "404", show.Responses[1].StatusCode)
	assert.Equal(t, []environment.Header{{Key: "Content-Type", Value: "application/json"}}, show.Responses[1].Headers)

	del := doc.Routes[1]
	require.Len(t, del.Responses, 1)
	assert.Equal(t, environment.FallbackRouteResponse().Headers, del.Responses[0].Headers)

	assert.Equal(t, doc, *res.Document)
}

func TestEmit_RandomIDsAreDistinct(t *testing.T) {
	t.Parallel()

	doc, err := Render(minimalEnvironment(), nil)
	require.NoError(t, err)

	seen := map[string]bool{doc.UUID: true}
	for _, r := range doc.Routes {
		seen[r.UUID] = true
		for _, resp := range r.Responses {
			seen[resp.UUID] = true
		}
	}
	assert.Len(t, seen, 1+2+3)
	for id := range seen {
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	}
}

func TestEmit_ExistingFileNeedsForce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	target := filepath.Join(dir, "sample-api.json")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))

	_, err := Emit(context.Background(), minimalEnvironment(), Options{OutDir: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
	assert.ErrorIs(t, err, ErrExists)

	_, err = Emit(context.Background(), minimalEnvironment(), Options{OutDir: dir, Force: true})
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestEmit_RejectsInvalidEnvironment(t *testing.T) {
	t.Parallel()

	env := minimalEnvironment()
	env.Port = 0
	_, err := Emit(context.Background(), env, Options{OutDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")

	_, err = Emit(context.Background(), nil, Options{OutDir: t.TempDir()})
	require.Error(t, err)

	_, err = Emit(context.Background(), minimalEnvironment(), Options{})
	require.Error(t, err)
}

func TestEmit_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Emit(ctx, minimalEnvironment(), Options{OutDir: t.TempDir()})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Swagger Petstore", "swagger-petstore.json"},
		{"./specs/petstore.yaml", "petstore.json"},
		{`C:\specs\Pet_Store.YML`, "pet-store.json"},
		{"api.v2.json", "api-v2.json"},
		{"OpenAPI import", "openapi-import.json"},
		{"  ", ""},
		{"***", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FileName(tc.in), tc.in)
	}
}
