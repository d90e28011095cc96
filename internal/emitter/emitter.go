// Package emitter writes an imported environment to disk as a JSON document
// ready to be loaded by the mock server. Every environment, route and
// response is stamped with a fresh UUID on the way out.
package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mark3labs/mockimport/internal/environment"
)

// Options controls where and how an environment is written.
type Options struct {
	OutDir   string // required; target directory
	FileName string // file name inside OutDir; derived from the environment name when empty
	Force    bool   // overwrite an existing file
	DryRun   bool   // don't write, only plan
	Verbose  bool

	// NewID returns the UUIDs stamped on the document. Defaults to uuid.New.
	NewID func() uuid.UUID
}

// ErrExists is returned by WriteFile when the target is an existing regular
// file and overwriting was not requested.
var ErrExists = errors.New("already exists")

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned file and the rendered document.
type Result struct {
	Path     string // absolute path of the target file
	Planned  PlannedFile
	Document *Document
}

// Document is the on-disk form of an environment.
type Document struct {
	UUID           string          `json:"uuid"`
	Name           string          `json:"name"`
	Port           int             `json:"port"`
	EndpointPrefix string          `json:"endpointPrefix"`
	Routes         []RouteDocument `json:"routes"`
}

type RouteDocument struct {
	UUID          string             `json:"uuid"`
	Method        environment.Method `json:"method"`
	Endpoint      string             `json:"endpoint"`
	Documentation string             `json:"documentation"`
	Responses     []ResponseDocument `json:"responses"`
}

type ResponseDocument struct {
	UUID       string               `json:"uuid"`
	StatusCode string               `json:"statusCode"`
	Label      string               `json:"label"`
	Body       string               `json:"body"`
	Headers    []environment.Header `json:"headers"`
}

// Render validates env and stamps it into a Document.
func Render(env *environment.Environment, newID func() uuid.UUID) (*Document, error) {
	if env == nil {
		return nil, fmt.Errorf("emitter: nil Environment")
	}
	if err := environment.Validate(env); err != nil {
		return nil, fmt.Errorf("emitter: invalid environment: %w", err)
	}
	if newID == nil {
		newID = uuid.New
	}

	doc := &Document{
		UUID:           newID().String(),
		Name:           env.Name,
		Port:           env.Port,
		EndpointPrefix: env.EndpointPrefix,
		Routes:         make([]RouteDocument, 0, len(env.Routes)),
	}
	for _, r := range env.Routes {
		rd := RouteDocument{
			UUID:          newID().String(),
			Method:        r.Method,
			Endpoint:      r.Endpoint,
			Documentation: r.Documentation,
			Responses:     make([]ResponseDocument, 0, len(r.Responses)),
		}
		for _, resp := range r.Responses {
			rd.Responses = append(rd.Responses, ResponseDocument{
				UUID:       newID().String(),
				StatusCode: resp.StatusCode,
				Label:      resp.Label,
				Body:       resp.Body,
				Headers:    resp.Headers,
			})
		}
		doc.Routes = append(doc.Routes, rd)
	}
	return doc, nil
}

// Emit renders env and writes it to OutDir/FileName.
func Emit(ctx context.Context, env *environment.Environment, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("emitter: OutDir is required")
	}
	doc, err := Render(env, opts.NewID)
	if err != nil {
		return nil, err
	}

	name := FileName(opts.FileName)
	if name == "" {
		name = FileName(env.Name)
	}
	if name == "" {
		name = "environment.json"
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("emitter: marshal environment: %w", err)
	}
	data = append(data, '\n')

	abs, err := filepath.Abs(filepath.Join(opts.OutDir, name))
	if err != nil {
		return nil, fmt.Errorf("resolve out dir: %w", err)
	}
	res := &Result{
		Path:     abs,
		Planned:  PlannedFile{RelPath: name, Size: len(data), Mode: 0o644},
		Document: doc,
	}
	if opts.DryRun {
		return res, nil
	}
	if err := WriteFile(abs, data, opts.Force); err != nil {
		return nil, err
	}
	return res, nil
}

// WriteFile places content at path through a temp file and a rename,
// creating parent directories as needed. An existing file is only replaced
// when force is set.
func WriteFile(path string, content []byte, force bool) error {
	if st, err := os.Stat(path); err == nil && !force {
		if st.Mode().IsRegular() {
			return fmt.Errorf("emitter: output file %q %w (use --force to overwrite)", path, ErrExists)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	// atomic write via temp file + rename
	tmp := path + ".tmp-" + time.Now().Format("20060102150405.000000000")
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// FileName turns a name or an input path into a lowercase, dash separated
// JSON file name. A known document extension is dropped first. It returns ""
// when nothing usable remains.
func FileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	name = strings.ToLower(name)
	repl := strings.NewReplacer("_", " ", ".", " ", ",", " ", ":", " ", "-", " ")
	name = repl.Replace(name)

	parts := strings.Fields(name)
	var b strings.Builder
	for _, p := range parts {
		var word strings.Builder
		for _, r := range p {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				word.WriteRune(r)
			}
		}
		if word.Len() == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('-')
		}
		b.WriteString(word.String())
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + ".json"
}
