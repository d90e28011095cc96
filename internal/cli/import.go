package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/mark3labs/mockimport/internal/converter"
	"github.com/mark3labs/mockimport/internal/emitter"
	"github.com/mark3labs/mockimport/internal/logging"
	"github.com/mark3labs/mockimport/internal/spec"
)

// ImportConfig captures all inputs that influence the import command after
// merging defaults, config file values, and CLI overrides.
type ImportConfig struct {
	Inputs     []string
	Out        string
	Name       string // overrides the environment name when set
	Port       int    // overrides the environment port when non-zero
	Validate   bool
	Watch      bool
	Timeout    time.Duration
	Retries    int
	ConfigPath string
	DryRun     bool
	Force      bool
	Verbose    bool

	logOut io.Writer
}

func defaultImportConfig() ImportConfig {
	d := spec.DefaultSettings()
	return ImportConfig{Out: ".", Timeout: d.HTTPTimeout, Retries: d.MaxRetries}
}

// maxParallelImports bounds how many inputs are fetched and converted at once.
const maxParallelImports = 4

var importRunner = runImport

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [input...]",
		Short: "Convert Swagger 2.0 / OpenAPI 3.x documents into mock environments",
		Long: "Convert one or more Swagger 2.0 or OpenAPI 3.x documents (files or http/https URLs) " +
			"into mock environment JSON files. Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  mockimport import petstore.yaml --out ./envs
  mockimport import --input https://example.com/openapi.json --name "Pet API" --port 8080
  mockimport --config mockimport.yaml import --watch --force`),
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveImportConfig(cmd, args)
			if err != nil {
				return err
			}
			cfg.logOut = cmd.ErrOrStderr()
			return importRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceP("input", "i", nil, "Path or URL of a Swagger/OpenAPI document (repeatable)")
	flags.StringP("out", "o", "", "Output directory for environment files (default \".\")")
	flags.String("name", "", "Override the environment name")
	flags.Int("port", 0, "Override the environment port")
	flags.Bool("validate", false, "Strictly validate each document before converting")
	flags.Bool("watch", false, "Re-import local inputs whenever they change")
	flags.Duration("timeout", 0, "HTTP timeout for URL inputs and remote $refs (default 10s)")
	flags.Int("retries", 0, "Retries for transient HTTP failures (default 3)")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing environment files")

	return cmd
}

func resolveImportConfig(cmd *cobra.Command, args []string) (*ImportConfig, error) {
	cfg := defaultImportConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyImportConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyImportFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Inputs = append(cfg.Inputs, args...)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyImportFlagOverrides(flags *pflag.FlagSet, cfg *ImportConfig) error {
	if flags.Changed("input") {
		value, err := flags.GetStringSlice("input")
		if err != nil {
			return err
		}
		cfg.Inputs = sanitizeInputs(value)
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = strings.TrimSpace(value)
	}
	if flags.Changed("name") {
		value, err := flags.GetString("name")
		if err != nil {
			return err
		}
		cfg.Name = strings.TrimSpace(value)
	}
	if flags.Changed("port") {
		value, err := flags.GetInt("port")
		if err != nil {
			return err
		}
		cfg.Port = value
	}
	if flags.Changed("validate") {
		value, err := flags.GetBool("validate")
		if err != nil {
			return err
		}
		cfg.Validate = value
	}
	if flags.Changed("watch") {
		value, err := flags.GetBool("watch")
		if err != nil {
			return err
		}
		cfg.Watch = value
	}
	if flags.Changed("timeout") {
		value, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = value
	}
	if flags.Changed("retries") {
		value, err := flags.GetInt("retries")
		if err != nil {
			return err
		}
		cfg.Retries = value
	}
	if flags.Changed("dry-run") {
		value, err := flags.GetBool("dry-run")
		if err != nil {
			return err
		}
		cfg.DryRun = value
	}
	if flags.Changed("force") {
		value, err := flags.GetBool("force")
		if err != nil {
			return err
		}
		cfg.Force = value
	}
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = value
	}

	return nil
}

func (c *ImportConfig) normalize() {
	c.Inputs = sanitizeInputs(c.Inputs)
	c.Out = strings.TrimSpace(c.Out)
	if c.Out == "" {
		c.Out = "."
	}
	c.Name = strings.TrimSpace(c.Name)
}

func (c *ImportConfig) validate() error {
	if len(c.Inputs) == 0 {
		return newUsageError("import: at least one input is required (argument, --input, or config file)")
	}
	if c.Port < 0 || c.Port > 65535 {
		return newUsageError(fmt.Sprintf("import: --port %d is out of range (1-65535)", c.Port))
	}
	if c.Timeout <= 0 {
		return newUsageError(fmt.Sprintf("import: --timeout must be positive, got %s", c.Timeout))
	}
	if c.Retries < 0 {
		return newUsageError(fmt.Sprintf("import: --retries must not be negative, got %d", c.Retries))
	}
	if c.Watch {
		for _, in := range c.Inputs {
			if isURL(in) {
				return newUsageError(fmt.Sprintf("import: --watch only works with local files, %q is a URL", in))
			}
		}
	}

	seen := make(map[string]string, len(c.Inputs))
	for _, in := range c.Inputs {
		name := outputFileName(in)
		if prev, ok := seen[name]; ok {
			return newUsageError(fmt.Sprintf("import: inputs %q and %q would both be written to %s", prev, in, name))
		}
		seen[name] = in
	}
	return nil
}

// errSkipped marks an input that is neither Swagger 2.0 nor OpenAPI 3.x.
var errSkipped = errors.New("input skipped")

// importer runs the load, convert and emit pipeline for single inputs.
type importer struct {
	cfg  *ImportConfig
	log  logging.Logger
	conv *converter.Converter

	mu      sync.Mutex
	written map[string]bool // inputs whose output this run has already written
}

func newImporter(cfg *ImportConfig, log logging.Logger) *importer {
	return &importer{
		cfg:     cfg,
		log:     log,
		conv:    converter.New(converter.WithLogger(log)),
		written: make(map[string]bool),
	}
}

func runImport(ctx context.Context, cfg *ImportConfig) error {
	out := cfg.logOut
	if out == nil {
		out = os.Stderr
	}
	log := logging.NewText(out, cfg.Verbose)
	imp := newImporter(cfg, log)
	if cfg.Watch {
		return imp.watch(ctx)
	}
	return imp.runAll(ctx)
}

// runAll imports every input concurrently. Unrecognized documents are
// skipped with a warning; the run fails if any other input fails, or if no
// input could be imported at all.
func (imp *importer) runAll(ctx context.Context) error {
	results := make([]*emitter.Result, len(imp.cfg.Inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelImports)
	for i, in := range imp.cfg.Inputs {
		g.Go(func() error {
			res, err := imp.importOne(gctx, in)
			if errors.Is(err, errSkipped) {
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	imported := 0
	for _, res := range results {
		if res == nil {
			continue
		}
		imported++
		if imp.cfg.DryRun {
			printPlan(filepath.Dir(res.Path), res.Planned)
		}
	}
	if imported == 0 {
		return newUsageError("import: no input is a Swagger 2.0 or OpenAPI 3.x document")
	}
	return nil
}

func (imp *importer) importOne(ctx context.Context, input string) (*emitter.Result, error) {
	log := imp.log.With("input", input)
	doc, err := spec.Load(ctx, input,
		spec.WithHTTPTimeout(imp.cfg.Timeout),
		spec.WithMaxRetries(imp.cfg.Retries),
		spec.WithLogger(log),
	)
	if err != nil {
		log.Error("load failed", "error", err)
		return nil, specUsageError(err)
	}
	if imp.cfg.Validate {
		if err := spec.Validate(ctx, doc); err != nil {
			log.Error("validation failed", "error", err)
			return nil, specUsageError(err)
		}
	}

	env, err := imp.conv.Import(doc)
	if errors.Is(err, converter.ErrUnrecognizedDialect) {
		log.Warn("not a Swagger 2.0 or OpenAPI 3.x document, skipping")
		return nil, errSkipped
	}
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", input, err)
	}
	if imp.cfg.Name != "" {
		env.Name = imp.cfg.Name
	}
	if imp.cfg.Port != 0 {
		env.Port = imp.cfg.Port
	}

	imp.mu.Lock()
	force := imp.cfg.Force || imp.written[input]
	imp.mu.Unlock()

	res, err := emitter.Emit(ctx, env, emitter.Options{
		OutDir:   imp.cfg.Out,
		FileName: outputFileName(input),
		Force:    force,
		DryRun:   imp.cfg.DryRun,
		Verbose:  imp.cfg.Verbose,
	})
	if err != nil {
		return nil, wrapOutputError(err, imp.cfg.Out)
	}
	if !imp.cfg.DryRun {
		imp.mu.Lock()
		imp.written[input] = true
		imp.mu.Unlock()
		log.Info("environment written", "path", res.Path, "routes", len(env.Routes))
	}
	return res, nil
}

// specUsageError maps structured spec errors into friendly messages.
func specUsageError(err error) error {
	var se *spec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("spec: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return newUsageError(msg)
}

func printPlan(outDir string, pf emitter.PlannedFile) {
	fmt.Fprintf(os.Stdout, "Planned write to %s:\n", outDir)
	fmt.Fprintf(os.Stdout, "- %s (%d bytes)\n", pf.RelPath, pf.Size)
}

func wrapOutputError(err error, outDir string) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if errors.Is(err, emitter.ErrExists) || errors.Is(err, os.ErrPermission) ||
		strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

func isURL(input string) bool {
	u, err := url.Parse(input)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// outputFileName derives the environment file name from an input path or
// URL: "specs/petstore.yaml" and "https://host/v1/petstore.json?x=1" both
// become "petstore.json".
func outputFileName(input string) string {
	base := input
	if isURL(input) {
		u, _ := url.Parse(input)
		base = path.Base(u.Path)
		if base == "/" || base == "." {
			base = u.Hostname()
		}
	}
	if name := emitter.FileName(base); name != "" {
		return name
	}
	return "environment.json"
}
