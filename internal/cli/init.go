package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/mockimport/internal/emitter"
	"github.com/mark3labs/mockimport/internal/logging"
)

const defaultConfigFile = "mockimport.yaml"

// sampleInputLine is the commented input entry of sampleConfigYAML that
// init replaces when inputs are given on the command line.
const sampleInputLine = "# input: [./petstore.yaml, https://example.com/openapi.json]"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	// Inputs, when set, are written as the active input list of the sample.
	Inputs  []string
	Force   bool
	Verbose bool

	stdout io.Writer
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [input...]",
		Short: "Scaffold a sample mockimport configuration file",
		Long: "Scaffold a commented mockimport configuration file that documents available options.\n" +
			"Inputs given as arguments are written as the config's active input list.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Inputs:     args,
				Force:      force,
				Verbose:    verbose,
				stdout:     cmd.OutOrStdout(),
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := logging.NewText(os.Stderr, cfg.Verbose)

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	content, err := renderSampleConfig(sanitizeInputs(cfg.Inputs))
	if err != nil {
		return fmt.Errorf("init: render sample config: %w", err)
	}
	if err := emitter.WriteFile(absPath, content, cfg.Force); err != nil {
		if errors.Is(err, emitter.ErrExists) {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
		return newUsageError(fmt.Sprintf("init: cannot write %s: %v\nHint: choose a different --out or check directory permissions.", absPath, err))
	}
	log.Debug("sample config written", "path", absPath, "inputs", len(cfg.Inputs), "bytes", len(content))

	w := cfg.stdout
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "Wrote sample config to %s\n", absPath)
	return nil
}

// renderSampleConfig returns sampleConfigYAML, with the commented input
// entry replaced by an active list when inputs is not empty.
func renderSampleConfig(inputs []string) ([]byte, error) {
	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	if len(inputs) == 0 {
		return []byte(content), nil
	}
	list, err := yaml.Marshal(map[string][]string{"input": inputs})
	if err != nil {
		return nil, err
	}
	content = strings.Replace(content, sampleInputLine+"\n", string(list), 1)
	return []byte(content), nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# mockimport configuration (YAML)
# All fields are optional. Command-line flags override config values;
# positional arguments are added to the inputs listed here.

# Swagger 2.0 / OpenAPI 3.x documents to import: local files or http/https URLs
# (comma-separated or list). Each one becomes <name>.json in the output directory.
# input: [./petstore.yaml, https://example.com/openapi.json]

# Output directory for environment files. Defaults to the current directory.
# out: ./environments

# Override the environment name (default: info.title or "OpenAPI import" for
# Swagger 2.0 documents, empty for OpenAPI 3.x).
# name: Pet API

# Override the environment port (default: the Swagger 2.0 host port, or 3000).
# port: 8080

# Strictly validate each document before converting.
# validate: false

# Re-import local inputs whenever they change.
# watch: false

# HTTP timeout for URL inputs and remote $refs (e.g. 10s), and retries for
# transient failures.
# timeout: 10s
# retries: 3

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite existing environment files.
# force: false

# Enable verbose logging.
# verbose: false
`
