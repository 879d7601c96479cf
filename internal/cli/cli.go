package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"pippin/internal/bootstrap"
	"pippin/internal/entity"
	"pippin/internal/usecase"
	"pippin/pkg/apperr"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	Version = "0.4.0"

	FormatJSON = "json"
	FormatYAML = "yaml"
)

// RunFunc starts the dependency graph for one command. bootstrap.Run in
// production, a fake runtime in tests.
type RunFunc func(ctx context.Context, overrides bootstrap.Overrides, fn func(ctx context.Context, rt *bootstrap.Runtime) error) error

type CLI struct {
	run    RunFunc
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	overrides bootstrap.Overrides
	format    string

	// started is set once a command reaches the runtime. Errors before that
	// point come from argument parsing.
	started bool
}

type Params struct {
	Run    RunFunc
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func New(params Params) *CLI {
	return &CLI{
		run:    params.Run,
		stdin:  params.Stdin,
		stdout: params.Stdout,
		stderr: params.Stderr,
		format: FormatJSON,
	}
}

// Execute runs one command line and returns the process exit code. Failures
// are reported on stderr as "FAIL: <TAG>: <message>".
func (c *CLI) Execute(ctx context.Context, args []string) int {
	root := c.rootCommand()
	root.SetArgs(args)
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return apperr.ExitSuccess
	}

	var appErr *apperr.Error
	if !c.started && !errors.As(err, &appErr) {
		err = apperr.InvalidReqError("pippin", "args", err)
	}

	return c.fail(err)
}

func (c *CLI) fail(err error) int {
	fmt.Fprintf(c.stderr, "FAIL: %s: %s\n", apperr.Tag(err), apperr.Message(err))

	return apperr.ExitCode(err)
}

func (c *CLI) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pippin",
		Short: "Token-efficient UI automation for the iOS Simulator",
		Long: `pippin drives the iOS Simulator through WebDriverAgent and simctl.
Every successful command prints a single JSON (or YAML) object on stdout.
Failures print "FAIL: <TAG>: <message>" on stderr and exit non-zero:
  1 element not found, 2 timeout, 3 no target app,
  4 command failed, 5 invalid arguments.`,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.overrides.Device, "device", "", "target simulator UDID (defaults to the single booted one)")
	flags.StringVar(&c.overrides.SnapshotFile, "snapshot", "", "replay an accessibility snapshot file instead of a live simulator")
	flags.StringVar(&c.format, "format", FormatJSON, "output format: json or yaml")

	root.AddGroup(
		&cobra.Group{ID: "vision", Title: "Vision:"},
		&cobra.Group{ID: "interaction", Title: "Interaction:"},
		&cobra.Group{ID: "system", Title: "System:"},
		&cobra.Group{ID: "verification", Title: "Verification:"},
	)

	root.AddCommand(c.visionCommands()...)
	root.AddCommand(c.interactionCommands()...)
	root.AddCommand(c.systemCommands()...)
	root.AddCommand(c.verificationCommands()...)
	root.AddCommand(c.mcpCommand())

	return root
}

// invoke runs fn inside a started runtime and prints whatever it returns.
func (c *CLI) invoke(cmd *cobra.Command, fn func(ctx context.Context, svc *usecase.Service) (any, error)) error {
	if err := c.checkFormat(); err != nil {
		return err
	}

	c.started = true

	return c.run(cmd.Context(), c.overrides, func(ctx context.Context, rt *bootstrap.Runtime) error {
		result, err := fn(ctx, rt.Service)
		if err != nil {
			return err
		}

		return c.print(result)
	})
}

func (c *CLI) checkFormat() error {
	switch c.format {
	case FormatJSON, FormatYAML:
		return nil
	default:
		return apperr.InvalidReqError("format", "format", fmt.Errorf("unsupported format %q (want json or yaml)", c.format))
	}
}

func (c *CLI) print(v any) error {
	if c.format == FormatYAML {
		enc := yaml.NewEncoder(c.stdout)
		enc.SetIndent(2)

		if err := enc.Encode(v); err != nil {
			return err
		}

		return enc.Close()
	}

	enc := json.NewEncoder(c.stdout)
	enc.SetEscapeHTML(false)

	switch v.(type) {
	case *entity.ContextResult, *entity.DoctorResult:
		enc.SetIndent("", "  ")
	}

	return enc.Encode(v)
}
