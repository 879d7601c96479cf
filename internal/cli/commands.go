package cli

import (
	"context"
	"fmt"
	"pippin/internal/entity"
	"pippin/internal/usecase"
	"pippin/pkg/apperr"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func (c *CLI) visionCommands() []*cobra.Command {
	var (
		all   bool
		flat  bool
		depth int
	)

	inspect := &cobra.Command{
		Use:     "inspect",
		Short:   "Print the simplified accessibility tree",
		GroupID: "vision",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := entity.InspectOptions{InteractiveOnly: !all, Flat: flat}
			if cmd.Flags().Changed("depth") {
				if depth < 0 {
					return apperr.InvalidReqError("inspect", "depth", fmt.Errorf("depth must not be negative, got %d", depth))
				}
				opts.MaxDepth = &depth
			}

			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.Vision.Inspect(ctx, opts)
			})
		},
	}
	inspect.Flags().BoolVar(&all, "all", false, "keep structural containers and hidden elements")
	inspect.Flags().BoolVar(&flat, "flat", false, "print a flat list instead of a tree")
	inspect.Flags().IntVar(&depth, "depth", 0, "limit the tree depth")

	var contextOpts entity.ContextOptions

	contextCmd := &cobra.Command{
		Use:     "context",
		Short:   "Describe device, app and screen in one object",
		GroupID: "vision",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.Vision.Context(ctx, contextOpts)
			})
		},
	}
	contextCmd.Flags().BoolVar(&contextOpts.Brief, "brief", false, "omit the UI tree")
	contextCmd.Flags().BoolVar(&contextOpts.IncludeLogs, "include-logs", false, "include recent app log lines")
	contextCmd.Flags().StringVar(&contextOpts.ScreenshotPath, "screenshot", "", "also save a screenshot to this path")

	screenshot := &cobra.Command{
		Use:     "screenshot <file>",
		Short:   "Save a screenshot of the simulator",
		GroupID: "vision",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.Vision.Screenshot(ctx, args[0])
			})
		},
	}

	return []*cobra.Command{inspect, contextCmd, screenshot}
}

func (c *CLI) interactionCommands() []*cobra.Command {
	var (
		tapStrict bool
		tapX      float64
		tapY      float64
	)

	tap := &cobra.Command{
		Use:     "tap <query> | tap <x> <y>",
		Short:   "Tap an element by identifier or label, or a point",
		GroupID: "interaction",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := entity.TapRequest{Strict: tapStrict}
			req.Query, req.X, req.Y = parseTapArgs(args)

			if req.X == nil && cmd.Flags().Changed("x") && cmd.Flags().Changed("y") {
				req.X, req.Y = &tapX, &tapY
			}

			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.Interaction.Tap(ctx, req)
			})
		},
	}
	tap.Flags().BoolVar(&tapStrict, "strict", false, "exact identifier or label match only")
	tap.Flags().Float64Var(&tapX, "x", 0, "fallback x coordinate")
	tap.Flags().Float64Var(&tapY, "y", 0, "fallback y coordinate")

	var submit bool

	typeCmd := &cobra.Command{
		Use:     "type <text>",
		Short:   "Type text into the focused field",
		GroupID: "interaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.Interaction.TypeText(ctx, args[0], submit)
			})
		},
	}
	typeCmd.Flags().BoolVar(&submit, "submit", false, "press return after typing")

	var scrollCmd entity.ScrollCommand

	scroll := &cobra.Command{
		Use:     "scroll <up|down|left|right>",
		Short:   "Swipe the screen once, or until an element shows up",
		GroupID: "interaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := scrollCmd
			req.Direction = args[0]

			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.Interaction.Scroll(ctx, req)
			})
		},
	}
	scroll.Flags().StringVar(&scrollCmd.UntilVisible, "until-visible", "", "keep scrolling until this element is on screen")
	scroll.Flags().BoolVar(&scrollCmd.Strict, "strict", false, "exact identifier or label match only")

	gesture := &cobra.Command{
		Use:     "gesture <swipe|pinch> [args...]",
		Short:   "Perform a gesture, e.g. gesture swipe 100,600 100,200",
		GroupID: "interaction",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.Interaction.Gesture(ctx, args[0], args[1:])
			})
		},
	}
	gesture.Flags().SetInterspersed(false)

	return []*cobra.Command{tap, typeCmd, scroll, gesture}
}

type launchFlags struct {
	clean  bool
	args   string
	locale string
}

func (f *launchFlags) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.clean, "clean", false, "wipe the app container first")
	cmd.Flags().StringVar(&f.args, "args", "", "launch arguments, shell quoted")
	cmd.Flags().StringVar(&f.locale, "locale", "", "launch in this language and locale, e.g. es_MX")
}

func (f *launchFlags) options(op string, args []string) (entity.LaunchOptions, error) {
	opts := entity.LaunchOptions{Clean: f.clean, Locale: f.locale}
	if len(args) > 0 {
		opts.BundleID = args[0]
	}

	launchArgs, err := SplitArgs(f.args)
	if err != nil {
		return opts, apperr.InvalidReqError(op, "args", err)
	}
	opts.Args = launchArgs

	return opts, nil
}

func (c *CLI) systemCommands() []*cobra.Command {
	var launchOpts, relaunchOpts launchFlags

	launch := &cobra.Command{
		Use:     "launch [bundle-id]",
		Short:   "Launch an app, defaulting to the last launched one",
		GroupID: "system",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := launchOpts.options("launch", args)
			if err != nil {
				return err
			}

			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.System.Launch(ctx, opts)
			})
		},
	}
	launchOpts.bind(launch)

	stop := &cobra.Command{
		Use:     "stop [bundle-id]",
		Short:   "Terminate an app",
		GroupID: "system",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var bundleID string
			if len(args) > 0 {
				bundleID = args[0]
			}

			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.System.Stop(ctx, bundleID)
			})
		},
	}

	relaunch := &cobra.Command{
		Use:     "relaunch [bundle-id]",
		Short:   "Terminate and launch an app again",
		GroupID: "system",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := relaunchOpts.options("relaunch", args)
			if err != nil {
				return err
			}

			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.System.Relaunch(ctx, opts)
			})
		},
	}
	relaunchOpts.bind(relaunch)

	open := &cobra.Command{
		Use:     "open <url>",
		Short:   "Open a URL scheme or universal link",
		GroupID: "system",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.System.OpenURL(ctx, args[0])
			})
		},
	}

	permission := &cobra.Command{
		Use:     "permission <service> <grant|deny|reset>",
		Short:   "Change a privacy permission of the target app",
		GroupID: "system",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.System.Permission(ctx, args[0], args[1])
			})
		},
	}

	location := &cobra.Command{
		Use:     "location <lat> <lon>",
		Short:   "Simulate a GPS position",
		GroupID: "system",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return apperr.InvalidReqError("location", "lat", fmt.Errorf("invalid latitude %q", args[0]))
			}

			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return apperr.InvalidReqError("location", "lon", fmt.Errorf("invalid longitude %q", args[1]))
			}

			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.System.Location(ctx, lat, lon)
			})
		},
	}

	network := &cobra.Command{
		Use:     "network <condition>",
		Short:   "Simulate network conditions (not supported)",
		GroupID: "system",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.System.Network(ctx, args[0])
			})
		},
	}

	doctor := &cobra.Command{
		Use:     "doctor",
		Short:   "Check tools, WebDriverAgent and booted simulators",
		GroupID: "system",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.System.Doctor(ctx)
			})
		},
	}

	return []*cobra.Command{launch, stop, relaunch, open, permission, location, network, doctor}
}

func (c *CLI) verificationCommands() []*cobra.Command {
	var assertStrict bool

	assert := &cobra.Command{
		Use:     "assert <query> <exists|visible|hidden|text=value>",
		Short:   "Check an element state once",
		GroupID: "verification",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := entity.AssertRequest{Query: args[0], State: args[1], Strict: assertStrict}

			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.Verification.Assert(ctx, req)
			})
		},
	}
	assert.Flags().BoolVar(&assertStrict, "strict", false, "exact identifier or label match only")

	var (
		waitReq     entity.WaitRequest
		waitTimeout float64
	)

	wait := &cobra.Command{
		Use:     "wait <query>",
		Short:   "Poll until an element reaches a state",
		GroupID: "verification",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if waitTimeout < 0 {
				return apperr.InvalidReqError("wait", "timeout", fmt.Errorf("timeout must not be negative, got %v", waitTimeout))
			}

			req := waitReq
			req.Query = args[0]
			req.Timeout = time.Duration(waitTimeout * float64(time.Second))

			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.Verification.Wait(ctx, req)
			})
		},
	}
	wait.Flags().StringVar(&waitReq.State, "state", string(entity.AssertVisible), "exists, visible or hidden")
	wait.Flags().Float64Var(&waitTimeout, "timeout", 10, "seconds to wait")
	wait.Flags().BoolVar(&waitReq.Strict, "strict", false, "exact identifier or label match only")
	wait.Flags().BoolVar(&waitReq.Scroll, "scroll", false, "scroll down between polls")

	var crashReport bool

	logs := &cobra.Command{
		Use:     "logs",
		Short:   "Tail the target app log, or its latest crash report",
		GroupID: "verification",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.System.Logs(ctx, crashReport)
			})
		},
	}
	logs.Flags().BoolVar(&crashReport, "crash-report", false, "print the newest crash report instead")

	tree := &cobra.Command{
		Use:     "tree <documents|caches|tmp|path>",
		Short:   "List a directory of the app sandbox",
		GroupID: "verification",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.invoke(cmd, func(ctx context.Context, svc *usecase.Service) (any, error) {
				return svc.System.Tree(ctx, args[0])
			})
		},
	}

	return []*cobra.Command{assert, wait, logs, tree}
}
