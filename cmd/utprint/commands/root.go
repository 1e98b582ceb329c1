package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"utprint/internal/workflow"
	"utprint/lib/configstore"
	"utprint/lib/jobstore"
	"utprint/lib/pharos"
	"utprint/lib/prompt"
	"utprint/lib/report"
	"utprint/lib/restyutil"
	"utprint/lib/telemetry"
	"utprint/lib/textutil"

	"github.com/spf13/cobra"
)

type cli struct {
	in  io.Reader
	out io.Writer

	configDir string
	verbose   bool
	dumpHttp  string

	color     string
	sides     string
	twoPps    bool
	copies    int
	pageRange string

	store     configstore.Store
	settings  configstore.Settings
	telemetry telemetry.Telemetry

	root *cobra.Command
}

func newCLI(in io.Reader, out io.Writer) *cli {
	c := &cli{in: in, out: out}

	c.root = &cobra.Command{
		Use:   "utprint [flags] <document>",
		Short: "utprint sends documents to the UT library printers.",
		Long: `utprint uploads a document (PDF, image, MS Office...) to the UT library print
system with the chosen print options, waits for it to be processed and shows
what it costs. Release the job at any library print station.`,
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		RunE:              c.runPrint,
	}

	persistent := c.root.PersistentFlags()
	persistent.StringVar(&c.configDir, "config-dir", "", fmt.Sprintf("The config directory, defaults to $%s or the user config directory.", configstore.DirEnv))
	persistent.BoolVarP(&c.verbose, "verbose", "v", false, "Log debug output to stderr.")
	persistent.StringVar(&c.dumpHttp, "dump-http", "", "Write every request and response to files in this directory.")

	flags := c.root.Flags()
	flags.StringVar(&c.color, "color", "", "Print in full color or mono (full, mono), defaults to the saved default.")
	flags.StringVar(&c.sides, "sides", "", "Print single sided (1) or double sided (2), defaults to the saved default.")
	flags.BoolVar(&c.twoPps, "two-pps", false, "Print two pages on each side of paper.")
	flags.IntVar(&c.copies, "copies", 1, "Number of copies to print.")
	flags.StringVar(&c.pageRange, "range", "", "Print a specific set of pages (e.g. '1-5, 8, 11-13').")

	c.root.AddCommand(
		c.jobsCmd(),
		c.balanceCmd(),
		c.historyCmd(),
		c.logoutCmd(),
		c.configCmd(),
	)
	return c
}

// ExecuteContext runs the command line and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	c := newCLI(os.Stdin, os.Stdout)
	err := c.execute(ctx, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func (c *cli) execute(ctx context.Context, args []string) error {
	c.root.SetArgs(args)
	c.root.SetIn(c.in)
	c.root.SetOut(c.out)
	err := c.root.ExecuteContext(ctx)

	shutdownErr := c.telemetry.Shutdown(context.WithoutCancel(ctx))
	if shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}
	return err
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	telemetry.InitSlog(c.verbose)

	dir := c.configDir
	if dir == "" {
		var err error
		dir, err = configstore.DefaultDir()
		if err != nil {
			return fmt.Errorf("find config directory: %w", err)
		}
	}
	c.store = configstore.NewStore(dir)

	settings, err := c.store.LoadSettings()
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	c.settings = settings
	slog.Debug("loaded settings", "dir", dir, "base_url", settings.BaseUrl)

	c.telemetry, err = telemetry.Setup(cmd.Context(), "utprint", settings.Telemetry)
	if err != nil {
		slog.Warn("failed to setup telemetry", "err", err)
	}
	return nil
}

// deps connects to the print server, closing is left to the returned
// function.
func (c *cli) deps(withHistory bool) (workflow.Deps, func(), error) {
	opts := pharos.ClientOptions{
		BaseUrl:          c.settings.BaseUrl,
		Timeout:          c.settings.RequestTimeout(),
		CloudflareBypass: c.settings.CloudflareBypass,
	}
	if c.dumpHttp != "" {
		output, err := restyutil.NewFilesystemOutput(c.dumpHttp)
		if err != nil {
			return workflow.Deps{}, nil, err
		}
		opts.InstrumentOutput = output
	}
	client, err := pharos.NewClient(opts)
	if err != nil {
		return workflow.Deps{}, nil, err
	}

	deps := workflow.Deps{
		Client:   client,
		Config:   c.store,
		Settings: c.settings,
		Credentials: prompt.Chain{
			prompt.Env{},
			prompt.NewTerminal(c.in, c.out),
		},
		Report: report.New(c.out),
	}
	closers := []func(){client.Close}

	if path := c.settings.HistoryPath(c.store.Dir()); withHistory && path != "" {
		history, err := jobstore.Open(path)
		if err != nil {
			slog.Warn("print history is unavailable", "path", path, "err", err)
		} else {
			deps.History = history
			closers = append(closers, func() {
				err := history.Close()
				if err != nil {
					slog.Warn("failed to close print history", "err", err)
				}
			})
		}
	}

	return deps, func() {
		for _, fn := range closers {
			fn()
		}
	}, nil
}

func invalidChoice(name, value string, choices []string) error {
	message := fmt.Sprintf("invalid %s %q, expected one of: %s", name, value, strings.Join(choices, ", "))
	if suggestion := textutil.Closest(value, choices); suggestion != "" {
		message += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return errors.New(message)
}

func parseColor(value string) (pharos.Color, error) {
	choice, ok := textutil.OneOf(value, pharos.Colors)
	if !ok {
		return "", invalidChoice("color", value, pharos.Colors)
	}
	return pharos.Color(choice), nil
}

func parseSides(value string) (pharos.Sides, error) {
	switch textutil.Normalize(value) {
	case "simplex":
		return pharos.Simplex, nil
	case "duplex":
		return pharos.Duplex, nil
	}
	choice, ok := textutil.OneOf(value, pharos.SideChoices)
	if !ok {
		return 0, invalidChoice("sides", value, pharos.SideChoices)
	}
	if choice == "2" {
		return pharos.Duplex, nil
	}
	return pharos.Simplex, nil
}

// printOptions starts from the saved defaults, flags given explicitly win.
func (c *cli) printOptions(cmd *cobra.Command, defaults configstore.Config) (pharos.PrintOptions, error) {
	opts := pharos.PrintOptions{
		Color:           defaults.Color,
		Sides:           defaults.Sides,
		TwoPagesPerSide: c.twoPps,
		Copies:          c.copies,
		PageRange:       c.pageRange,
	}
	if cmd.Flags().Changed("color") {
		color, err := parseColor(c.color)
		if err != nil {
			return opts, err
		}
		opts.Color = color
	}
	if cmd.Flags().Changed("sides") {
		sides, err := parseSides(c.sides)
		if err != nil {
			return opts, err
		}
		opts.Sides = sides
	}
	return opts, opts.Validate()
}

func (c *cli) runPrint(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	config, err := c.store.Load()
	if err != nil {
		return err
	}
	opts, err := c.printOptions(cmd, config)
	if err != nil {
		return err
	}

	deps, closeDeps, err := c.deps(true)
	if err != nil {
		return err
	}
	defer closeDeps()

	_, err = workflow.Print(cmd.Context(), deps, workflow.PrintRequest{
		Path:    path,
		Options: opts,
	})
	return err
}
