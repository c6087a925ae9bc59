package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/urfave/cli"

	"pyvm/internal/config"
	"pyvm/internal/diag"
	"pyvm/internal/runtimeio"
	"pyvm/internal/unitfile"
	"pyvm/internal/vm"
)

var log = commonlog.GetLogger("pyvm.cli")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		code := 1
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			code = exit.ExitCode()
			if msg := exit.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(code)
	}
}

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "read settings from `FILE` instead of the nearest pyvm.toml",
	}
	verboseFlag = cli.BoolFlag{
		Name:  "verbose, v",
		Usage: "log run progress to stderr",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "pyvm"
	app.Usage = "run compiled Python bytecode units"
	app.Version = "0.1.0"
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	app.Commands = []cli.Command{
		{
			Name:      "run",
			Usage:     "execute a .pyvmc or .yaml unit",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				configFlag,
				verboseFlag,
				cli.Int64Flag{Name: "max-steps", Usage: "stop after `N` instructions (0 for no limit)"},
				cli.IntFlag{Name: "max-depth", Usage: "allow at most `N` nested frames"},
				cli.Int64Flag{Name: "max-memory", Usage: "allow at most `N` bytes of allocations (0 for no limit)"},
				cli.BoolFlag{Name: "no-color", Usage: "print tracebacks without colors"},
			},
			Action: runCommand,
		},
		{
			Name:      "dis",
			Usage:     "disassemble a unit and every unit nested in it",
			ArgsUsage: "FILE",
			Flags:     []cli.Flag{configFlag, verboseFlag},
			Action:    disCommand,
		},
		{
			Name:      "convert",
			Usage:     "rewrite a unit in the encoding its output extension names",
			ArgsUsage: "IN OUT",
			Flags:     []cli.Flag{configFlag, verboseFlag},
			Action:    convertCommand,
		},
	}
	return app
}

// setup loads the configuration for a command working on file, applies
// the flags that override it and configures logging.
func setup(c *cli.Context, file string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.FindAndLoad(filepath.Dir(file))
	}
	if err != nil {
		return nil, cli.NewExitError(err.Error(), 2)
	}

	if c.IsSet("max-steps") {
		cfg.Limits.MaxSteps = c.Int64("max-steps")
	}
	if c.IsSet("max-depth") {
		cfg.Limits.MaxDepth = c.Int("max-depth")
	}
	if c.IsSet("max-memory") {
		cfg.Limits.MaxMemory = c.Int64("max-memory")
	}
	if c.Bool("no-color") {
		cfg.Output.Color = false
	}
	if c.Bool("verbose") && cfg.Log.Verbosity < 1 {
		cfg.Log.Verbosity = 1
	}

	if cfg.Log.File != "" {
		commonlog.Configure(cfg.Log.Verbosity, &cfg.Log.File)
	} else {
		commonlog.Configure(cfg.Log.Verbosity, nil)
	}
	if cfg.Path != "" {
		log.Infof("using configuration %s", cfg.Path)
	}
	return cfg, nil
}

func args(c *cli.Context, n int) ([]string, error) {
	if c.NArg() != n {
		return nil, cli.NewExitError(fmt.Sprintf("usage: %s %s %s", c.App.Name, c.Command.Name, c.Command.ArgsUsage), 2)
	}
	return c.Args(), nil
}

func runCommand(c *cli.Context) error {
	a, err := args(c, 1)
	if err != nil {
		return err
	}
	cfg, err := setup(c, a[0])
	if err != nil {
		return err
	}
	withColor := cfg.Output.Color && runtimeio.IsTerminal(c.App.ErrWriter)

	unit, err := unitfile.Load(a[0])
	if err != nil {
		fmt.Fprint(c.App.ErrWriter, diag.Report(err, withColor))
		return cli.NewExitError("", 1)
	}

	m := vm.NewWithLimits(cfg.RunLimits())
	m.SetConsole(runtimeio.NewConsole(os.Stdin, c.App.Writer))
	if _, err := m.Run(unit, nil); err != nil {
		log.Debugf("run failed after %d steps: %v", m.Steps(), err)
		fmt.Fprint(c.App.ErrWriter, diag.Report(err, withColor))
		return cli.NewExitError("", 1)
	}
	return nil
}

func disCommand(c *cli.Context) error {
	a, err := args(c, 1)
	if err != nil {
		return err
	}
	if _, err := setup(c, a[0]); err != nil {
		return err
	}
	unit, err := unitfile.Load(a[0])
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Fprint(c.App.Writer, unit.Disassemble())
	return nil
}

func convertCommand(c *cli.Context) error {
	a, err := args(c, 2)
	if err != nil {
		return err
	}
	if _, err := setup(c, a[0]); err != nil {
		return err
	}
	unit, err := unitfile.Load(a[0])
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err := unitfile.Save(a[1], unit); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	log.Infof("wrote %s", a[1])
	return nil
}
