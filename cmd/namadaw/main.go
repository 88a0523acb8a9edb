// Command namadaw builds, inspects and decrypts encrypted wrapper
// transactions.
//
// Usage:
//
//	namadaw [global flags] <command> [flags]
//
// Commands:
//
//	keygen       Generate a sender key
//	tpke-keygen  Generate an epoch encryption key pair
//	wrap         Encrypt, wrap and sign a transaction
//	inspect      Authenticate a signed wrapper and print it
//	decrypt      Authenticate a signed wrapper and decrypt its inner tx
//	batch        Admit signed wrappers into a pool and decrypt an epoch
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/anonployed/namada/log"
	"github.com/urfave/cli/v2"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	return runWith(args, os.Stdout, os.Stderr)
}

func runWith(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.Run(append([]string{app.Name}, args...)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// env carries the state shared by all commands once the global flags have
// been applied.
type env struct {
	cfg    *Config
	log    *log.Logger
	closer io.Closer
}

func newApp(stdout, stderr io.Writer) *cli.App {
	e := &env{}
	return &cli.App{
		Name:      "namadaw",
		Usage:     "encrypted wrapper transaction tool",
		UsageText: "namadaw [global flags] <command> [flags]",
		Version:   fmt.Sprintf("%s (commit %s)", version, commit),
		Writer:    stdout,
		ErrWriter: stderr,
		// Errors are reported by runWith; never exit from inside the app.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.StringFlag{Name: "log.level", Usage: "log level: debug, info, warn, error"},
			&cli.StringFlag{Name: "log.file", Usage: "write logs to a rotated file instead of stderr"},
		},
		Before: e.setup,
		After:  e.teardown,
		Commands: []*cli.Command{
			keygenCommand(e),
			tpkeKeygenCommand(e),
			wrapCommand(e),
			inspectCommand(e),
			decryptCommand(e),
			batchCommand(e),
		},
	}
}

// setup loads the config, applies global flag overrides and builds the
// logger.
func (e *env) setup(c *cli.Context) error {
	cfg, err := LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log.level") {
		cfg.Log.Level = c.String("log.level")
	}
	if c.IsSet("log.file") {
		cfg.Log.File = c.String("log.file")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, closer, err := log.NewFromOptions(cfg.Log)
	if err != nil {
		return err
	}
	log.SetDefault(logger)
	e.cfg, e.log, e.closer = cfg, logger.Module("namadaw"), closer
	return nil
}

func (e *env) teardown(*cli.Context) error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}
