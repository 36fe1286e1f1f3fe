package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	internal "github.com/ZanzyTHEbar/seb-verificator/sebv"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/config"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/db"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/detector"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/logging"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/ports"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/reference"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/report"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/verification"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var errNoInstallation = errors.New("no installation found")

// versionReader reads the declared version of the main executable.
var versionReader detector.VersionReader = detector.PEVersionReader{}

// app carries what every command needs once flags are parsed.
type app struct {
	name   string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	flags *pflag.FlagSet
	v     *viper.Viper

	cfg *config.Config
	log *logging.Logger
	ui  ports.Interactor
}

func newApp(name string, stdin io.Reader, stdout, stderr io.Writer) *app {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.String("config", "", "configuration file (default: search for config.yaml)")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.String("log-file", "", "append log events to this file (empty disables)")

	return &app{
		name:   name,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		flags:  flags,
		v:      viper.New(),
		ui:     ports.NewTerminalInteractor(stdin, stderr),
	}
}

// setup parses args, loads configuration and opens the log. It returns
// false with the exit code to use when the command must stop.
func (a *app) setup(args []string) (int, bool) {
	if err := a.flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return report.ExitClean, false
		}
		return report.ExitError, false
	}

	_ = a.v.BindPFlag("logging.level", a.flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.file", a.flags.Lookup("log-file"))
	if f := a.flags.Lookup("path"); f != nil {
		_ = a.v.BindPFlag("installation.path", f)
	}

	configPath, _ := a.flags.GetString("config")
	cfg, err := config.Load(a.v, configPath)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return report.ExitError, false
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Out:     a.stderr,
	})
	if err != nil {
		fallback := internal.GetLogger()
		fallback.Error().Err(err).Msg("Failed to set up logging")
		return report.ExitError, false
	}
	a.log = logger
	slog.SetDefault(logger.Slog())

	a.log.Line(fmt.Sprintf("=== %s %s ===", internal.DefaultAppName, a.name))
	return 0, true
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Close()
	}
}

// fail logs err and returns the error exit code.
func (a *app) fail(msg string, err error) int {
	a.log.Error().Err(err).Msg(msg)
	a.ui.Error(msg, err)
	return report.ExitError
}

func (a *app) detector() *detector.Detector {
	env := detector.NewHostEnvironment(a.cfg.Installation.ProgramFiles, a.cfg.Installation.ProgramFilesX86)
	return detector.New(env, detector.WithVersionReader(versionReader), detector.WithLogger(slog.Default()))
}

func (a *app) builder() *filesystem.Builder {
	return filesystem.NewDefaultBuilder(a.cfg.BuildOptions(), a.cfg.HasherOptions()...).WithLogger(slog.Default())
}

// installationPath resolves the installation from flags or configuration,
// then by searching the program directories, then by asking.
func (a *app) installationPath() (string, error) {
	if p := a.cfg.Installation.Path; p != "" {
		return p, nil
	}
	det := a.detector()
	if p, ok := det.SearchInstallation(); ok {
		a.log.Info().Str("path", p).Msg("Found installation")
		return p, nil
	}
	a.log.Warn().Msg("Could not find an installation in the program directories")
	p, ok := a.ui.SelectDirectory("Installation folder (empty to cancel):")
	if !ok {
		return "", errNoInstallation
	}
	if !det.IsValidInstallation(p) {
		a.ui.Warning(fmt.Sprintf("%s does not look like a %s installation", p, internal.DefaultProductName))
	}
	return p, nil
}

// openCatalog opens the configured catalog.
func (a *app) openCatalog() (*db.Catalog, error) {
	return db.OpenCatalog(a.cfg.References.Catalog.DSN)
}

// referenceStore returns explicit files when given, otherwise the
// configured directories, bundled references and catalog. The returned
// function closes what was opened.
func (a *app) referenceStore(files []string) (reference.Store, func(), error) {
	if len(files) > 0 {
		return reference.FileStore{Paths: files}, func() {}, nil
	}

	stores := reference.MultiStore{reference.DirectoryStore{Dirs: a.cfg.References.Directories}}
	if a.cfg.References.Bundled {
		stores = append(stores, reference.Bundled())
	}
	closer := func() {}
	if a.cfg.References.Catalog.Enabled {
		catalog, err := a.openCatalog()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open reference catalog: %w", err)
		}
		stores = append(stores, catalog)
		closer = func() { _ = catalog.Close() }
	}
	return stores, closer, nil
}

func (a *app) service(store reference.Store) *verification.Service {
	return verification.NewService(a.detector(), a.builder(), store, verification.WithLogger(a.log.Logger))
}
