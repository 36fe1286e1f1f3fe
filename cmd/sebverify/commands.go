package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	internal "github.com/ZanzyTHEbar/seb-verificator/sebv"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/discovery"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/reference"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/report"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/watcher"

	"github.com/google/uuid"
)

func runVerify(a *app, args []string) int {
	a.flags.String("path", "", "installation folder")
	refs := a.flags.StringSlice("reference", nil, "reference file to verify against (repeatable)")
	asJSON := a.flags.Bool("json", false, "print the report as JSON")
	onlyProblems := a.flags.Bool("only-problems", false, "list only items that deviate from the reference")
	under := a.flags.String("under", "", "list only items at or below this path")
	if code, ok := a.setup(args); !ok {
		return code
	}
	defer a.close()

	root, err := a.installationPath()
	if err != nil {
		return a.fail("Cannot verify", err)
	}

	store, closeStore, err := a.referenceStore(*refs)
	if err != nil {
		return a.fail("Cannot load references", err)
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := a.service(store).Verify(ctx, root)
	if err != nil {
		var noMatch *reference.NoMatchError
		if errors.As(err, &noMatch) {
			return a.fail(fmt.Sprintf("No reference for %s %s", noMatch.Version, noMatch.Platform), err)
		}
		return a.fail("Verification failed", err)
	}

	r := report.New(result.Root, result.Version, result.Platform, result.Reference, result.Items,
		report.Filter{OnlyProblems: *onlyProblems, Under: *under})
	if *asJSON {
		err = report.WriteJSON(a.stdout, r)
	} else {
		err = report.WriteText(a.stdout, r)
	}
	if err != nil {
		return a.fail("Failed to write report", err)
	}

	a.log.Info().Str("verdict", string(r.Verdict)).Int("problems", r.Summary.Problems()).Msg("Verification finished")
	return r.Summary.ExitCode()
}

func runGenerate(a *app, args []string) int {
	a.flags.String("path", "", "installation folder")
	out := a.flags.String("out", internal.DefaultReferencesDir, "directory to write the reference into")
	toCatalog := a.flags.Bool("catalog", false, "also import the reference into the catalog")
	if code, ok := a.setup(args); !ok {
		return code
	}
	defer a.close()

	root, err := a.installationPath()
	if err != nil {
		return a.fail("Cannot generate reference", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	snap, err := a.service(nil).GenerateReference(ctx, root)
	if err != nil {
		return a.fail("Failed to generate reference", err)
	}

	path, err := reference.Save(snap, *out)
	if err != nil {
		return a.fail("Failed to save reference", err)
	}
	a.log.Info().Str("file", path).Msg("Reference saved")
	fmt.Fprintln(a.stdout, path)

	if *toCatalog {
		catalog, err := a.openCatalog()
		if err != nil {
			return a.fail("Failed to open reference catalog", err)
		}
		defer catalog.Close()
		entry, err := catalog.Insert(snap)
		if err != nil {
			return a.fail("Failed to import reference", err)
		}
		fmt.Fprintf(a.stdout, "catalog: %s\n", entry.ID)
	}
	return report.ExitClean
}

func runSearch(a *app, args []string) int {
	if code, ok := a.setup(args); !ok {
		return code
	}
	defer a.close()

	path, ok := a.detector().SearchInstallation()
	if !ok {
		a.ui.Warning("No installation found in the program directories")
		return report.ExitTampered
	}
	fmt.Fprintln(a.stdout, path)
	return report.ExitClean
}

func runConfigs(a *app, args []string) int {
	a.flags.String("path", "", "folder to search, default the installation folder")
	if code, ok := a.setup(args); !ok {
		return code
	}
	defer a.close()

	root, err := a.installationPath()
	if err != nil {
		return a.fail("Cannot search configurations", err)
	}
	configs, err := discovery.FindConfigurations(context.Background(), root)
	if err != nil {
		return a.fail("Failed to search configurations", err)
	}
	for _, c := range configs {
		fmt.Fprintln(a.stdout, c.RelativePath)
	}
	a.log.Info().Int("count", len(configs)).Str("root", root).Msg("Configurations found")
	return report.ExitClean
}

func runShow(a *app, args []string) int {
	file := a.flags.String("reference", "", "reference file")
	under := a.flags.String("under", "", "show only entries at or below this path")
	if code, ok := a.setup(args); !ok {
		return code
	}
	defer a.close()

	if *file == "" {
		return a.fail("Missing --reference", errors.New("a reference file is required"))
	}
	snap, err := reference.Load(*file)
	if err != nil {
		return a.fail("Failed to load reference", err)
	}
	if err := report.WriteManifest(a.stdout, snap, *under); err != nil {
		return a.fail("Failed to write manifest", err)
	}
	return report.ExitClean
}

func runDiff(a *app, args []string) int {
	left := a.flags.String("left", "", "first reference file")
	right := a.flags.String("right", "", "second reference file")
	if code, ok := a.setup(args); !ok {
		return code
	}
	defer a.close()

	if *left == "" || *right == "" {
		return a.fail("Missing --left or --right", errors.New("two reference files are required"))
	}
	l, err := reference.Load(*left)
	if err != nil {
		return a.fail("Failed to load reference", err)
	}
	r, err := reference.Load(*right)
	if err != nil {
		return a.fail("Failed to load reference", err)
	}

	diff, err := report.ManifestDiff(l, r)
	if err != nil {
		return a.fail("Failed to compare references", err)
	}
	if diff == "" {
		fmt.Fprintln(a.stdout, "References are identical.")
		return report.ExitClean
	}
	fmt.Fprint(a.stdout, diff)
	return report.ExitTampered
}

func runCatalog(a *app, args []string) int {
	if code, ok := a.setup(args); !ok {
		return code
	}
	defer a.close()

	rest := a.flags.Args()
	if len(rest) == 0 {
		return a.fail("Missing catalog command", errors.New("expected import, list, delete or backup"))
	}

	catalog, err := a.openCatalog()
	if err != nil {
		return a.fail("Failed to open reference catalog", err)
	}
	defer catalog.Close()

	switch strings.ToLower(rest[0]) {
	case "import":
		if len(rest) < 2 {
			return a.fail("Nothing to import", errors.New("expected reference files"))
		}
		code := report.ExitClean
		for _, file := range rest[1:] {
			snap, err := reference.Load(file)
			if err != nil {
				a.fail("Failed to load reference", err)
				code = report.ExitError
				continue
			}
			entry, err := catalog.Insert(snap)
			if err != nil {
				a.fail("Failed to import reference", err)
				code = report.ExitError
				continue
			}
			fmt.Fprintf(a.stdout, "%s  %s\n", entry.ID, snap.Label())
		}
		return code

	case "list":
		entries, err := catalog.List()
		if err != nil {
			return a.fail("Failed to list catalog", err)
		}
		for _, e := range entries {
			fmt.Fprintf(a.stdout, "%s  %s  %s  %s\n", e.ID, (&trees.Snapshot{Version: e.Version, Platform: e.Platform}).Label(),
				e.ImportedAt.Format("2006-01-02 15:04:05"), e.Info)
		}
		return report.ExitClean

	case "delete":
		if len(rest) != 2 {
			return a.fail("Nothing to delete", errors.New("expected one catalog id"))
		}
		id, err := uuid.Parse(rest[1])
		if err != nil {
			return a.fail("Invalid catalog id", err)
		}
		deleted, err := catalog.Delete(id)
		if err != nil {
			return a.fail("Failed to delete reference", err)
		}
		if !deleted {
			a.ui.Warning(fmt.Sprintf("%s is not in the catalog", id))
			return report.ExitTampered
		}
		return report.ExitClean

	case "backup":
		dir := internal.DefaultCacheDir
		if len(rest) > 1 {
			dir = rest[1]
		}
		path, err := catalog.Backup(dir)
		if err != nil {
			return a.fail("Failed to back up catalog", err)
		}
		fmt.Fprintln(a.stdout, path)
		return report.ExitClean

	default:
		return a.fail("Unknown catalog command", fmt.Errorf("%q", rest[0]))
	}
}

func runWatch(a *app, args []string) int {
	a.flags.String("path", "", "installation folder")
	refs := a.flags.StringSlice("reference", nil, "reference file to verify against (repeatable)")
	if code, ok := a.setup(args); !ok {
		return code
	}
	defer a.close()

	root, err := a.installationPath()
	if err != nil {
		return a.fail("Cannot watch", err)
	}
	store, closeStore, err := a.referenceStore(*refs)
	if err != nil {
		return a.fail("Cannot load references", err)
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc := a.service(store)
	candidates, err := svc.LoadReferences(ctx)
	if err != nil {
		return a.fail("Cannot load references", err)
	}

	verify := func(ctx context.Context) int {
		result, err := svc.VerifyAgainst(ctx, root, candidates)
		if err != nil {
			if ctx.Err() == nil {
				a.fail("Verification failed", err)
			}
			return report.ExitError
		}
		r := report.New(result.Root, result.Version, result.Platform, result.Reference, result.Items, report.Filter{OnlyProblems: true})
		if err := report.WriteText(a.stdout, r); err != nil {
			a.fail("Failed to write report", err)
		}
		return r.Summary.ExitCode()
	}

	last := verify(ctx)
	if last == report.ExitError && len(candidates) == 0 {
		return last
	}

	w, err := watcher.New(root, watcher.Config{
		DebounceDelay:  a.cfg.DebounceInterval(),
		IgnorePatterns: a.cfg.Builder.Exclude,
	})
	if err != nil {
		return a.fail("Cannot watch", err)
	}
	defer w.Close()

	err = w.Run(ctx, func(ctx context.Context, batch []watcher.Event) {
		a.log.Info().Int("events", len(batch)).Msg("Installation changed, verifying again")
		last = verify(ctx)
	})
	if err != nil {
		return a.fail("Watching failed", err)
	}
	a.log.Info().Msg("Watch stopped")
	return last
}
