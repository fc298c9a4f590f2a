package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/pitwall/pitwall/internal/api"
	"github.com/pitwall/pitwall/internal/config"
	"github.com/pitwall/pitwall/internal/database"
	"github.com/pitwall/pitwall/internal/mockdata"
	"github.com/pitwall/pitwall/internal/parser"
	"github.com/pitwall/pitwall/internal/sim"
	gormstorage "github.com/pitwall/pitwall/internal/storage/gorm"
	"github.com/pitwall/pitwall/internal/storage/memory"
	"github.com/pitwall/pitwall/internal/strategy"
	"github.com/pitwall/pitwall/internal/tire"
	"github.com/pitwall/pitwall/pkg/core"
)

var errUnknownCommand = errors.New("unknown command")

const usage = `usage: pitwall [command] [flags]

commands:
  serve     run the HTTP API and simulation (default)
  export    write stored recordings as replay files, or list them
  project   print the lap projection of a strategy
  version   print the version
`

// run dispatches to a subcommand. With no command, serve is assumed.
func run(args []string, out io.Writer) error {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = strings.ToLower(args[0]), args[1:]
	}

	switch cmd {
	case "serve":
		return runServe(args, out)
	case "export":
		return runExport(args, out)
	case "project":
		return runProject(args, out)
	case "version":
		fmt.Fprintf(out, "%s %s (built %s)\n", ServiceName, Version, BuildDate)
		return nil
	case "help":
		fmt.Fprint(out, usage)
		return nil
	}
	return fmt.Errorf("%w: %q\n%s", errUnknownCommand, cmd, usage)
}

func newFlagSet(name string, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func runServe(args []string, out io.Writer) error {
	fs := newFlagSet("serve", out)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	fs.String("addr", "", "listen address, overrides server.address")
	fs.String("log-level", "", "log level, overrides logLevel")
	fs.String("storage", "", "storage backend, overrides storage.type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	for key, flag := range map[string]string{
		"server.address": "addr",
		"logLevel":       "log-level",
		"storage.type":   "storage",
	} {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}

	svc, err := newService(*configDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return svc.run(ctx)
}

func runExport(args []string, out io.Writer) error {
	fs := newFlagSet("export", out)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	dbPath := fs.String("db", "", "SQLite dump, or a directory of dumps to take the newest from; Postgres from the config when empty")
	outDir := fs.String("out", ".", "directory the replay files are written to")
	compress := fs.Bool("compress", true, "gzip the replay files")
	upload := fs.Bool("upload", false, "upload each replay to api.serverUrl")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// a missing config file leaves the defaults in place
	_ = config.Load(*configDir)

	db, err := openExportDB(*dbPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	ids := fs.Args()
	if len(ids) == 0 {
		return listRecordings(db, out)
	}

	var client *api.Client
	if *upload {
		apiCfg := config.GetAPIConfig()
		if apiCfg.APIKey == "" {
			return errors.New("--upload needs api.apiKey in the config")
		}
		client = api.New(apiCfg.ServerURL, apiCfg.APIKey)
	}

	for _, arg := range ids {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: recording id %q", parser.ErrInvalidArg, arg)
		}

		start := time.Now()
		data, err := gormstorage.LoadRun(db, uint(id))
		if err != nil {
			return err
		}
		path, meta, err := memory.WriteExport(*outDir, *compress, data)
		if err != nil {
			return fmt.Errorf("failed to export recording %d: %w", id, err)
		}
		fmt.Fprintf(out, "recording %d: %d frames written to %s in %s\n", id, meta.FrameCount, path, time.Since(start).Round(time.Millisecond))

		if client != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			err := client.Upload(ctx, path, meta)
			cancel()
			if err != nil {
				return fmt.Errorf("failed to upload recording %d: %w", id, err)
			}
			fmt.Fprintf(out, "recording %d: uploaded\n", id)
		}
	}
	return nil
}

func openExportDB(path string) (*gorm.DB, error) {
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		if info.IsDir() {
			if path, err = newestDump(path); err != nil {
				return nil, err
			}
		}
		return database.OpenSQLite(path)
	}
	db, err := database.OpenPostgres(config.GetDBConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// newestDump relies on dump names sorting by their start timestamp.
func newestDump(dir string) (string, error) {
	paths, err := database.GetBackupDBPaths(dir)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no .db dumps in %s", dir)
	}
	sort.Strings(paths)
	return paths[len(paths)-1], nil
}

func listRecordings(db *gorm.DB, out io.Writer) error {
	recs, err := gormstorage.ListRecordings(db)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTART\tTRACK\tFRAMES\tTAG")
	for _, r := range recs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", r.ID, r.StartTime.UTC().Format(time.RFC3339), r.TrackName, r.FrameCount, r.Tag)
	}
	return w.Flush()
}

func runProject(args []string, out io.Writer) error {
	fs := newFlagSet("project", out)
	catalogFile := fs.String("catalog", "", "catalog file; the built-in catalog when empty")
	driverID := fs.String("driver", "", "driver whose base lap time is used; first catalog driver when empty")
	stopList := fs.String("stops", "1:"+string(strategy.DefaultStartTire), "strategy as lap:tire pairs, the first on lap 1")
	raceLaps := fs.Int("laps", strategy.DefaultRaceLaps, "race length in laps")
	seed := fs.Int64("seed", 1, "mock data seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cat, err := loadCatalog(*catalogFile)
	if err != nil {
		return err
	}
	driver := cat.Drivers()[0]
	if *driverID != "" {
		d, ok := cat.Driver(*driverID)
		if !ok {
			return fmt.Errorf("%w: driver %q", parser.ErrInvalidArg, *driverID)
		}
		driver = d
	}

	stops, err := parser.ParseStopList(*stopList)
	if err != nil {
		return err
	}
	tires := tire.New(cat.Tires())
	plan, err := buildPlan(stops, *raceLaps, tires)
	if err != nil {
		return err
	}

	fetcher := mockdata.New(cat, rand.New(rand.NewSource(*seed)), mockdata.WithLatency(0))
	cmp, err := fetcher.Fetch(context.Background(), driver, cat.FirstDriverExcept(driver.ID))
	if err != nil {
		return err
	}
	base := cmp.Driver1.LapData.LapTime

	laps, err := strategy.NewEvaluator(tires).Project(base, plan.Stops(), plan.RaceLength())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s (%s), base lap %s, pit laps %v\n", driver.Name, driver.Abbreviation, sim.FormatTime(base), plan.PitLaps())
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LAP\tTIME\tTIRE")
	var total float64
	for _, l := range laps {
		total += l.LapTime
		fmt.Fprintf(w, "%d\t%s\t%s\n", l.Lap, sim.FormatTime(l.LapTime), l.Tire)
	}
	fmt.Fprintf(w, "total\t%s\t\n", sim.FormatTime(total))
	return w.Flush()
}

// buildPlan replays stops through a strategy.Plan so the CLI accepts exactly
// what the strategy editor accepts.
func buildPlan(stops []core.PitStop, raceLaps int, tires *tire.Model) (*strategy.Plan, error) {
	if stops[0].Lap != 1 {
		return nil, fmt.Errorf("%w: the first stop must be on lap 1", parser.ErrInvalidArg)
	}
	if !tires.Valid(stops[0].Tire) {
		return nil, fmt.Errorf("%w: unknown compound %q", parser.ErrInvalidArg, stops[0].Tire)
	}
	plan := strategy.NewPlan(raceLaps, stops[0].Tire, tires)
	for _, s := range stops[1:] {
		if !plan.InsertStop(s.Lap, s.Tire) {
			return nil, fmt.Errorf("%w: stop %d:%s rejected", parser.ErrInvalidArg, s.Lap, s.Tire)
		}
	}
	return plan, nil
}
