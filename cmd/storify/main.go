// storify annotates layout records with ramps, stories and ramp directions.
//
// Usage:
//
//	storify [flags] <file-or-dir>...
//	storify -list
//	storify -rooms <key>
//
// Directories are scanned for *.json layout records. Files are rewritten in
// place unless -out names a directory for the results. -list and -rooms
// read back what -archive recorded.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/gookit/color"

	"github.com/lawnchairsociety/dungeonstory/internal/archive"
	"github.com/lawnchairsociety/dungeonstory/internal/config"
	"github.com/lawnchairsociety/dungeonstory/internal/layout"
	"github.com/lawnchairsociety/dungeonstory/internal/logger"
	"github.com/lawnchairsociety/dungeonstory/internal/pipeline"
	"github.com/lawnchairsociety/dungeonstory/internal/story"
)

var (
	styleOK   = color.Style{color.FgGreen, color.OpBold}
	styleFail = color.Style{color.FgRed, color.OpBold}
	styleWarn = color.Style{color.FgYellow}
	styleDim  = color.Style{color.FgGray}
)

// job is one input file on its way through the batch.
type job struct {
	path    string
	key     string
	dungeon *layout.Dungeon
	err     error
}

func main() {
	configFile := flag.String("config", "data/dungeonstory.yaml", "Path to config YAML file")
	outDir := flag.String("out", "", "Directory for annotated layouts (default: rewrite inputs in place)")
	verify := flag.Bool("verify", false, "Re-check ramps and stories after processing")
	workers := flag.Int("workers", runtime.NumCPU(), "Dungeons processed in parallel")
	useArchive := flag.Bool("archive", false, "Record results in the archive")
	seed := flag.Int64("seed", 0, "Seed for ramp cluster tie-breaks (default: from config, else time-based)")
	withWalls := flag.Bool("walls", false, "Generate walls and ceilings")
	unreachable := flag.String("unreachable", "", "Policy for rooms the entrance cannot reach: leave, error or fallback")
	list := flag.Bool("list", false, "List archived layouts and exit")
	roomsOf := flag.String("rooms", "", "Print the archived rooms of the layout with this key and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: storify [flags] <file-or-dir>...\n")
		fmt.Fprintf(os.Stderr, "       storify -list | -rooms <key>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	browsing := *list || *roomsOf != ""
	if flag.NArg() == 0 && !browsing {
		flag.Usage()
		os.Exit(2)
	}

	logConfig, err := logger.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; logging with defaults\n", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags given explicitly win over the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Pipeline.Seed = *seed
			cfg.Walls.Seed = *seed
		case "walls":
			cfg.Walls.Enabled = *withWalls
		case "archive":
			cfg.Archive.Enabled = *useArchive
		case "unreachable":
			cfg.Pipeline.Unreachable = *unreachable
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	policy, _ := story.ParsePolicy(cfg.Pipeline.Unreachable)

	if browsing {
		store, err := archive.Open(cfg.Archive)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
			os.Exit(1)
		}
		if *list {
			err = listArchive(store)
		} else {
			err = showRooms(store, *roomsOf)
		}
		store.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	paths, err := collect(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var store *archive.Archive
	if cfg.Archive.Enabled {
		store, err = archive.Open(cfg.Archive)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
			os.Exit(1)
		}
	}

	newPipeline := func() *pipeline.Pipeline {
		opts, _ := pipeline.OptionsFromConfig(cfg)
		return pipeline.New(opts)
	}

	jobs := load(paths, newPipeline().Key)
	var dungeons []*layout.Dungeon
	var pending []*job
	for _, j := range jobs {
		if j.err == nil {
			dungeons = append(dungeons, j.dungeon)
			pending = append(pending, j)
		}
	}

	results, err := pipeline.RunBatch(context.Background(), dungeons, *workers, newPipeline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, j := range jobs {
		if j.err != nil {
			failed++
			printFailure(j.path, j.err)
		}
	}

	checker := pipeline.New(pipeline.Options{Unreachable: policy, FallbackStory: cfg.Pipeline.FallbackStory})
	for i, res := range results {
		j := pending[i]
		if res.Err == nil && *verify {
			res.Err = checker.Verify(j.dungeon)
		}
		if res.Err == nil {
			res.Err = save(j, *outDir)
		}
		if res.Err == nil && store != nil {
			res.Err = record(store, j)
		}
		if res.Err != nil {
			failed++
			printFailure(j.path, res.Err)
			continue
		}
		printReport(j.path, res.Report)
	}

	if store != nil {
		store.Close()
	}

	fmt.Println()
	summary := fmt.Sprintf("%d processed, %d failed", len(jobs)-failed, failed)
	if failed > 0 {
		fmt.Println(styleFail.Sprint(summary))
		os.Exit(1)
	}
	fmt.Println(styleOK.Sprint(summary))
}

// collect expands the arguments into layout files. Files named directly are
// taken as given; directories contribute their *.json files in name order.
func collect(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		matches, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no layout files found in %s", strings.Join(args, ", "))
	}
	return paths, nil
}

// load reads every path. keyOf names each record in the archive.
func load(paths []string, keyOf func(raw []byte) string) []*job {
	jobs := make([]*job, len(paths))
	for i, path := range paths {
		j := &job{path: path}
		d, raw, err := layout.LoadFile(path)
		if err != nil {
			j.err = err
		} else {
			j.dungeon = d
			j.key = keyOf(raw)
		}
		jobs[i] = j
	}
	return jobs
}

func save(j *job, outDir string) error {
	path := j.path
	if outDir != "" {
		path = filepath.Join(outDir, filepath.Base(j.path))
	}
	return layout.SaveFile(path, j.dungeon)
}

func record(store *archive.Archive, j *job) error {
	rec, err := archive.NewRecord(j.key, j.dungeon)
	if err != nil {
		return err
	}
	return store.Save(context.Background(), rec)
}

func listArchive(store *archive.Archive) error {
	records, err := store.List(context.Background())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println(styleDim.Sprint("archive is empty"))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tROOMS\tRAMPS\tSTORIES\tUNASSIGNED\tPROCESSED")
	for _, rec := range records {
		stories := "none"
		if rec.Stories > 0 {
			stories = fmt.Sprintf("%d (to %d)", rec.Stories, rec.Deepest)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%d\t%s\n",
			rec.Fingerprint[:12], rec.Name, rec.Rooms, rec.Ramps, stories, rec.Unassigned,
			rec.ProcessedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// showRooms prints the rooms of one archived layout. key may be a prefix as
// shown by -list.
func showRooms(store *archive.Archive, key string) error {
	ctx := context.Background()
	if len(key) < 64 {
		records, err := store.List(ctx)
		if err != nil {
			return err
		}
		var matches []string
		for _, rec := range records {
			if strings.HasPrefix(rec.Fingerprint, key) {
				matches = append(matches, rec.Fingerprint)
			}
		}
		switch len(matches) {
		case 0:
			return fmt.Errorf("%w: %s", archive.ErrNotFound, key)
		case 1:
			key = matches[0]
		default:
			return fmt.Errorf("key %s is ambiguous: %d archived layouts match", key, len(matches))
		}
	}

	rooms, err := store.Rooms(ctx, key)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "X\tY\tSIZE\tKIND\tSTORY\tRAMP")
	for _, r := range rooms {
		kind := r.Kind
		if kind == layout.Ramp.String() {
			kind = styleWarn.Sprint(kind)
		}
		fmt.Fprintf(w, "%d\t%d\t%dx%d\t%s\t%s\t%s\n", r.X, r.Y, r.W, r.H, kind, r.Story, r.RampDir)
	}
	return w.Flush()
}

func printFailure(path string, err error) {
	fmt.Printf("%s %s\n", styleFail.Sprint("FAIL"), path)
	fmt.Printf("     %s\n", err)
}

func printReport(path string, r *pipeline.Report) {
	fmt.Printf("%s   %s %s\n", styleOK.Sprint("ok"), path,
		styleDim.Sprintf("(%d rooms, %d ramps, stories %s)", r.Rooms, r.Ramps, formatStories(r.Stories)))
	if r.Clusters > 0 {
		fmt.Printf("     %d ramp clusters collapsed\n", r.Clusters)
	}
	if r.Unassigned > 0 {
		fmt.Printf("     %s\n", styleWarn.Sprintf("%d rooms unreachable from the entrance", r.Unassigned))
	}
	if r.OrphanDoors > 0 || r.OrphanColumns > 0 {
		fmt.Printf("     %s\n", styleWarn.Sprintf("%d doors and %d columns outside every room", r.OrphanDoors, r.OrphanColumns))
	}
}

func formatStories(levels []int) string {
	if len(levels) == 0 {
		return "none"
	}
	if len(levels) == 1 {
		return fmt.Sprint(levels[0])
	}
	return fmt.Sprintf("%d..%d", levels[0], levels[len(levels)-1])
}
