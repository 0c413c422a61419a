// Command avida is a terminal debug harness for the evolution core. It
// drives world.World purely through its exported interface, never by
// reaching into package internals.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/dnesting/avida/internal/config"
	"github.com/dnesting/avida/internal/log"
	"github.com/dnesting/avida/world"
)

var (
	configPath   = flag.String("config", "", "path to a YAML world configuration; flags below override it")
	seed         = flag.Int64("seed", 0, "scheduler RNG seed (0 uses the wall clock)")
	ticks        = flag.Int("ticks", 0, "number of ticks to run before exiting (0 runs until interrupted)")
	printHz      = flag.Int("print_hz", 4, "terminal refresh rate in Hz")
	taskAncestor = flag.Bool("task_ancestor", false, "inject the task-capable ancestor instead of the plain one")
	quiet        = flag.Bool("quiet", false, "suppress terminal rendering; just run and report final stats")
	showEvents   = flag.Int("show_events", 0, "number of recent debug events to print below the stats")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			glog.Exitf("loading config: %v", err)
		}
		cfg = loaded
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *ticks != 0 {
		cfg.Ticks = *ticks
	}
	if *taskAncestor {
		cfg.UseTaskAncestor = true
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	w := world.NewSeeded(cfg.Seed)
	cfg.Apply(w)

	if cfg.UseTaskAncestor {
		w.InjectAncestorWithTasks()
	} else {
		w.InjectAncestor()
	}

	if *quiet {
		runHeadless(w, cfg.Ticks)
		return
	}
	runWithDisplay(w, cfg.Ticks, *printHz)
}

func runHeadless(w *world.World, ticks int) {
	i := 0
	for ticks == 0 || i < ticks {
		w.Tick()
		i++
	}
	printStats(os.Stdout, w)
}

func runWithDisplay(w *world.World, ticks int, hz int) {
	if hz < 1 {
		hz = 1
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	fmt.Print("\033[H\033[2J")
	i := 0
	for ticks == 0 || i < ticks {
		w.Tick()
		i++
		select {
		case <-ticker.C:
			fmt.Print("\033[H")
			printWorld(os.Stdout, w)
			printStats(os.Stdout, w)
		default:
		}
	}
	printWorld(os.Stdout, w)
	printStats(os.Stdout, w)
}

func printStats(f *os.File, w *world.World) {
	st := w.Stats()
	fc := w.FailureCounts()
	fmt.Fprintf(f, "updates %d  pop %d  births %d  deaths %d\033[K\n",
		w.TotalUpdates(), st.Population, w.TotalBirths(), w.TotalDeaths())
	fmt.Fprintf(f, "avg genome %.1f  avg merit %.2f  avg fitness %.4f\033[K\n",
		st.AverageGenomeSize, st.AverageMerit, st.AverageFitness)
	fmt.Fprintf(f, "tasks %v\033[K\n", st.TaskHistogram)
	fmt.Fprintf(f, "failures: alloc %d copy %d divide %d divisions %d\033[K\n",
		fc.HAllocWarnings, fc.HCopyFailures, fc.HDivideFailures, fc.Divisions)
	for _, ev := range log.RecentEvents(*showEvents) {
		fmt.Fprintf(f, "  %s\033[K\n", ev)
	}
}
