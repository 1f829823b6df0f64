// Command sos is the root-task boot entry point: it wires the frame
// table, swap store, remote filesystem client, console device and
// process table into a dispatch.Engine, then hands the engine to the
// scheduler's event loop. Grounded on kernel entry point
// (main.go in the justanotherdot-biscuit excerpt) in shape — reserve
// memory, attach devices, start the scheduler — though every step's
// substance is SOS's own.
package main

import (
	"fmt"
	"net"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sos/config"
	"sos/console"
	"sos/defs"
	"sos/dispatch"
	"sos/evict"
	"sos/ipcserver"
	"sos/limits"
	"sos/mem"
	"sos/proc"
	"sos/remotefs"
	"sos/sched"
	"sos/statsd"
	"sos/statusfile"
	"sos/swap"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "sos",
		Short: "SOS root-task server",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "sos.toml", "boot configuration file")
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	boot, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logrus.New()
	if lvl, lerr := logrus.ParseLevel(boot.Log.Level); lerr == nil {
		log.SetLevel(lvl)
	}
	if boot.Log.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	entry := logrus.NewEntry(log)

	frames := mem.New(boot.Memory.FrameCount, entry)

	swapStore, err := swap.Open(boot.Swap.Path, boot.Swap.Slots)
	if err != nil {
		return fmt.Errorf("opening swap store: %w", err)
	}
	defer swapStore.Close()

	cons, ok := console.New(frames)
	if !ok {
		return fmt.Errorf("allocating console buffers: out of frames")
	}
	defer cons.Shutdown()

	remote := remotefs.New(noopTransport{})

	lims := &limits.Sys{
		Procs:     limits.NewAtomic(boot.Limits.MaxProcs),
		Frames:    limits.NewAtomic(boot.Limits.MaxFrames),
		SwapSlots: limits.NewAtomic(boot.Limits.MaxSwapSlots),
	}
	stats := &statsd.Counters{}
	procs := proc.NewTable()
	ring := evict.New()

	scheduler := sched.New(procs, stats, swapStore, remote)
	engine := &dispatch.Engine{
		Procs:   procs,
		Frames:  frames,
		Swap:    swapStore,
		Remote:  remote,
		Console: cons,
		Evict:   ring,
		Limits:  lims,
		Stats:   stats,
		Sched:   scheduler,
	}

	init0 := procs.New(0, "init", defs.FdTableSize)
	entry.WithField("pid", init0.Pid).Info("boot: init process created")

	if boot.Status.Path != "" {
		go runStatusWriter(boot, frames, swapStore, procs, stats)
	}

	if boot.IPC.SocketPath != "" {
		os.Remove(boot.IPC.SocketPath)
		listener, lerr := net.Listen("unix", boot.IPC.SocketPath)
		if lerr != nil {
			return fmt.Errorf("listening on %s: %w", boot.IPC.SocketPath, lerr)
		}
		defer listener.Close()
		go func() {
			if serr := ipcserver.Serve(listener, engine, scheduler, entry); serr != nil {
				entry.WithError(serr).Error("ipcserver: accept loop exited")
			}
		}()
		entry.WithField("socket", boot.IPC.SocketPath).Info("boot: listening for syscall requests")
	}

	entry.Info("sos: entering event loop")
	scheduler.Run()
	return nil
}

// runStatusWriter periodically snapshots the running instance to
// boot.Status.Path for sosctl watch to poll. It runs for the process
// lifetime; there is no explicit stop since it exits with the process.
func runStatusWriter(boot config.Boot, frames *mem.Table, swapStore *swap.Store, procs *proc.Table, stats *statsd.Counters) {
	interval := time.Duration(boot.Status.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		snap := statusfile.FromCounters(*stats, procs.Count(), frames.FreeCount(), frames.Total(), swapStore.FreeCount())
		snap.Time = time.Now()
		_ = statusfile.Write(boot.Status.Path, snap)
		writeHeapProfile(boot.Status.Path + ".heap.pprof")
	}
}

// writeHeapProfile refreshes the heap profile sosctl's "profile"
// subcommand reads. Best-effort: a failed write here must never disturb
// the event loop this goroutine runs alongside.
func writeHeapProfile(path string) {
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	_ = pprof.Lookup("heap").WriteTo(f, 0)
}

// noopTransport is a placeholder remotefs.Transport used until a real
// IPC endpoint to the filesystem server is wired up; every request
// fails with ERemoteIOFailure rather than hanging, so dispatch's error
// paths are still exercised end to end.
type noopTransport struct{}

func (noopTransport) Send(req remotefs.Request, deliver func(any, defs.Err_t)) {
	deliver(nil, defs.ERemoteIOFailure)
}
