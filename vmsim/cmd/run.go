package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sarchlab/vmsim/config"
	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/trace"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/mem/vm/swap"
	"github.com/sarchlab/vmsim/monitoring"
	"github.com/sarchlab/vmsim/script"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run commands against a simulated MMU.",
		Long: "Reads r/w/stats/flush commands from stdin or --input, one " +
			"per line, and prints the statistics at the end.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			return run(cmd, cfg)
		},
	}

	f := runCmd.Flags()
	f.String("config", "", "YAML file with the settings of the run")
	f.String("swap", "", "swap file; an in-memory swap is used if not set")
	f.Uint64("address-space", 0, "bytes of virtual memory")
	f.Uint64("page-size", 0, "bytes of a page")
	f.Uint64("frames", 0, "number of physical frames")
	f.Uint64("physical-memory", 0, "bytes of physical memory")
	f.String("policy", "", "page replacement policy: fifo, lru or random")
	f.Uint64("seed", 0, "seed of the random policy")
	f.String("log-level", "", "debug, info, warn or error")
	f.String("record", "",
		"record MMU events into a SQLite file or a clickhouse:// DSN")
	f.Bool("monitor", false, "serve the state of the MMU over HTTP")
	f.Int("monitor-port", 0, "port of the monitor; random if 0")
	f.Bool("open-browser", false, "open the monitor in a browser")
	f.Bool("no-flush-on-exit", false, "keep dirty pages out of the swap file")
	f.String("input", "", "read commands from this file instead of stdin")

	return runCmd
}

// resolveConfig layers the defaults, the config file, the environment and the
// flags that were set.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	f := cmd.Flags()
	cfg := config.Default()

	if path, _ := f.GetString("config"); path != "" {
		var err error

		cfg, err = config.LoadFile(path)
		if err != nil {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	uints := map[string]*uint64{
		"address-space":   &cfg.AddressSpaceSize,
		"page-size":       &cfg.PageSize,
		"frames":          &cfg.FrameCount,
		"physical-memory": &cfg.PhysicalMemorySize,
		"seed":            &cfg.Seed,
	}
	for name, dst := range uints {
		if f.Changed(name) {
			*dst, _ = f.GetUint64(name)
		}
	}

	strs := map[string]*string{
		"swap":      &cfg.SwapPath,
		"policy":    &cfg.Policy,
		"log-level": &cfg.LogLevel,
		"record":    &cfg.RecordPath,
	}
	for name, dst := range strs {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}

	if f.Changed("monitor") {
		cfg.Monitor, _ = f.GetBool("monitor")
	}

	if f.Changed("monitor-port") {
		cfg.MonitorPort, _ = f.GetInt("monitor-port")
		cfg.Monitor = true
	}

	if f.Changed("open-browser") {
		cfg.Monitor = true
	}

	if noFlush, _ := f.GetBool("no-flush-on-exit"); noFlush {
		cfg.FlushOnExit = false
	}

	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})

	return slog.New(handler).With("module", "vmsim"), nil
}

// openSwap opens the swap file of the run, or formats an in-memory one. The
// returned function releases the file.
func openSwap(cfg config.Config) (*swap.Loader, func() error, error) {
	if cfg.SwapPath == "" {
		store := swap.NewMemStore()

		err := swap.Format(store, cfg.NumPages(), cfg.PageSize)
		if err != nil {
			return nil, nil, err
		}

		loader, err := swap.Open(store)

		return loader, func() error { return nil }, err
	}

	file, err := os.OpenFile(cfg.SwapPath, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}

	loader, err := swap.Open(file)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("%s: %w", cfg.SwapPath, err)
	}

	return loader, file.Close, nil
}

func run(cmd *cobra.Command, cfg config.Config) (err error) {
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	loader, closeSwap, err := openSwap(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeSwap(); err == nil {
			err = closeErr
		}
	}()

	replacer, err := replacement.NewReplacer(cfg.Policy, cfg.Seed)
	if err != nil {
		return err
	}

	m, err := mmu.MakeBuilder().
		WithAddressSpaceSize(cfg.AddressSpaceSize).
		WithPageSize(cfg.PageSize).
		WithFrameCount(cfg.FrameCount).
		WithPhysicalMemorySize(cfg.PhysicalMemorySize).
		WithLoader(loader).
		WithReplacer(replacer).
		WithLogger(logger).
		Build("MMU")
	if err != nil {
		return err
	}

	if cfg.RecordPath != "" {
		recorder, err := datarecording.Open(cfg.RecordPath)
		if err != nil {
			return err
		}
		defer recorder.Close()

		tracer := trace.NewDBTracer(recorder)
		m.AcceptHook(tracer)

		logger.Info("recording events", "session", tracer.Session())
	}

	runner := script.NewRunner(m, cmd.OutOrStdout()).WithLogger(logger)

	if cfg.Monitor {
		stop, err := startMonitor(cmd, cfg, m, runner, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	in, err := openInput(cmd)
	if err != nil {
		return err
	}
	defer in.Close()

	err = runner.Run(in)
	if err != nil {
		return err
	}

	if cfg.FlushOnExit {
		err = m.FlushAll()
		if err != nil {
			return err
		}
	}

	m.Stats().Print(cmd.OutOrStdout())

	return nil
}

func startMonitor(
	cmd *cobra.Command,
	cfg config.Config,
	m *mmu.Comp,
	runner *script.Runner,
	logger *slog.Logger,
) (func(), error) {
	monitor := monitoring.NewMonitor().
		WithLogger(logger).
		WithPortNumber(cfg.MonitorPort)
	monitor.RegisterMMU(m)

	url, err := monitor.StartServer()
	if err != nil {
		return nil, err
	}

	bar := monitor.CreateProgressBar("commands", 0)
	runner.WithProgress(bar)

	if openBrowser, _ := cmd.Flags().GetBool("open-browser"); openBrowser {
		if err := monitoring.OpenBrowser(url); err != nil {
			logger.Warn("cannot open browser", "url", url, "error", err)
		}
	}

	return func() {
		monitor.CompleteProgressBar(bar)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := monitor.StopServer(ctx); err != nil {
			logger.Warn("monitor did not stop cleanly", "error", err)
		}
	}, nil
}

func openInput(cmd *cobra.Command) (io.ReadCloser, error) {
	path, _ := cmd.Flags().GetString("input")
	if path == "" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}

	return os.Open(path)
}
