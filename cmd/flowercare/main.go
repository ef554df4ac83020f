// Command flowercare is a CLI for Xiaomi Flower Care soil sensors:
// discover devices, read live measurements, dump stored history, and
// publish readings to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/plantmon/flowercare/internal/ble"
	"github.com/plantmon/flowercare/internal/config"
	"github.com/plantmon/flowercare/internal/export"
	"github.com/plantmon/flowercare/internal/flowercare"
	"github.com/plantmon/flowercare/internal/monitor"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: flowercare [-config path] <command> [flags]

Commands:
  scan              discover nearby Flower Care devices
  info              read device name, firmware and battery
  read              read a live sensor measurement
  history           dump stored historical entries
  blink             blink the device LED
  monitor           poll devices and publish readings to MQTT

Common flags:
  -config path      config file (default %s)
  -addr address     device address (info/read/history/blink)
`, config.DefaultConfigPath())
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	adapter := ble.NewHardwareAdapter()
	if err := adapter.Enable(); err != nil {
		logger.Error("enable BLE adapter", "error", err)
		os.Exit(1)
	}

	app := &app{cfg: cfg, adapter: adapter, log: logger}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if err := app.run(ctx, cmd, args); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "flowercare %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultConfigPath()
		if _, err := os.Stat(path); err != nil {
			cfg := config.Default()
			return cfg, cfg.Validate()
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

type app struct {
	cfg     *config.Config
	adapter ble.Adapter
	log     *slog.Logger
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "scan":
		return a.scan(ctx, args)
	case "info":
		return a.info(ctx, args)
	case "read":
		return a.read(ctx, args)
	case "history":
		return a.history(ctx, args)
	case "blink":
		return a.blink(ctx, args)
	case "monitor":
		return a.monitor(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) sessionOptions() flowercare.SessionOptions {
	return flowercare.SessionOptions{
		ConnectTimeout: a.cfg.Device.ConnectTimeout.Std(),
		SettleDelay:    a.cfg.Device.SettleDelay.Std(),
		Logger:         a.log,
	}
}

// findDevice resolves the target device: the -addr flag, the configured
// address, or the first device a scan turns up.
func (a *app) findDevice(ctx context.Context, addr string) (flowercare.DeviceHandle, error) {
	scanner := flowercare.NewScanner(a.adapter, a.log)
	timeout := a.cfg.Scan.Timeout.Std()

	if addr == "" {
		addr = a.cfg.Device.Address
	}
	if addr != "" {
		handle, found, err := scanner.FindByAddress(ctx, addr, timeout)
		if err != nil {
			return flowercare.DeviceHandle{}, err
		}
		if !found {
			return flowercare.DeviceHandle{}, fmt.Errorf("device %s not found within %s", addr, timeout)
		}
		return handle, nil
	}

	handles, err := scanner.Scan(ctx, timeout)
	if err != nil {
		return flowercare.DeviceHandle{}, err
	}
	if len(handles) == 0 {
		return flowercare.DeviceHandle{}, fmt.Errorf("no Flower Care devices found within %s", timeout)
	}
	return handles[0], nil
}

func addrFlag(fs *flag.FlagSet) *string {
	return fs.String("addr", "", "device address")
}

func (a *app) scan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	timeout := fs.Duration("timeout", a.cfg.Scan.Timeout.Std(), "scan duration")
	fs.Parse(args)

	fmt.Printf("Scanning for %s...\n", *timeout)
	scanner := flowercare.NewScanner(a.adapter, a.log)
	handles, err := scanner.Scan(ctx, *timeout)
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		fmt.Println("No Flower Care devices found")
		return nil
	}
	for _, h := range handles {
		name := h.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%s  %s  RSSI %d dBm\n", h.Address, name, h.RSSI)
	}
	fmt.Printf("Found %d device(s)\n", len(handles))
	return nil
}

// withDevice finds the device and runs op inside a retried, bracketed
// session.
func (a *app) withDevice(ctx context.Context, addr string, op func(*flowercare.Session) error) error {
	handle, err := a.findDevice(ctx, addr)
	if err != nil {
		return err
	}
	sess := flowercare.NewSession(a.adapter, handle, a.sessionOptions())
	return flowercare.Retry(ctx, a.cfg.Device.RetryAttempts, a.cfg.Device.RetryBackoff.Std(), func() error {
		return sess.With(ctx, op)
	})
}

func (a *app) info(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	addr := addrFlag(fs)
	fs.Parse(args)

	return a.withDevice(ctx, *addr, func(s *flowercare.Session) error {
		info, err := s.ReadDeviceInfo(ctx)
		if err != nil {
			return err
		}
		fmt.Println(info)
		return nil
	})
}

func (a *app) read(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	addr := addrFlag(fs)
	fs.Parse(args)

	return a.withDevice(ctx, *addr, func(s *flowercare.Session) error {
		reading, err := s.ReadLiveData(ctx)
		if err != nil {
			return err
		}
		fmt.Println(reading)
		if !reading.InPhysicalRange() {
			fmt.Println("warning: reading is outside the sensor's physical range")
		}
		return nil
	})
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	addr := addrFlag(fs)
	csvPath := fs.String("csv", "", "write entries to a CSV file")
	jsonPath := fs.String("json", "", "write entries to a JSON file")
	fs.Parse(args)

	return a.withDevice(ctx, *addr, func(s *flowercare.Session) error {
		fmt.Println("Reading history, this takes a while...")
		entries, err := s.ReadHistory(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No historical data available")
			return nil
		}

		fmt.Printf("Found %s historical entries\n", humanize.Comma(int64(len(entries))))
		tail := entries
		if len(tail) > 5 {
			tail = tail[len(tail)-5:]
		}
		for _, e := range tail {
			fmt.Printf("  %s (%s)\n", e, humanize.Time(e.Timestamp))
		}

		if *csvPath != "" {
			if err := writeFile(*csvPath, entries, export.WriteCSV); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", *csvPath)
		}
		if *jsonPath != "" {
			if err := writeFile(*jsonPath, entries, export.WriteJSON); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", *jsonPath)
		}
		return nil
	})
}

func writeFile(path string, entries []flowercare.HistoricalEntry, write func(w io.Writer, entries []flowercare.HistoricalEntry) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *app) blink(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("blink", flag.ExitOnError)
	addr := addrFlag(fs)
	fs.Parse(args)

	return a.withDevice(ctx, *addr, func(s *flowercare.Session) error {
		if err := s.BlinkLED(ctx); err != nil {
			return err
		}
		fmt.Println("Blinked")
		return nil
	})
}

func (a *app) monitor(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	broker := fs.String("broker", a.cfg.Monitor.Broker, "MQTT broker URL")
	interval := fs.Duration("interval", a.cfg.Monitor.Interval.Std(), "poll interval")
	fs.Parse(args)

	if *broker == "" {
		return errors.New("no MQTT broker configured (set monitor.broker or -broker)")
	}

	scanner := flowercare.NewScanner(a.adapter, a.log)
	handles, err := scanner.Scan(ctx, a.cfg.Scan.Timeout.Std())
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		return errors.New("no Flower Care devices found")
	}
	fmt.Printf("Monitoring %d device(s) every %s\n", len(handles), *interval)

	pub, err := monitor.NewMQTTPublisher(*broker, a.cfg.Monitor.ClientID)
	if err != nil {
		return err
	}
	defer pub.Close()

	m := monitor.New(a.adapter, pub, monitor.Options{
		Interval:      *interval,
		TopicPrefix:   a.cfg.Monitor.TopicPrefix,
		RetryAttempts: a.cfg.Device.RetryAttempts,
		RetryBackoff:  a.cfg.Device.RetryBackoff.Std(),
		Session:       a.sessionOptions(),
		Logger:        a.log,
	})
	m.Run(ctx, handles)
	return nil
}
