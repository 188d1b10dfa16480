// Command alarm-clock runs a 24-hour alarm clock on a keypad, a multiplexed
// 7-segment display and four indicator lamps, publishing events to MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/sweeney/alarm-clock/internal/config"
	"github.com/sweeney/alarm-clock/internal/gpio"
	"github.com/sweeney/alarm-clock/internal/keypad"
	"github.com/sweeney/alarm-clock/internal/logic"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "alarm-clock",
		Short:   "Keypad alarm clock with MQTT events",
		Version: version,
	}
	root.PersistentFlags().String("config", "", "path to "+config.FileName+" (empty = built-in defaults)")

	root.AddCommand(
		runCmd(),
		scanCmd(),
		initCmd(),
	)
	return root
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the clock until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	cmd.Flags().String("broker", "", "override mqtt.broker (\"off\" disables publishing)")
	cmd.Flags().String("http", "", "override http.addr (\"off\" disables the status server)")
	cmd.Flags().Duration("heartbeat", 0, "override timing.heartbeat_s, whole seconds (0 disables)")
	return cmd
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Print the next key press and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			board, err := gpio.NewRealBoard(cfg.GPIO.Chip, cfg.Pins())
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer board.Close()

			scanner := keypad.NewScanner(board, cfg.KeyMap(), cfg.Settle(), clockwork.NewRealClock())
			key, err := scanKey(signalContext(), scanner, cfg.Poll())
			if err != nil {
				return err
			}
			fmt.Printf("key: %s\n", key)
			return nil
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create " + config.FileName + " in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			path, err := config.InitFile(dir)
			if err != nil {
				return err
			}
			fmt.Printf("Created %s\n", path)
			return nil
		},
	}
}

// loadConfig reads --config and applies the run flag overrides, if present.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("broker") {
		b, _ := flags.GetString("broker")
		if b == "off" {
			b = ""
		}
		cfg.MQTT.Broker = b
	}
	if flags.Changed("http") {
		a, _ := flags.GetString("http")
		if a == "off" {
			a = ""
		}
		cfg.HTTP.Addr = a
	}
	if flags.Changed("heartbeat") {
		d, _ := flags.GetDuration("heartbeat")
		if d < 0 || d%time.Second != 0 {
			return nil, fmt.Errorf("--heartbeat %v: must be zero or a whole number of seconds", d)
		}
		cfg.Timing.HeartbeatS = int(d / time.Second)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// scanKey polls until a key is pressed, then waits for it to be released.
func scanKey(ctx context.Context, scanner *keypad.Scanner, poll time.Duration) (logic.Key, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		key, err := scanner.Scan()
		if err != nil {
			return logic.NoKey, err
		}
		if key != logic.NoKey {
			return key, scanner.WaitForRelease(ctx)
		}
		select {
		case <-ctx.Done():
			return logic.NoKey, ctx.Err()
		case <-ticker.C:
		}
	}
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()
	return ctx
}
