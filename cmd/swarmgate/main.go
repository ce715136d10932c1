package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	swarmgate "github.com/swarmgate/swarmgate-go"
	"github.com/swarmgate/swarmgate-go/config"
	"github.com/swarmgate/swarmgate-go/health"
	"github.com/swarmgate/swarmgate-go/monitor"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "swarmgate",
		Short: "Interact with a Swarmgate gateway",
		Long: `Swarmgate is a diagnostic CLI for the Swarmgate agent-compute platform.
It sends commands over the gateway's command/event connection and tails
server-pushed events.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
	}

	// Global flags
	var (
		configPath string
		host       string
		port       int
		apiKey     string
		timeout    time.Duration
		verbose    bool
	)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "Gateway host (overrides config)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "Gateway port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-command timeout (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	loadConfig := func(cmd *cobra.Command) (config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, err
		}
		if cmd.Flags().Changed("host") {
			cfg.Host = host
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		if cmd.Flags().Changed("api-key") {
			cfg.APIKey = apiKey
		}
		if cmd.Flags().Changed("timeout") {
			cfg.DefaultTimeout = config.Duration(timeout)
		}
		return cfg, nil
	}

	newClient := func(cmd *cobra.Command) (*swarmgate.Client, error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return swarmgate.NewClient(cfg, swarmgate.WithLogger(logger))
	}

	// Ping command
	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Check gateway reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := client.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer client.Close()

			start := time.Now()
			if err := client.Ping(ctx); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
			fmt.Printf("pong (%v)\n", time.Since(start).Truncate(time.Microsecond))
			return nil
		},
	}

	// Exec command
	execCmd := &cobra.Command{
		Use:   "exec <command> [args...]",
		Short: "Execute a gateway command",
		Long: `Execute sends a raw command with positional arguments. Each argument is
parsed as JSON; arguments that do not parse are sent as plain strings.

  swarmgate exec get_agent ag-1
  swarmgate exec store_object runs/7 '{"outcome":"ok"}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := client.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer client.Close()

			result, err := client.Execute(ctx, args[0], parseArgs(args[1:])...)
			if err != nil {
				return fmt.Errorf("command failed: %w", err)
			}
			printResult(result)
			return nil
		},
	}

	// Events command
	eventsCmd := &cobra.Command{
		Use:   "events <type...>",
		Short: "Tail gateway events to stdout",
		Long:  "Subscribe to the given event types and print each event as a JSON line until interrupted.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Handle signals
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				cancel()
			}()

			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := client.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer client.Close()

			for _, eventType := range args {
				eventType := eventType
				client.On(eventType, func(data json.RawMessage) {
					line, err := json.Marshal(map[string]any{
						"event": eventType,
						"data":  data,
						"time":  time.Now().Format(time.RFC3339),
					})
					if err != nil {
						return
					}
					fmt.Println(string(line))
				})
			}

			fmt.Fprintf(os.Stderr, "Tailing %s... Press Ctrl+C to stop\n", strings.Join(args, ", "))
			<-ctx.Done()
			return nil
		},
	}

	// Stats command
	var watch bool
	var interval int
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show bridge activity counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				cancel()
			}()

			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := client.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer client.Close()

			watcher := monitor.NewStatsWatcher(client, time.Duration(interval)*time.Second, printSample)
			if !watch {
				printSample(watcher.Snapshot())
				return nil
			}

			fmt.Fprintln(os.Stderr, "Watching bridge counters... Press Ctrl+C to stop")
			if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	statsCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep sampling until interrupted")
	statsCmd.Flags().IntVarP(&interval, "interval", "i", 2, "Sampling interval in seconds")

	// Health command
	var backlogLimit int
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Run gateway health checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := client.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer client.Close()

			registry := health.NewRegistry()
			registry.Register(health.NewGatewayChecker(client, time.Second))
			registry.Register(health.NewBridgeChecker(client, backlogLimit))

			overall := registry.Check(ctx)
			printHealth(overall)

			if overall.Status == health.StatusUnhealthy {
				return fmt.Errorf("overall status: %s", overall.Status)
			}
			return nil
		},
	}
	healthCmd.Flags().IntVar(&backlogLimit, "backlog-limit", 100, "Pending requests considered degraded")

	// Add all commands
	rootCmd.AddCommand(pingCmd, execCmd, eventsCmd, statsCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// parseArgs converts CLI arguments into command args: JSON when it parses,
// plain string otherwise.
func parseArgs(raw []string) []any {
	args := make([]any, 0, len(raw))
	for _, s := range raw {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			args = append(args, s)
			continue
		}
		args = append(args, v)
	}
	return args
}

// Output formatting functions

func printResult(result json.RawMessage) {
	if len(result) == 0 {
		fmt.Println("null")
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		fmt.Println(string(result))
		return
	}
	fmt.Println(buf.String())
}

func printSample(s monitor.Sample) {
	fmt.Printf("%s state=%s pending=%d requests=%d responses=%d timeouts=%d late=%d events=%d panics=%d malformed=%d",
		s.Timestamp.Format("15:04:05"),
		s.StateName,
		s.Pending,
		s.Stats.Requests,
		s.Stats.Responses,
		s.Stats.Timeouts,
		s.Stats.LateResponses,
		s.Stats.Events,
		s.Stats.HandlerPanics,
		s.Stats.MalformedFrames,
	)
	if s.Interval > 0 {
		fmt.Printf(" req/s=%.1f ev/s=%.1f", s.RequestRate(), s.EventRate())
	}
	fmt.Println()
}

func printHealth(overall health.OverallHealth) {
	fmt.Printf("Overall: %s (took %v)\n", overall.Status, overall.Duration.Truncate(time.Millisecond))
	fmt.Println(strings.Repeat("-", 60))
	for name, check := range overall.Checks {
		fmt.Printf("%-10s %-10s %s\n", name, check.Status, check.Message)
		if check.Error != "" {
			fmt.Printf("%-10s %-10s error: %s\n", "", "", check.Error)
		}
	}
}
