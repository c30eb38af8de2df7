package main

import (
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/warren/pkg/config"
	"github.com/ajitpratap0/warren/pkg/core"
	"github.com/ajitpratap0/warren/pkg/logger"
	"github.com/ajitpratap0/warren/pkg/registry"
	"github.com/ajitpratap0/warren/pkg/spawn"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	root := &cobra.Command{
		Use:   "warren",
		Short: "Warren - Generic resource pooling engine",
		Long: `Warren maintains reusable instances of typed resources keyed by template
identity and name, hands them out on demand, reclaims them when no longer
needed, and periodically trims pools that have grown beyond capacity.`,
	}

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Warren v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// Simulate command drives the engine against the in-memory runtime
	var configFile string
	var duration time.Duration
	var churn int
	var logLevel string

	simCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a pooling workload against the in-memory runtime",
		Long: `Run a synthetic spawn/despawn workload against the in-memory mock runtime.
Bins are registered from the YAML config, instances churn at the configured
rate, and per-bin statistics are printed as JSON when the run finishes.

Example:
  warren simulate --config engine.yaml --duration 30s --churn 200`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(configFile, duration, churn, logLevel)
		},
	}

	simCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to engine configuration YAML file (required)")
	_ = simCmd.MarkFlagRequired("config")
	simCmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "How long to run the workload")
	simCmd.Flags().IntVar(&churn, "churn", 100, "Spawn/despawn operations per second")
	simCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(simCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runSimulation registers the configured bins and churns instances through
// them until the duration elapses, then prints per-bin stats.
func runSimulation(configFile string, duration time.Duration, churn int, logLevel string) error {
	cfg := config.NewEngineConfig("sim")
	if err := config.Load(configFile, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Logging.Level = logLevel

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    encodingOr(cfg.Logging.Encoding, "console"),
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rt := core.NewMockRuntime()
	reg := registry.New(cfg.Name, rt,
		registry.WithCullInterval(cfg.Pooling.CullInterval),
		registry.WithContainer(core.MockContainer(cfg.Pooling.Container)),
	)
	defer func() { _ = reg.Close() }()

	templates := make([]*core.MockTemplate, 0, len(cfg.Bins))
	for _, bc := range cfg.Bins {
		tmpl := &core.MockTemplate{ID_: core.ID(bc.TemplateID), Name_: bc.Template}
		if err := spawn.Register(tmpl, cfg.CapacityFor(bc)); err != nil {
			return err
		}
		templates = append(templates, tmpl)
	}
	if len(templates) == 0 {
		return fmt.Errorf("config defines no bins")
	}

	logger.Info("simulation starting",
		zap.Duration("duration", duration),
		zap.Int("churn", churn),
		zap.Int("bins", len(templates)))

	var held []core.Instance
	deadline := time.Now().Add(duration)
	tick := time.NewTicker(time.Second / time.Duration(max(churn, 1)))
	defer tick.Stop()

	for time.Now().Before(deadline) {
		<-tick.C

		// Bias toward spawning until a working set builds up, then churn.
		if len(held) == 0 || (rand.Intn(2) == 0 && len(held) < churn) {
			tmpl := templates[rand.Intn(len(templates))]
			inst, err := spawn.Spawn(tmpl, core.Placement{
				Position: [3]float64{rand.Float64() * 100, 0, rand.Float64() * 100},
			})
			if err != nil {
				logger.Warn("spawn failed", zap.Error(err))
				continue
			}
			held = append(held, inst)
		} else {
			i := rand.Intn(len(held))
			inst := held[i]
			held = append(held[:i], held[i+1:]...)
			if rand.Intn(10) == 0 {
				spawn.DespawnAfterDelay(inst, 500*time.Millisecond)
			} else {
				spawn.Despawn(inst)
			}
		}
	}

	// Return everything so the final stats show settled pools.
	for _, inst := range held {
		spawn.Despawn(inst)
	}
	reg.CullAll()

	out, err := gojson.MarshalIndent(reg.Stats(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	logger.Info("simulation finished",
		zap.Int("live_instances", rt.LiveCount()),
		zap.Int("destroyed_instances", rt.DestroyedCount()))
	return nil
}

func encodingOr(enc, fallback string) string {
	if enc == "" {
		return fallback
	}
	return enc
}
