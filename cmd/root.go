package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"kvbench/internal/banner"
	"kvbench/internal/cli"
	"kvbench/internal/logging"
	"kvbench/internal/report"
	"kvbench/internal/runner"
	"kvbench/internal/store"
	"kvbench/internal/workload"
)

var (
	cfgFile  string
	exitCode int
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "kvbench",
	Short: "kvbench - key-value store benchmark",
	Long: `
kvbench drives parallel workers that issue batches of reads and writes
against a key-value store and reports status codes and latency buckets.

Runs are bounded by an iteration count (--iterations) or by wall-clock
time (--time). Stores: memory (default, simulated), aerospike, redis,
badger and bolt.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runBenchmark,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a benchmark (default command)",
	RunE:  runBenchmark,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the validated configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return report.ConfigYAML(cmd.OutOrStdout(), cfg)
	},
}

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "List the available store backends",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range store.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return exitCode
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(runCmd, configCmd, storesCmd, historyCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.kvbench.yaml)")

	// workload
	pf.IntP("operations", "O", 100, "Operations per iteration per worker")
	pf.IntP("iterations", "I", 1, "Iterations per worker")
	pf.IntP("processes", "N", runner.DefaultProcesses(), "Number of workers")
	pf.StringP("time", "T", "", "Run for a wall-clock time: seconds or <int>[smh]; overrides --iterations")
	pf.Float64P("reads", "R", 1, "Read weight of the read:write ratio")
	pf.Float64P("writes", "W", 1, "Write weight of the read:write ratio")
	pf.IntP("keyrange", "K", 1000, "Keys are drawn from [1, keyrange]")
	pf.String("datatype", string(workload.Integer), "Value type: INTEGER, STRING or BYTES")
	pf.String("datasize", "8", "Value size for STRING and BYTES, e.g. 512, 1k, 4KiB")
	pf.Int("concurrency", 0, "Max in-flight operations per worker (0: whole batch)")
	pf.Float64("target", 0, "Pace each worker to this many ops/s (0: unlimited)")
	pf.Int64("seed", 0, "PRNG seed (0: seeded from the clock)")

	// store
	pf.String("store", "memory", "Store backend: "+strings.Join(store.Names(), ", "))
	pf.String("host", "127.0.0.1", "Store host")
	pf.IntP("port", "p", 3000, "Store port")
	pf.StringP("timeout", "t", "10", "Operation timeout in milliseconds")
	pf.StringP("namespace", "n", "test", "Namespace (aerospike namespace; redis DB number when numeric)")
	pf.StringP("set", "s", "demo", "Set name (aerospike set, key prefix, bolt bucket)")
	pf.StringP("user", "U", "", "Store user")
	pf.StringP("password", "P", "", "Store password")
	pf.String("path", "", "Data directory for badger (in-memory when empty) or file for bolt")
	pf.String("profile", "", "Latency profile of the memory store: fast, medium, slow, spike, error")

	// output
	pf.BoolP("json", "j", false, "Print the summary as one JSON line")
	pf.Bool("silent", false, "Do not print per-iteration results")
	pf.Bool("summary", true, "Print the summary at the end of the run")
	pf.Bool("chart-memory", false, "Chart the memory used before printing the summary")
	pf.Bool("tui", false, "Show the live dashboard")
	pf.Bool("history", false, "Save the run to the history file")
	pf.String("history-file", "", "History file (default is $HOME/.kvbench/history.db)")
	pf.StringP("out", "o", "", "Export per-operation results to <out>.csv and <out>.json")
	pf.String("metrics-addr", "", "Serve /metrics and /status on this address during the run")
	pf.StringP("log-level", "l", "info", "Log level: debug, info, warn, error")

	bindFlags(pf)
}

// flagKeys maps flag names to the configuration keys written by "kvbench
// config", so a dumped file can be fed back with --config.
var flagKeys = map[string]string{
	"operations":   "operations",
	"iterations":   "iterations",
	"processes":    "processes",
	"time":         "time",
	"reads":        "reads",
	"writes":       "writes",
	"keyrange":     "keyrange",
	"datatype":     "datatype",
	"datasize":     "datasize",
	"concurrency":  "concurrency",
	"target":       "target",
	"seed":         "seed",
	"store":        "store",
	"host":         "store_options.host",
	"port":         "store_options.port",
	"timeout":      "store_options.timeout",
	"namespace":    "store_options.namespace",
	"set":          "store_options.set",
	"user":         "store_options.user",
	"password":     "store_options.password",
	"path":         "store_options.path",
	"profile":      "store_options.profile",
	"json":         "json",
	"silent":       "silent",
	"summary":      "summary",
	"chart-memory": "chart_memory",
	"tui":          "tui",
	"history":      "history",
	"history-file": "history_file",
	"out":          "out",
	"metrics-addr": "metrics_addr",
	"log-level":    "log_level",
}

func bindFlags(fs *pflag.FlagSet) {
	for flag, key := range flagKeys {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".kvbench")
		}
	}
	viper.SetEnvPrefix("KVBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing || cfgFile != "" {
			fmt.Fprintln(os.Stderr, "Error reading config:", err)
		}
	}
}

func setup(cmd *cobra.Command, args []string) error {
	format := "console"
	if viper.GetBool("json") {
		format = "json"
	}
	logger = logging.NewLogger(logging.Config{
		Level:  viper.GetString("log_level"),
		Format: format,
		Output: "stderr",
	})
	return nil
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode = cli.Start(ctx, cfg, cli.Env{
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
		Log:         logger,
		HistoryPath: viper.GetString("history_file"),
	})
	return nil
}

var digits = regexp.MustCompile(`^\d+$`)

// buildConfig converts the bound flags, config file and environment into a
// run configuration. Validation is left to the caller.
func buildConfig() (runner.Config, error) {
	cfg := runner.DefaultConfig()

	cfg.Operations = viper.GetInt("operations")
	cfg.Iterations = viper.GetInt("iterations")
	cfg.Processes = viper.GetInt("processes")
	cfg.Reads = viper.GetFloat64("reads")
	cfg.Writes = viper.GetFloat64("writes")
	cfg.KeyRange = viper.GetInt("keyrange")
	cfg.Concurrency = viper.GetInt("concurrency")
	cfg.TargetOps = viper.GetFloat64("target")
	cfg.Seed = viper.GetInt64("seed")

	if t := viper.GetString("time"); t != "" {
		d, err := parseTime(t)
		if err != nil {
			return cfg, err
		}
		cfg = cfg.WithDuration(d)
	}

	dt, ok := workload.ParseDataType(viper.GetString("datatype"))
	if !ok {
		logger.Warn("unknown datatype, using INTEGER", zap.String("datatype", viper.GetString("datatype")))
	}
	cfg.DataType = dt

	size, err := units.RAMInBytes(viper.GetString("datasize"))
	if err != nil {
		return cfg, errors.Wrapf(runner.ErrInvalidConfig, "datasize: %v", err)
	}
	cfg.DataSize = int(size)

	timeout, err := parseTimeout(viper.GetString("store_options.timeout"))
	if err != nil {
		return cfg, err
	}

	cfg.Store = viper.GetString("store")
	cfg.StoreOpts = store.Options{
		Host:      viper.GetString("store_options.host"),
		Port:      viper.GetInt("store_options.port"),
		Timeout:   timeout,
		Namespace: viper.GetString("store_options.namespace"),
		Set:       viper.GetString("store_options.set"),
		User:      viper.GetString("store_options.user"),
		Password:  viper.GetString("store_options.password"),
		Path:      viper.GetString("store_options.path"),
		Profile:   viper.GetString("store_options.profile"),
	}

	cfg.JSON = viper.GetBool("json")
	cfg.Silent = viper.GetBool("silent")
	cfg.Summary = viper.GetBool("summary")
	cfg.ChartMemory = viper.GetBool("chart_memory")
	cfg.TUI = viper.GetBool("tui")
	cfg.History = viper.GetBool("history")
	cfg.OutPrefix = viper.GetString("out")
	cfg.MetricsAddr = viper.GetString("metrics_addr")
	cfg.LogLevel = viper.GetString("log_level")
	return cfg, nil
}

// parseTime accepts the command-line form (seconds or <int>[smh]) and the
// duration form written by "kvbench config", e.g. 1m30s.
func parseTime(s string) (time.Duration, error) {
	secs, err := runner.ParseSeconds(s)
	if err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	if d, derr := time.ParseDuration(s); derr == nil && d > 0 {
		return d, nil
	}
	return 0, err
}

// parseTimeout reads bare numbers as milliseconds.
func parseTimeout(s string) (time.Duration, error) {
	if digits.MatchString(s) {
		ms, err := strconv.Atoi(s)
		if err != nil {
			return 0, errors.Wrapf(runner.ErrInvalidConfig, "timeout %q", s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.Wrapf(runner.ErrInvalidConfig, "timeout %q", s)
	}
	return d, nil
}
