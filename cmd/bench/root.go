package bench

import (
	"fmt"

	"github.com/ValentinKolb/xslock/cmd/util"
	"github.com/ValentinKolb/xslock/lib/lockmgr"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// BenchCmd represents the bench command
	BenchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Let exclusive and shared workers compete for a lock",
		Long: `Runs exclusive and shared workers against one key and checks the guarantees of the
lock: no exclusive holder may overlap with any other holder, shared holders should
overlap. Reports wait times, the fairness between workers and optionally writes the
results as CSV and the lock metrics in the Prometheus text format.`,
		Args:    cobra.NoArgs,
		PreRunE: processBenchConfig,
		RunE:    run,
	}
	benchScenario = DefaultScenario()
)

func init() {
	cobra.OnInitialize(util.InitConfig)
	util.SetupStoreFlags(BenchCmd)

	d := DefaultScenario()

	key := "key"
	BenchCmd.Flags().String(key, d.Key, util.WrapString("The key the workers compete for (the prefix is added)"))
	key = "exclusive-workers"
	BenchCmd.Flags().Int(key, d.ExclusiveWorkers, util.WrapString("Number of workers taking exclusive locks"))
	key = "exclusive-rounds"
	BenchCmd.Flags().Int(key, d.ExclusiveRounds, util.WrapString("Locks taken by every exclusive worker"))
	key = "exclusive-hold"
	BenchCmd.Flags().Duration(key, d.ExclusiveHold, util.WrapString("How long an exclusive lock is held"))
	key = "exclusive-pause"
	BenchCmd.Flags().Duration(key, d.ExclusivePause, util.WrapString("Pause of an exclusive worker between two locks"))
	key = "shared-workers"
	BenchCmd.Flags().Int(key, d.SharedWorkers, util.WrapString("Number of workers taking shared locks"))
	key = "shared-rounds"
	BenchCmd.Flags().Int(key, d.SharedRounds, util.WrapString("Locks taken by every shared worker"))
	key = "shared-hold"
	BenchCmd.Flags().Duration(key, d.SharedHold, util.WrapString("How long a shared lock is held"))
	key = "shared-pause"
	BenchCmd.Flags().Duration(key, d.SharedPause, util.WrapString("Pause of a shared worker between two locks"))
	key = "timeout"
	BenchCmd.Flags().Duration(key, lockmgr.DefaultTimeout, util.WrapString("How long a worker waits for a lock"))
	key = "expire"
	BenchCmd.Flags().Duration(key, lockmgr.DefaultExpire, util.WrapString("Lease of every lock (whole seconds)"))
	key = "retry-interval"
	BenchCmd.Flags().Duration(key, lockmgr.DefaultRetryInterval, util.WrapString("Pause between two acquire attempts"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save the results as CSV"))
	key = "metrics"
	BenchCmd.Flags().Bool(key, false, util.WrapString("Print the lock metrics in the Prometheus text format"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	benchScenario = Scenario{
		Key:              viper.GetString("key"),
		ExclusiveWorkers: viper.GetInt("exclusive-workers"),
		ExclusiveRounds:  viper.GetInt("exclusive-rounds"),
		ExclusiveHold:    viper.GetDuration("exclusive-hold"),
		ExclusivePause:   viper.GetDuration("exclusive-pause"),
		SharedWorkers:    viper.GetInt("shared-workers"),
		SharedRounds:     viper.GetInt("shared-rounds"),
		SharedHold:       viper.GetDuration("shared-hold"),
		SharedPause:      viper.GetDuration("shared-pause"),
		Options: []lockmgr.Option{
			lockmgr.WithTimeout(viper.GetDuration("timeout")),
			lockmgr.WithExpire(viper.GetDuration("expire")),
			lockmgr.WithRetryInterval(viper.GetDuration("retry-interval")),
		},
	}
	return util.InitLoggers(viper.GetString("log-level"))
}

func run(cmd *cobra.Command, _ []string) error {
	conf := util.GetStoreConfig()

	s, err := util.NewStore(cmd.Context(), conf)
	if err != nil {
		return err
	}
	defer s.Close()

	factory, err := util.NewFactory(s, conf)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Lock benchmark")
	fmt.Fprintln(out, conf.String())
	fmt.Fprintf(out, "Workers: %d exclusive x %d rounds, %d shared x %d rounds\n\n",
		benchScenario.ExclusiveWorkers, benchScenario.ExclusiveRounds,
		benchScenario.SharedWorkers, benchScenario.SharedRounds)

	// start from a clean key
	if err := s.Delete(cmd.Context(), factory.Key(benchScenario.Key)); err != nil {
		return fmt.Errorf("failed to clear key: %w", err)
	}

	result := benchScenario.Run(cmd.Context(), factory)
	printResult(out, result)

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Fprintf(out, "\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, result, conf); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Fprintln(out, "Export complete")
	}

	if viper.GetBool("metrics") {
		fmt.Fprintln(out)
		metrics.WritePrometheus(out, false)
	}

	cmd.SilenceUsage = true
	if n := len(result.Violations()); n > 0 {
		return fmt.Errorf("%d exclusive holders overlapped with other holders", n)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d lock operations failed, first: %w", len(result.Errors), result.Errors[0])
	}
	return nil
}
