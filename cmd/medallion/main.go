package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"medallion-pipeline/internal/alert"
	"medallion-pipeline/internal/artifact"
	"medallion-pipeline/internal/config"
	"medallion-pipeline/internal/eventlog"
	"medallion-pipeline/internal/model"
	"medallion-pipeline/internal/pipeline"
	"medallion-pipeline/internal/source"
	"medallion-pipeline/internal/store"
)

// deps wires the pipeline components from configuration. Each subcommand
// builds its own set so every stage invocation stays independent.
type deps struct {
	cfg      config.Config
	log      zerolog.Logger
	naming   artifact.Naming
	events   *eventlog.Logger
	notifier *alert.Notifier
}

func buildDeps(configFile string, dryRunAlerts bool) (*deps, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Log.Format == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	} else {
		log = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}

	naming := artifact.Naming{Root: cfg.DataRoot}
	events := eventlog.New(naming.LoggingDir(), log)

	var transport alert.Transport = alert.NewSMTPTransport(cfg.SMTP)
	if dryRunAlerts || !cfg.Alert.Enabled {
		transport = &alert.WriterTransport{W: os.Stdout}
	}
	notifier := alert.New(transport, events, log)

	return &deps{
		cfg:      cfg,
		log:      log,
		naming:   naming,
		events:   events,
		notifier: notifier,
	}, nil
}

func (d *deps) bronze() *pipeline.Bronze {
	client := source.NewClient(d.cfg.Source, d.log)
	return pipeline.NewBronze(d.naming, client, d.events, d.log)
}

func (d *deps) silver() *pipeline.Silver {
	return pipeline.NewSilver(d.naming, d.events, d.log)
}

func (d *deps) dq() *pipeline.DQ {
	rules := pipeline.DefaultRules(d.cfg.Rules)
	build := func(report model.DQReport) model.AlertMessage {
		return alert.BuildDQMessage(report, d.cfg.Alert)
	}
	return pipeline.NewDQ(d.naming, rules, d.notifier, build, d.events, d.log)
}

func (d *deps) gold() *pipeline.Gold {
	primary := &store.Writer{Path: d.naming.GoldDBPath()}
	return pipeline.NewGold(d.naming, primary, d.events, d.log)
}

func main() {
	var (
		configFile string
		runID      string
		input      string
		dryRun     bool
	)

	root := &cobra.Command{
		Use:           "medallion",
		Short:         "Layered medallion batch pipeline: bronze, silver, dq, gold",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&runID, "run-id", "", "explicit run id (default: resolve latest input)")
	root.PersistentFlags().StringVar(&input, "input", "", "explicit input artifact path, bypasses discovery")

	rc := func() pipeline.RunContext {
		return pipeline.RunContext{RunID: runID, InputOverride: input}
	}

	bronzeCmd := &cobra.Command{
		Use:   "bronze",
		Short: "Fetch raw records and write the raw batch artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(configFile, false)
			if err != nil {
				return err
			}
			path, err := d.bronze().Run(cmd.Context(), rc())
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}

	silverCmd := &cobra.Command{
		Use:   "silver",
		Short: "Clean, cast and deduplicate the raw batch into the canonical dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(configFile, false)
			if err != nil {
				return err
			}
			dir, err := d.silver().Run(cmd.Context(), rc())
			if err != nil {
				return err
			}
			fmt.Println(dir)
			return nil
		},
	}

	dqCmd := &cobra.Command{
		Use:   "dq",
		Short: "Evaluate data-quality rules and alert on violation",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(configFile, dryRun)
			if err != nil {
				return err
			}
			report, err := d.dq().Run(cmd.Context(), rc())
			if err != nil {
				return err
			}
			if report.Passed {
				fmt.Printf("dq passed (%d rules)\n", len(report.Results))
			} else {
				fmt.Printf("dq failed (%d of %d rules)\n", len(report.FailedRules()), len(report.Results))
			}
			return nil
		},
	}
	dqCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print alerts instead of sending them")

	goldCmd := &cobra.Command{
		Use:   "gold",
		Short: "Aggregate the canonical dataset with storage fallback",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(configFile, false)
			if err != nil {
				return err
			}
			agg, err := d.gold().Run(cmd.Context(), rc())
			if err != nil {
				return err
			}
			fmt.Printf("wrote %d rows (%s)\n", len(agg.Rows), agg.Format)
			return nil
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute bronze, silver, dq and gold sequentially for one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(configFile, false)
			if err != nil {
				return err
			}
			runner := &pipeline.Runner{
				Bronze: d.bronze(),
				Silver: d.silver(),
				DQ:     d.dq(),
				Gold:   d.gold(),
				Log:    d.log,
			}
			id, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}

	root.AddCommand(bronzeCmd, silverCmd, dqCmd, goldCmd, runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
