package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/akmonengine/tendon"
	"github.com/akmonengine/tendon/scene"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	steps      int
	dt         float64
	substeps   int
	iterations int
	workers    int
	configFile string
	probe      int
	plot       bool
	verbose    bool
	savePath   string
)

var (
	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	key   = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Width(14)
	value = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	warn  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "tendon",
		Short:        "articulated rigid body simulation",
		SilenceUsage: true,
	}

	runCmd := &cobra.Command{
		Use:   "run [scene|file.yaml]",
		Short: "run a scene headless",
		Args:  cobra.ExactArgs(1),
		RunE:  runScene,
	}
	runCmd.Flags().IntVar(&steps, "steps", 600, "number of steps")
	runCmd.Flags().Float64Var(&dt, "dt", 1.0/60.0, "timestep")
	runCmd.Flags().IntVar(&substeps, "substeps", tendon.DefaultSubsteps, "substeps per step")
	runCmd.Flags().IntVar(&iterations, "iterations", tendon.DefaultIterations, "position iterations per substep")
	runCmd.Flags().IntVar(&workers, "workers", tendon.DefaultWorkers, "parallel workers")
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().IntVar(&probe, "probe", 0, "index of the probed joint offset")
	runCmd.Flags().BoolVar(&plot, "plot", false, "plot the probed offset")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logs")

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list built-in scenes",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range scene.Names() {
				fmt.Println(name)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the default configuration",
		RunE:  printConfig,
	}
	configCmd.Flags().StringVar(&savePath, "save", "", "write the default configuration to a file")

	rootCmd.AddCommand(runCmd, scenesCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func isSceneFile(arg string) bool {
	ext := strings.ToLower(filepath.Ext(arg))
	return ext == ".yaml" || ext == ".yml"
}

// overrides applies the flags set on the command line.
func overrides(cmd *cobra.Command, cfg *tendon.Config) {
	flags := cmd.Flags()
	if flags.Changed("substeps") {
		cfg.Substeps = substeps
	}
	if flags.Changed("iterations") {
		cfg.Iterations = iterations
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
}

func loadScene(cmd *cobra.Command, arg string, logger *slog.Logger) (*scene.Scene, error) {
	cfg := tendon.DefaultConfig()
	var desc *scene.Description
	if isSceneFile(arg) {
		d, err := scene.Load(arg)
		if err != nil {
			return nil, err
		}
		desc = d
		cfg = d.WorldConfig()
	}
	if configFile != "" {
		c, err := tendon.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	overrides(cmd, &cfg)

	if desc != nil {
		desc.Config = &cfg
		return desc.Build(tendon.WithLogger(logger))
	}
	return scene.New(arg, cfg, tendon.WithLogger(logger))
}

func runScene(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	if steps < 1 {
		return fmt.Errorf("steps %d < 1", steps)
	}

	s, err := loadScene(cmd, args[0], logger)
	if err != nil {
		return err
	}

	var watched *scene.Probe
	if probe >= 0 && probe < len(s.Probes) {
		watched = &s.Probes[probe]
	} else if plot {
		logger.Warn("no such probe", "probe", probe, "probes", len(s.Probes))
	}

	var (
		series       []float64
		maxResidual  float64
		maxContacts  int
		notConverged int
	)
	s.World.AddCallback(func(w *tendon.World, report tendon.StepReport) {
		maxResidual = max(maxResidual, report.Residual)
		maxContacts = max(maxContacts, report.Contacts)
		if !report.Converged {
			notConverged++
		}
		if watched != nil {
			if v, ok := watched.Read(w); ok {
				series = append(series, v)
			}
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	last, err := s.World.Run(ctx, dt, steps)
	elapsed := time.Since(start)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err != nil {
		logger.Info("interrupted", "time", s.World.Time())
	}

	cfg := s.World.Config()
	fmt.Println(title.Render("tendon: " + s.Name))
	row := func(k string, v any) {
		fmt.Println(key.Render(k) + value.Render(fmt.Sprint(v)))
	}
	row("simulated", fmt.Sprintf("%.3fs", s.World.Time()))
	row("wall", elapsed.Round(time.Millisecond))
	row("substeps", cfg.Substeps)
	row("iterations", cfg.Iterations)
	row("workers", cfg.Workers)
	row("islands", last.Islands)
	row("contacts", fmt.Sprintf("%d (max %d)", last.Contacts, maxContacts))
	row("residual", fmt.Sprintf("%.3g (max %.3g)", last.Residual, maxResidual))
	if notConverged > 0 {
		fmt.Println(warn.Render(fmt.Sprintf("%d steps did not converge to %g", notConverged, cfg.Tolerance)))
	}
	for _, p := range s.Probes {
		if v, ok := p.Read(s.World); ok {
			row(p.Label, fmt.Sprintf("%.4f", v))
		}
	}

	if plot && len(series) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(series,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s offset vs step", watched.Label)),
		))
	}
	return nil
}

func printConfig(cmd *cobra.Command, args []string) error {
	cfg := tendon.DefaultConfig()
	if savePath != "" {
		return tendon.SaveConfig(savePath, cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
