package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arl/archipelago/scene"
)

var benchTicks int
var benchDt float32

var benchCmd = &cobra.Command{
	Use:   "bench SCENE",
	Short: "run a fixed number of update ticks against a scene and report timing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scene.Load(args[0])
		if err != nil {
			return fmt.Errorf("loading scene: %w", err)
		}
		a, err := s.Build()
		if err != nil {
			return fmt.Errorf("building archipelago: %w", err)
		}

		start := time.Now()
		for i := 0; i < benchTicks; i++ {
			a.Update(benchDt)
		}
		elapsed := time.Since(start)

		fmt.Printf("%d ticks in %s (%.3f ms/tick)\n", benchTicks, elapsed, float64(elapsed.Microseconds())/1000/float64(benchTicks))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntVar(&benchTicks, "ticks", 100, "number of update ticks to run")
	benchCmd.Flags().Float32Var(&benchDt, "dt", 1.0/60.0, "delta time per tick, seconds")
}
