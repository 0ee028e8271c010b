package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arl/archipelago/scene"
)

var validateCmd = &cobra.Command{
	Use:   "validate SCENE",
	Short: "load a scene, validate every island's mesh, and run one update",
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
		a.Update(0)
		fmt.Printf("scene OK: %d island(s), %d agent(s)\n", len(s.Islands), len(s.Agents))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
