package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cordonhq/cordon/internal/mock"
)

var mockOutputDir string

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Write the built-in demo datasets to a directory",
	Long:  `Mock writes the built-in demo resource graph, policy rules, and incident history as YAML files, ready to serve as reference datasets or as a starting point for real ones.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := mock.WriteFiles(mockOutputDir); err != nil {
			return err
		}
		fmt.Printf("Demo datasets written to %s\n", mockOutputDir)
		return nil
	},
}

func init() {
	mockCmd.Flags().StringVarP(&mockOutputDir, "output", "o", "./data", "directory to write the dataset files to")
}
