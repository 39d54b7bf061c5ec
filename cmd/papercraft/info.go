package main

import (
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "List the meshes in one or more files",
	Long:  "Import the files the same way every other command does and print per-mesh counts, sizes and the scene bounds.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	lib, err := newLibrary()
	if err != nil {
		return err
	}
	store, err := loadScene(cmd.Context(), lib, args)
	if err != nil {
		return err
	}
	printScene(cmd.OutOrStdout(), store)
	return nil
}
