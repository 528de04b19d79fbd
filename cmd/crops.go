package main

import (
	"fmt"

	"github.com/forest-guardian/sentinel-prep/internal/crops"
	"github.com/forest-guardian/sentinel-prep/internal/properties"
	"github.com/spf13/cobra"
)

var cropsOpts struct {
	out  string
	crop string
}

var cropsCmd = &cobra.Command{
	Use:   "crops [DIR]",
	Short: "Keep crop-survey JSON records of one crop",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := properties.RootPath()
		if len(args) == 1 {
			dir = properties.Resolve(args[0])
		}
		sum, err := crops.FilterDir(dir, properties.Resolve(cropsOpts.out), cropsOpts.crop)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("%s filtered, %d skipped, %d failed", pluralize(len(sum.Processed), "file"), len(sum.Skipped), len(sum.Failed))
		send := notifier.Success
		if len(sum.Failed) > 0 {
			send = notifier.Partial
		}
		announce(cmd.Context(), send, "crops", msg)
		return nil
	},
}

func init() {
	cropsCmd.Flags().StringVar(&cropsOpts.out, "out", "ProcessedJSON", "output directory")
	cropsCmd.Flags().StringVar(&cropsOpts.crop, "crop", "ragi", "crop name to keep, case-insensitive substring")
}
