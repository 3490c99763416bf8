package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTidyCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "tidy",
		Short: "Remove expired locks, expired focuses and orphaned temp files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			h, err := c.openHub()
			if err != nil {
				return err
			}
			defer h.Close()

			report := h.Tidy()
			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, report)
			}
			p := newPrinter(cmd.OutOrStdout())
			p.success("Tidied:", fmt.Sprintf("%d temp files, %d expired locks, %d expired focuses",
				report.TempFiles, report.ExpiredLocks, report.ExpiredFocus))
			return nil
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}
