package main

import (
	"github.com/spf13/cobra"

	"github.com/brandon/zoho-mail/internal/doctor"
)

func newDoctorCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long:  "Checks environment variables, the token file and server reachability. Needs no credentials.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := doctor.Run(cmd.Context(), a.cfg, a.tokenPath(), a.logger)
			return printJSON(report)
		},
	}
}
