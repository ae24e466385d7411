package cli

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newEvaluateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate REQUEST.json",
		Short: "Print the evaluation of a request as JSON without writing a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			req, err := readRequest(args[0])
			if err != nil {
				return err
			}
			svc, err := a.reportService(cmd.Context(), prometheus.NewRegistry())
			if err != nil {
				return err
			}

			eval, err := svc.Evaluate(cmd.Context(), req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(eval)
		},
	}
}
