package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hardsub/internal/deps"
	"hardsub/internal/preflight"
	"hardsub/internal/services"
)

type doctorReport struct {
	Dependencies []deps.Status      `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
	Healthy      bool               `json:"healthy"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories and OCR language data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := doctorReport{
				Dependencies: preflight.CheckSystemDeps(cfg),
				Checks:       preflight.RunAll(cmd.Context(), cfg),
			}
			missing := preflight.MissingRequired(report.Dependencies)
			failed := preflight.Failed(report.Checks)
			report.Healthy = len(missing) == 0 && len(failed) == 0

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), doctorTable(report))
			}
			if report.Healthy {
				return nil
			}
			problems := append([]string{}, missing...)
			for _, r := range failed {
				problems = append(problems, r.Name)
			}
			return services.Wrap(services.ErrExternalTool, "doctor", "", "failed: "+strings.Join(problems, ", "), nil)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func doctorTable(report doctorReport) string {
	rows := make([][]string, 0, len(report.Dependencies)+len(report.Checks))
	for _, dep := range report.Dependencies {
		status := "ok"
		detail := dep.Command
		if !dep.Available {
			status = "missing"
			if dep.Optional {
				status = "optional"
			}
			detail = dep.Detail
		}
		rows = append(rows, []string{dep.Name, status, detail, dep.Description})
	}
	for _, check := range report.Checks {
		rows = append(rows, []string{check.Name, passLabel(check.Passed), check.Detail, ""})
	}
	return renderTable([]string{"Check", "Status", "Detail", "Purpose"}, rows, nil)
}

func passLabel(passed bool) string {
	if passed {
		return "ok"
	}
	return "failed"
}
