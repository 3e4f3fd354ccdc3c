package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/origolabs/origo/internal/quality"
	"github.com/spf13/cobra"
)

func newQualityCmd(a *app) *cobra.Command {
	var (
		format      string
		payloadPath string
		list        bool
	)

	cmd := &cobra.Command{
		Use:   "quality [check...]",
		Short: "Run quality checks on a payload",
		Long: `Run the named quality checks, or every registered check when none are
named, on the payload given with --payload.

Checks marked "not evaluated" always pass and only describe intent.

Examples:
  origo quality --payload payload.json
  origo quality security linting --payload payload.json
  origo quality --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			svc, err := a.services()
			if err != nil {
				return err
			}

			if list {
				names := svc.Quality.Names()
				return render(cmd.OutOrStdout(), format, names, func(w io.Writer) {
					for _, name := range names {
						fmt.Fprintln(w, name)
					}
				})
			}

			if payloadPath == "" {
				return fmt.Errorf("--payload is required")
			}
			for _, name := range args {
				if !svc.Quality.Has(name) {
					return fmt.Errorf("unknown quality check %q (available: %s)",
						name, strings.Join(svc.Quality.Names(), ", "))
				}
			}

			p, err := readPayload(cmd, payloadPath)
			if err != nil {
				return err
			}
			reports := svc.RunChecks(p, args...)

			err = render(cmd.OutOrStdout(), format, reports, func(w io.Writer) {
				writeReports(w, reports)
			})
			if err != nil {
				return err
			}
			for _, r := range reports {
				if !r.OK {
					return errFailed
				}
			}

			return nil
		},
	}
	addFormatFlag(cmd, &format)
	cmd.Flags().StringVarP(&payloadPath, "payload", "p", "", "Payload JSON file (- for stdin)")
	cmd.Flags().BoolVar(&list, "list", false, "List the available checks")

	return cmd
}

func writeReports(w io.Writer, reports []quality.Report) {
	for _, r := range reports {
		line := fmt.Sprintf("%-22s %s", title(r.Name), status(r.OK))
		if !r.Evaluated {
			line += " (not evaluated)"
		}
		fmt.Fprintln(w, line)
		writeIssues(w, "    ", r.Issues)

		keys := make([]string, 0, len(r.Summary))
		for k := range r.Summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, nested := r.Summary[k].(map[string]interface{}); nested {
				continue
			}
			fmt.Fprintf(w, "    %s: %v\n", title(k), r.Summary[k])
		}
	}
}
