package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSchemesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "schemes",
		Short: "Print the loaded manufacturer marking schemes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := ctx.ensureSchemes()
			if err != nil {
				return err
			}

			headers := []string{"Manufacturer", "Family", "Date Formats", "Release", "Required", "Suspicious"}
			var rows [][]string
			for _, m := range table.Manufacturers {
				for _, f := range m.Families {
					var formats []string
					for _, df := range f.AcceptedDateFormats {
						formats = append(formats, string(df))
					}
					var suspicious []string
					for _, sp := range f.Suspicious {
						suspicious = append(suspicious, string(sp.Format))
					}
					release := ""
					if f.ReleaseYear > 0 {
						release = fmt.Sprintf("%d", f.ReleaseYear)
					}
					required := ""
					if f.DateCodeRequired {
						required = "yes"
					}
					rows = append(rows, []string{
						m.Name,
						f.Pattern,
						strings.Join(formats, " "),
						release,
						required,
						strings.Join(suspicious, " "),
					})
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}))
			return nil
		},
	}
}
