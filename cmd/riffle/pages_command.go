package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"riffle/internal/ipc"
)

func newPagesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pages",
		Short: "List the current archive's pages and their load states",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Pages()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Pages)
				}

				current := 0
				if status, err := client.Status(); err == nil {
					current, _ = strconv.Atoi(status.Env["RIFFLE_PAGE_NUMBER"])
				}

				out := cmd.OutOrStdout()
				if len(resp.Pages) == 0 {
					fmt.Fprintln(out, "Archive has no pages")
					return nil
				}

				rows := make([][]string, len(resp.Pages))
				for i, page := range resp.Pages {
					marker := ""
					if i+1 == current {
						marker = "*"
					}
					rows[i] = []string{marker, strconv.Itoa(i + 1), page.Name, page.State}
				}
				fmt.Fprintln(out, renderTable(
					[]string{"", "#", "Page", "State"}, rows,
					alignLeft, alignRight, alignLeft, alignLeft))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the page list as JSON")
	return cmd
}
