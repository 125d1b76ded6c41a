package cli

import (
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"covidprep/internal/app"
)

type ListCmd struct {
	global *globalFlags
}

func NewListCmd(global *globalFlags) *ListCmd {
	return &ListCmd{global: global}
}

func (c *ListCmd) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the pipelines with their input and output files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.global.loadConfig()
			if err != nil {
				return err
			}
			infos, err := app.Describe(cfg)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "Name", "Input", "Outputs"})
			table.SetAutoWrapText(false)
			table.SetAutoFormatHeaders(false)
			for _, p := range infos {
				outputs := make([]string, len(p.Outputs))
				for i, o := range p.Outputs {
					outputs[i] = filepath.Base(o)
				}
				table.Append([]string{p.ID, p.Name, p.Input, strings.Join(outputs, ", ")})
			}
			table.Render()
			return nil
		},
	}
}
