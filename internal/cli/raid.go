package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/Tripleo/internal/workflows"
)

// NewRaidCmd создаёт группу команд RAID.
func NewRaidCmd(clientsFn ClientsFn, _ OutputFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raid",
		Short: "Manage RAID configuration of nodes",
	}

	cmd.AddCommand(newRaidCreateCmd(clientsFn))

	return cmd
}

func newRaidCreateCmd(clientsFn ClientsFn) *cobra.Command {
	var nodes []string

	cmd := &cobra.Command{
		Use:   "create --node NODE... CONFIGURATION",
		Short: "Create RAID on given nodes",
		Long: "Create RAID on given nodes.\n\n" +
			"CONFIGURATION is a JSON or YAML file, or an inline JSON/YAML document,\n" +
			"with a logical_disks list.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := LoadRaidConfiguration(args[0])
			if err != nil {
				return err
			}

			return withClients(clientsFn, func(c *Clients) error {
				return c.Workflows.CreateRaidConfiguration(cmd.Context(), workflows.RaidInput{
					NodeUUIDs:     nodes,
					Configuration: conf,
				})
			})
		},
	}

	cmd.Flags().StringArrayVar(&nodes, "node", nil, "Node to create RAID on (can be repeated)")
	cmd.MarkFlagRequired("node")

	return cmd
}
