package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tripleo/internal/domain"
	"github.com/shaiso/Tripleo/internal/workflows"
)

// ClientsFn лениво создаёт клиентов после разбора флагов.
type ClientsFn func() (*Clients, error)

// OutputFn создаёт Output после разбора флагов.
type OutputFn func() *Output

// NewOvercloudCmd создаёт группу команд overcloud.
func NewOvercloudCmd(clientsFn ClientsFn, outputFn OutputFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overcloud",
		Short: "Manage overcloud nodes and deployment plans",
	}

	cmd.AddCommand(
		NewNodeCmd(clientsFn, outputFn),
		NewRaidCmd(clientsFn, outputFn),
		NewPlanCmd(clientsFn, outputFn),
	)

	return cmd
}

// withClients создаёт клиентов, выполняет fn и освобождает ресурсы.
func withClients(clientsFn ClientsFn, fn func(*Clients) error) (err error) {
	clients, err := clientsFn()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := clients.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(clients)
}

// selectNodes проверяет, что задан ровно один из способов выбора узлов.
func selectNodes(nodes []string, allManageable bool) error {
	switch {
	case allManageable && len(nodes) > 0:
		return fmt.Errorf("%w: specify either node UUIDs or --all-manageable, not both", workflows.ErrInvalidArgument)
	case !allManageable && len(nodes) == 0:
		return fmt.Errorf("%w: specify node UUIDs or --all-manageable", workflows.ErrInvalidArgument)
	}
	return nil
}

func printNodes(out *Output, nodes []domain.Node) {
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		rows[i] = []string{n.UUID, n.Name, n.ProvisionState}
	}
	out.Print([]string{"UUID", "NAME", "PROVISION STATE"}, rows, nodes)
}

func nodeUUIDs(nodes []domain.Node) []string {
	uuids := make([]string, len(nodes))
	for i, n := range nodes {
		uuids[i] = n.UUID
	}
	return uuids
}
