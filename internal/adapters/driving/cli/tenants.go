package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "List the organisations the credential can access",
	Long: `Lists every tenant connected to the credential. Exports run against
api.tenant_id (or TENANT_ID) when set, otherwise the first organisation.`,
	RunE: runTenants,
}

func init() {
	rootCmd.AddCommand(tenantsCmd)
}

func runTenants(cmd *cobra.Command, _ []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	tenants, err := s.Tenants.List(ctx)
	if err != nil {
		return err
	}
	if len(tenants) == 0 {
		cmd.Println("No tenants connected.")
		return nil
	}

	selected, _ := domain.FirstOrganisation(tenants)
	if resolved, err := s.Tenants.Resolve(ctx); err == nil {
		selected = resolved
	}

	cmd.Printf("%-2s %-38s %-14s %s\n", "", "TENANT ID", "TYPE", "NAME")
	for _, t := range tenants {
		marker := ""
		if t.ID == selected.ID {
			marker = "*"
		}
		cmd.Printf("%-2s %-38s %-14s %s\n", marker, t.ID, t.Type, t.Name)
	}
	return nil
}
