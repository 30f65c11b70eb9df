package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the resources an export processes",
	RunE:  runResources,
}

func init() {
	rootCmd.AddCommand(resourcesCmd)
}

func runResources(cmd *cobra.Command, _ []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}

	for _, r := range s.Resources {
		key := r.PrimaryKey
		if key == "" {
			key = "-"
		}
		cmd.Printf("%-18s %-26s key=%s", r.Name, r.Endpoint, key)
		if len(r.Expand) > 0 {
			children := make([]string, 0, len(r.Expand))
			for _, e := range r.Expand {
				children = append(children, e.ChildTable(r.RootKey()))
			}
			cmd.Printf(" tables=%s", strings.Join(children, ","))
		}
		cmd.Println()
	}
	return nil
}
