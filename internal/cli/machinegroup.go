package cli

import (
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
)

// NewMachineGroupCmd creates the machinegroup command group.
func NewMachineGroupCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "machinegroup",
		Aliases: []string{"mg"},
		Short:   "Manage machine groups",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List machine groups",
		Args:  cobra.NoArgs,
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, _ []string) error {
			groups, err := resource.ListHostGroups(cmd.Context(), c)
			if err != nil {
				return err
			}
			return printJSON(cmd, groups)
		}),
	}

	get := &cobra.Command{
		Use:   "get GROUP_ID",
		Short: "Show a machine group",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			g, err := resource.GetHostGroup(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, g)
		}),
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a machine group",
		Args:  cobra.NoArgs,
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			ips, _ := cmd.Flags().GetStringSlice("ip")
			id, err := resource.CreateHostGroup(cmd.Context(), c, resource.HostGroup{Name: name, IPs: ips})
			if err != nil {
				return err
			}
			return printJSON(cmd, resource.HostGroup{ID: id})
		}),
	}
	create.Flags().String("name", "", "group name")
	create.Flags().StringSlice("ip", nil, "member addresses")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("ip")

	update := &cobra.Command{
		Use:   "update GROUP_ID",
		Short: "Rename a machine group or replace its members",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			ips, _ := cmd.Flags().GetStringSlice("ip")
			return resource.UpdateHostGroup(cmd.Context(), c, resource.HostGroup{ID: args[0], Name: name, IPs: ips})
		}),
	}
	update.Flags().String("name", "", "new name")
	update.Flags().StringSlice("ip", nil, "new member addresses")
	update.MarkFlagsOneRequired("name", "ip")

	del := &cobra.Command{
		Use:   "delete GROUP_ID",
		Short: "Delete a machine group",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			return resource.DeleteHostGroup(cmd.Context(), c, args[0])
		}),
	}

	status := &cobra.Command{
		Use:   "status GROUP_ID",
		Short: "Show the agent state of each machine",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			machines, err := resource.HostGroupStatus(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			type row struct {
				IP      string `json:"ip"`
				Healthy bool   `json:"healthy"`
			}
			rows := make([]row, 0, len(machines))
			for _, m := range machines {
				rows = append(rows, row{IP: m.IP, Healthy: m.Healthy()})
			}
			return printJSON(cmd, rows)
		}),
	}

	cmd.AddCommand(list, get, create, update, del, status)
	return cmd
}
