package cli

import (
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
)

// NewLogSetCmd creates the logset command group.
func NewLogSetCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logset",
		Short: "Manage log sets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List log sets",
		Args:  cobra.NoArgs,
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, _ []string) error {
			sets, err := resource.ListLogSets(cmd.Context(), c)
			if err != nil {
				return err
			}
			return printJSON(cmd, sets)
		}),
	}

	get := &cobra.Command{
		Use:   "get LOGSET_ID",
		Short: "Show a log set",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			ls, err := resource.GetLogSet(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, ls)
		}),
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a log set",
		Args:  cobra.NoArgs,
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			period, _ := cmd.Flags().GetInt("period")
			id, err := resource.CreateLogSet(cmd.Context(), c, resource.LogSet{Name: name, Period: period})
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"logset_id": id})
		}),
	}
	create.Flags().String("name", "", "log set name")
	create.Flags().Int("period", 30, "retention in days")
	_ = create.MarkFlagRequired("name")

	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Print the id of a log set, creating it when missing",
		Args:  cobra.NoArgs,
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			period, _ := cmd.Flags().GetInt("period")
			id, err := resource.EnsureLogSet(cmd.Context(), c, name, period)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"logset_id": id})
		}),
	}
	ensure.Flags().String("name", "", "log set name")
	ensure.Flags().Int("period", 30, "retention in days when created")
	_ = ensure.MarkFlagRequired("name")

	update := &cobra.Command{
		Use:   "update LOGSET_ID",
		Short: "Rename a log set or change its retention",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			// period is always sent, so start from the stored log set
			ls, err := resource.GetLogSet(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				ls.Name, _ = cmd.Flags().GetString("name")
			}
			if cmd.Flags().Changed("period") {
				ls.Period, _ = cmd.Flags().GetInt("period")
			}
			ls.ID = args[0]
			ls.CreateTime = ""
			return resource.UpdateLogSet(cmd.Context(), c, *ls)
		}),
	}
	update.Flags().String("name", "", "new name")
	update.Flags().Int("period", 0, "new retention in days")
	update.MarkFlagsOneRequired("name", "period")

	del := &cobra.Command{
		Use:   "delete LOGSET_ID",
		Short: "Delete a log set",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			return resource.DeleteLogSet(cmd.Context(), c, args[0])
		}),
	}

	cmd.AddCommand(list, get, create, ensure, update, del)
	return cmd
}
