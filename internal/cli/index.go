package cli

import (
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
)

// NewIndexCmd creates the index command group.
func NewIndexCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage topic search indexes",
	}

	get := &cobra.Command{
		Use:   "get TOPIC_ID",
		Short: "Show the index of a topic",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			idx, err := resource.GetIndex(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, idx)
		}),
	}

	update := &cobra.Command{
		Use:   "update TOPIC_ID",
		Short: "Replace the index of a topic with the JSON in --file",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			var idx resource.Index
			if err := readJSONFile(path, &idx); err != nil {
				return err
			}
			idx.TopicID = args[0]
			return resource.UpdateIndex(cmd.Context(), c, idx)
		}),
	}
	update.Flags().StringP("file", "f", "", "index JSON file")
	_ = update.MarkFlagRequired("file")

	cmd.AddCommand(get, update)
	return cmd
}
