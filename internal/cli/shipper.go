package cli

import (
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
)

// NewShipperCmd creates the shipper command group.
func NewShipperCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shipper",
		Short: "Manage topic exports to object storage",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the shippers of a topic",
		Args:  cobra.NoArgs,
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, _ []string) error {
			topicID, _ := cmd.Flags().GetString("topic")
			offset, _ := cmd.Flags().GetInt("offset")
			count, _ := cmd.Flags().GetInt("count")
			shippers, err := resource.ListShippers(cmd.Context(), c, topicID, offset, count)
			if err != nil {
				return err
			}
			return printJSON(cmd, shippers)
		}),
	}
	list.Flags().String("topic", "", "topic id")
	list.Flags().Int("offset", 0, "page offset")
	list.Flags().Int("count", 20, "page size")
	_ = list.MarkFlagRequired("topic")

	get := &cobra.Command{
		Use:   "get SHIPPER_ID",
		Short: "Show a shipper",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			s, err := resource.GetShipper(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		}),
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a shipper",
		Long:  "Create a shipper from --file, with the other flags overriding its fields.",
		Args:  cobra.NoArgs,
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, _ []string) error {
			s, err := shipperFromFlags(cmd)
			if err != nil {
				return err
			}
			id, err := resource.CreateShipper(cmd.Context(), c, s)
			if err != nil {
				return err
			}
			return printJSON(cmd, resource.Shipper{ID: id})
		}),
	}
	addShipperFlags(create)

	update := &cobra.Command{
		Use:   "update SHIPPER_ID",
		Short: "Change a shipper",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			s, err := shipperFromFlags(cmd)
			if err != nil {
				return err
			}
			s.ID = args[0]
			return resource.UpdateShipper(cmd.Context(), c, s)
		}),
	}
	addShipperFlags(update)

	del := &cobra.Command{
		Use:   "delete SHIPPER_ID",
		Short: "Delete a shipper",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			return resource.DeleteShipper(cmd.Context(), c, args[0])
		}),
	}

	tasks := &cobra.Command{
		Use:   "tasks SHIPPER_ID",
		Short: "List the export runs of a shipper",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			start, err := timeFlag(cmd, "start")
			if err != nil {
				return err
			}
			end, err := timeFlag(cmd, "end")
			if err != nil {
				return err
			}
			list, err := resource.ListShipTasks(cmd.Context(), c, args[0], start, end)
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		}),
	}
	tasks.Flags().String("start", "24h", "range start (RFC 3339 or a duration ago)")
	tasks.Flags().String("end", "now", "range end (RFC 3339 or a duration ago)")

	retry := &cobra.Command{
		Use:   "retry SHIPPER_ID TASK_ID",
		Short: "Rerun a failed export",
		Args:  cobra.ExactArgs(2),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			return resource.RetryShipTask(cmd.Context(), c, args[0], args[1])
		}),
	}

	cmd.AddCommand(list, get, create, update, del, tasks, retry)
	return cmd
}

func addShipperFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "shipper JSON file")
	cmd.Flags().String("topic", "", "topic id")
	cmd.Flags().String("bucket", "", "destination bucket, {name}-{appid}")
	cmd.Flags().String("prefix", "", "object key prefix")
	cmd.Flags().String("name", "", "shipper name")
	cmd.Flags().Int("interval", 0, "seconds between exports (60-3600)")
	cmd.Flags().Int("max-size", 0, "object size limit in MB (100-10240)")
	cmd.Flags().Bool("effective", true, "enable the shipper")
}

func shipperFromFlags(cmd *cobra.Command) (resource.Shipper, error) {
	s := resource.Shipper{Effective: true}
	flags := cmd.Flags()

	if path, _ := flags.GetString("file"); path != "" {
		if err := readJSONFile(path, &s); err != nil {
			return s, err
		}
	}
	if flags.Changed("topic") {
		s.TopicID, _ = flags.GetString("topic")
	}
	if flags.Changed("bucket") {
		s.Bucket, _ = flags.GetString("bucket")
	}
	if flags.Changed("prefix") {
		s.Prefix, _ = flags.GetString("prefix")
	}
	if flags.Changed("name") {
		s.Name, _ = flags.GetString("name")
	}
	if flags.Changed("interval") {
		s.Interval, _ = flags.GetInt("interval")
	}
	if flags.Changed("max-size") {
		s.MaxSize, _ = flags.GetInt("max-size")
	}
	if flags.Changed("effective") {
		s.Effective, _ = flags.GetBool("effective")
	}
	s.CreateTime = ""
	return s, nil
}
