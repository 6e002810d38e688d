package cli

import (
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
)

// NewTopicCmd creates the topic command group.
func NewTopicCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topic",
		Short: "Manage topics",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the topics of a log set",
		Args:  cobra.NoArgs,
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, _ []string) error {
			logSetID, _ := cmd.Flags().GetString("logset")
			topics, err := resource.ListTopics(cmd.Context(), c, logSetID)
			if err != nil {
				return err
			}
			return printJSON(cmd, topics)
		}),
	}
	list.Flags().String("logset", "", "log set id")
	_ = list.MarkFlagRequired("logset")

	get := &cobra.Command{
		Use:   "get TOPIC_ID",
		Short: "Show a topic",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			t, err := resource.GetTopic(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, t)
		}),
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a topic",
		Args:  cobra.NoArgs,
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, _ []string) error {
			t := topicFromFlags(cmd)
			t.LogSetID, _ = cmd.Flags().GetString("logset")
			id, err := resource.CreateTopic(cmd.Context(), c, t)
			if err != nil {
				return err
			}
			return printJSON(cmd, resource.Topic{ID: id})
		}),
	}
	create.Flags().String("logset", "", "log set id")
	addTopicFlags(create)
	_ = create.MarkFlagRequired("logset")
	_ = create.MarkFlagRequired("name")

	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Print the id of a topic, creating it when missing",
		Args:  cobra.NoArgs,
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, _ []string) error {
			logSetID, _ := cmd.Flags().GetString("logset")
			name, _ := cmd.Flags().GetString("name")
			id, err := resource.EnsureTopic(cmd.Context(), c, logSetID, name)
			if err != nil {
				return err
			}
			return printJSON(cmd, resource.Topic{ID: id})
		}),
	}
	ensure.Flags().String("logset", "", "log set id")
	ensure.Flags().String("name", "", "topic name")
	_ = ensure.MarkFlagRequired("logset")
	_ = ensure.MarkFlagRequired("name")

	update := &cobra.Command{
		Use:   "update TOPIC_ID",
		Short: "Change a topic",
		Long:  "Change a topic. Flags that are not given keep their current value.",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			current, err := resource.GetTopic(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			t := mergeTopic(*current, cmd)
			t.ID = args[0]
			return resource.UpdateTopic(cmd.Context(), c, t)
		}),
	}
	addTopicFlags(update)

	del := &cobra.Command{
		Use:   "delete TOPIC_ID",
		Short: "Delete a topic",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(newClient, func(cmd *cobra.Command, c resource.Caller, args []string) error {
			return resource.DeleteTopic(cmd.Context(), c, args[0])
		}),
	}

	cmd.AddCommand(list, get, create, ensure, update, del)
	return cmd
}

func addTopicFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "topic name")
	cmd.Flags().String("path", "", "collection path on the agent hosts")
	cmd.Flags().String("machine-group", "", "machine group id collecting the path")
	cmd.Flags().Bool("collection", true, "enable collection")
	cmd.Flags().Bool("index", true, "enable indexing")
	cmd.Flags().String("log-type", "", "json_log, delimiter_log or minimalist_log")
}

func topicFromFlags(cmd *cobra.Command) resource.Topic {
	return mergeTopic(resource.Topic{Collection: true, Index: true}, cmd)
}

// mergeTopic overlays the flags that were set on t.
func mergeTopic(t resource.Topic, cmd *cobra.Command) resource.Topic {
	flags := cmd.Flags()
	if flags.Changed("name") {
		t.Name, _ = flags.GetString("name")
	}
	if flags.Changed("path") {
		t.Path, _ = flags.GetString("path")
	}
	if flags.Changed("machine-group") {
		t.GroupID, _ = flags.GetString("machine-group")
	}
	if flags.Changed("collection") {
		t.Collection, _ = flags.GetBool("collection")
	}
	if flags.Changed("index") {
		t.Index, _ = flags.GetBool("index")
	}
	if flags.Changed("log-type") {
		t.LogType, _ = flags.GetString("log-type")
	}
	t.CreateTime = ""
	t.MachineGroup = nil
	return t
}
