package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/cls-shipper/internal/testutil/mocks"
	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

func TestTopicPaths(t *testing.T) {
	c := mocks.NewCaller(t)
	c.On("Get", ctx, "topics?logset_id=ls-1", transport.FormatJSON, mock.AnythingOfType("*resource.topicList")).
		Run(func(args mock.Arguments) {
			args.Get(3).(*topicList).Topics = []Topic{{ID: "t-1", Name: "api"}}
		}).
		Return(nil)
	c.On("Get", ctx, "topic?topic_id=t-1", transport.FormatJSON, mock.AnythingOfType("*resource.Topic")).
		Run(func(args mock.Arguments) {
			*args.Get(3).(*Topic) = Topic{ID: "t-1", LogType: LogTypeJSON}
		}).
		Return(nil)
	c.On("Delete", ctx, "topic?topic_id=t-1").Return(nil)

	topics, err := ListTopics(ctx, c, "ls-1")
	require.NoError(t, err)
	require.Len(t, topics, 1)

	topic, err := GetTopic(ctx, c, "t-1")
	require.NoError(t, err)
	assert.Equal(t, LogTypeJSON, topic.LogType)

	require.NoError(t, DeleteTopic(ctx, c, "t-1"))
}

func TestUpdateTopic_WithExtractRule(t *testing.T) {
	c := mocks.NewCaller(t)
	topic := Topic{
		ID:      "t-1",
		LogType: LogTypeDelimiter,
		ExtractRule: &ExtractRule{
			TimeKey:    "ts",
			TimeFormat: "%Y-%m-%d %H:%M:%S",
			Delimiter:  "|",
			Keys:       []string{"ts", "", "msg"},
		},
	}
	c.On("Update", ctx, "topic", topic).Return(nil)

	require.NoError(t, UpdateTopic(ctx, c, topic))
}

func TestEnsureTopic(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		c := mocks.NewCaller(t)
		c.On("Get", ctx, "topics?logset_id=ls-1", transport.FormatJSON, mock.Anything).
			Run(func(args mock.Arguments) {
				args.Get(3).(*topicList).Topics = []Topic{{ID: "t-1", Name: "api"}}
			}).
			Return(nil)

		id, err := EnsureTopic(ctx, c, "ls-1", "api")
		require.NoError(t, err)
		assert.Equal(t, "t-1", id)
	})

	t.Run("created when absent", func(t *testing.T) {
		c := mocks.NewCaller(t)
		c.On("Get", ctx, "topics?logset_id=ls-1", transport.FormatJSON, mock.Anything).Return(nil)
		c.On("Create", ctx, "topic", transport.FormatJSON, Topic{LogSetID: "ls-1", Name: "api"}, mock.Anything).
			Run(func(args mock.Arguments) {
				args.Get(4).(*Topic).ID = "t-new"
			}).
			Return(nil)

		id, err := EnsureTopic(ctx, c, "ls-1", "api")
		require.NoError(t, err)
		assert.Equal(t, "t-new", id)
	})
}
