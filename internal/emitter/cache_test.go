package emitter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/cls-shipper/internal/resource"
	"github.com/GabrielNunesIT/cls-shipper/internal/testutil/mocks"
	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

func TestIDCache_States(t *testing.T) {
	ic := NewIDCache("app", "api", 30)
	assert.Equal(t, StateUninitialized, ic.State())

	c := mocks.NewCaller(t)
	release := make(chan time.Time)
	c.On("Get", mock.Anything, "logsets", transport.FormatJSON, mock.Anything).
		WaitUntil(release).
		Run(fill(`{"logsets":[{"logset_id":"ls-1","logset_name":"app"}]}`)).
		Return(nil)
	c.On("Get", mock.Anything, "topics?logset_id=ls-1", transport.FormatJSON, mock.Anything).
		Run(fill(`{"topics":[{"topic_id":"t-1","topic_name":"api"}]}`)).
		Return(nil)

	done := make(chan error, 1)
	go func() {
		_, err := ic.Resolve(ctx, c)
		done <- err
	}()

	assert.Eventually(t, func() bool { return ic.State() == StateResolving }, time.Second, time.Millisecond)
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateReady, ic.State())

	ic.Reset()
	assert.Equal(t, StateUninitialized, ic.State())
	_, ok := ic.Cached()
	assert.False(t, ok)
}

func TestIDCache_CreatesMissingResources(t *testing.T) {
	c := mocks.NewCaller(t)
	c.On("Get", mock.Anything, "logsets", transport.FormatJSON, mock.Anything).Return(nil)
	c.On("Create", mock.Anything, "logset", transport.FormatJSON, resource.LogSet{Name: "app", Period: 30}, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(4).(*resource.LogSet).ID = "ls-new"
		}).
		Return(nil)
	c.On("Get", mock.Anything, "logset?logset_id=ls-new", transport.FormatJSON, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(3).(*resource.LogSet) = resource.LogSet{ID: "ls-new", Name: "app", Period: 30}
		}).
		Return(nil)
	c.On("Get", mock.Anything, "topics?logset_id=ls-new", transport.FormatJSON, mock.Anything).Return(nil)
	c.On("Create", mock.Anything, "topic", transport.FormatJSON, resource.Topic{LogSetID: "ls-new", Name: "api"}, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(4).(*resource.Topic).ID = "t-new"
		}).
		Return(nil)

	ic := NewIDCache("app", "api", 30)
	ids, err := ic.Resolve(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, ResourceIDs{LogSetID: "ls-new", TopicID: "t-new"}, ids)
}

func TestIDCache_TopicFailureLeavesCacheEmpty(t *testing.T) {
	c := mocks.NewCaller(t)
	c.On("Get", mock.Anything, "logsets", transport.FormatJSON, mock.Anything).
		Run(fill(`{"logsets":[{"logset_id":"ls-1","logset_name":"app"}]}`)).
		Return(nil)
	c.On("Get", mock.Anything, "topics?logset_id=ls-1", transport.FormatJSON, mock.Anything).
		Return(errors.New("dial tcp: i/o timeout"))

	ic := NewIDCache("app", "api", 30)
	_, err := ic.Resolve(ctx, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `resolve topic "api"`)
	assert.Equal(t, StateUninitialized, ic.State())
}

func TestIDCache_CachedSkipsCaller(t *testing.T) {
	c := mocks.NewCaller(t)
	ids, err := readyCache().Resolve(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "t-1", ids.TopicID)
	assert.Empty(t, c.Calls)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "resolving", StateResolving.String())
	assert.Equal(t, "ready", StateReady.String())
}
