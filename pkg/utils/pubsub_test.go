package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	topic := NewTopic[int]()
	sub := topic.Subscribe()

	assert.Equal(t, 0, topic.Publish(1))
	require.Equal(t, 1, <-sub.Recv())

	sub.Done()
	assert.Equal(t, 0, topic.Publish(2))
}

func TestTopicSlowSubscriber(t *testing.T) {
	topic := NewTopic[int]()
	sub := topic.Subscribe()
	defer sub.Done()

	for i := 0; i < topicBuffer; i++ {
		assert.Equal(t, 0, topic.Publish(i))
	}
	assert.Equal(t, 1, topic.Publish(-1))
	assert.Equal(t, 0, <-sub.Recv())
}
