package topicmanager

import (
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus/admin"
	"github.com/stretchr/testify/assert"

	"github.com/piizei/a2a-proxy/internal/model"
)

func TestTopicNaming(t *testing.T) {
	assert.Equal(t, "a2a.billing.requests", RequestsTopic("billing"))
	assert.Equal(t, "a2a.billing.responses", ResponsesTopic("billing"))
	assert.Equal(t, "a2a-notifications", NotificationsTopic)
}

func TestListManagedTopics(t *testing.T) {
	groups := map[string]model.TopicGroupConfig{
		"billing": {},
		"support": {},
	}
	topics := ListManagedTopics(groups)
	assert.Len(t, topics, 5)
	assert.Contains(t, topics, "a2a.billing.requests")
	assert.Contains(t, topics, "a2a.billing.responses")
	assert.Contains(t, topics, "a2a.support.requests")
	assert.Contains(t, topics, "a2a.support.responses")
	assert.Contains(t, topics, NotificationsTopic)
}

func TestTopicPropertiesDiffer_DetectsTTLChange(t *testing.T) {
	existing := &admin.TopicProperties{
		DefaultMessageTimeToLive: durationPtr(time.Hour),
	}
	desired := desiredTopicProperties(model.TopicGroupConfig{MessageTTLSeconds: 7200})
	assert.True(t, topicPropertiesDiffer(existing, desired))
}

func TestTopicPropertiesDiffer_NoChangeWhenMatching(t *testing.T) {
	ttl := 2 * time.Hour
	existing := &admin.TopicProperties{
		DefaultMessageTimeToLive: &ttl,
	}
	desired := desiredTopicProperties(model.TopicGroupConfig{MessageTTLSeconds: 7200})
	assert.False(t, topicPropertiesDiffer(existing, desired))
}
