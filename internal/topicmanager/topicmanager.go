// Package topicmanager provisions and verifies the Service Bus topic
// topology this proxy depends on. Only the coordinator role runs it.
package topicmanager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus/admin"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/piizei/a2a-proxy/internal/logger"
	"github.com/piizei/a2a-proxy/internal/model"
)

// adminRetryMaxAttempts bounds how many times a single management-plane
// call is retried before its failure is reported to the caller.
const adminRetryMaxAttempts = 3

// withAdminRetry retries op with exponential backoff (1s base, factor 2,
// capped at 60s) for up to adminRetryMaxAttempts attempts total. Service
// Bus management operations are rate-limited and occasionally throttle
// under concurrent reconciliation, so a transient failure here is
// expected rather than exceptional.
func withAdminRetry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	bo.MaxInterval = 60 * time.Second
	bo.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err := op(); err != nil {
			if isNotFound(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, adminRetryMaxAttempts-1), ctx))
}

// isNotFound reports whether err is the admin REST API's 404, which
// means "does not exist" rather than a transient failure worth retrying.
func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// NotificationsTopic is the single shared fan-out topic for
// proxy-to-proxy notifications, outside any agent group.
const NotificationsTopic = "a2a-notifications"

// Manager owns topic lifecycle for one or more agent groups.
type Manager struct {
	admin *admin.Client
}

// New wraps an already-constructed admin client.
func New(adminClient *admin.Client) *Manager {
	return &Manager{admin: adminClient}
}

// RequestsTopic and ResponsesTopic derive a group's topic pair name,
// shared with the publisher and subscriber packages so naming stays in
// one place.
func RequestsTopic(group string) string  { return fmt.Sprintf("a2a.%s.requests", group) }
func ResponsesTopic(group string) string { return fmt.Sprintf("a2a.%s.responses", group) }

// EnsureTopicsExist provisions the requests/responses topic pair for
// every configured group, plus the shared notifications topic, creating
// whatever is missing, updating existing topics whose size, TTL or
// duplicate-detection window differ from the config, and leaving the
// rest untouched. Groups are
// reconciled concurrently since each is an independent pair of
// management-plane calls.
func (m *Manager) EnsureTopicsExist(ctx context.Context, groups map[string]model.TopicGroupConfig) error {
	g, gCtx := errgroup.WithContext(ctx)
	for group, cfg := range groups {
		group, cfg := group, cfg
		g.Go(func() error {
			for _, topic := range []string{RequestsTopic(group), ResponsesTopic(group)} {
				if err := m.ensureTopic(gCtx, topic, cfg); err != nil {
					return fmt.Errorf("topicmanager: ensure topic %s: %w", topic, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return m.ensureTopic(ctx, NotificationsTopic, model.TopicGroupConfig{})
}

func desiredTopicProperties(cfg model.TopicGroupConfig) *admin.TopicProperties {
	opts := &admin.TopicProperties{
		EnablePartitioning: boolPtr(cfg.EnablePartitioning),
	}
	if cfg.MaxMessageSizeMB > 0 {
		size := int32(cfg.MaxMessageSizeMB)
		opts.MaxMessageSizeInKilobytes = int64Ptr(int64(size) * 1024)
	}
	if cfg.MessageTTLSeconds > 0 {
		ttl := time.Duration(cfg.MessageTTLSeconds) * time.Second
		opts.DefaultMessageTimeToLive = durationPtr(ttl)
	}
	if cfg.DuplicateDetectionWindowMinutes > 0 {
		window := time.Duration(cfg.DuplicateDetectionWindowMinutes) * time.Minute
		opts.DuplicateDetectionHistoryTimeWindow = durationPtr(window)
		opts.RequiresDuplicateDetection = boolPtr(true)
	}
	return opts
}

// topicPropertiesDiffer reports whether existing diverges from desired on
// the fields this manager is responsible for reconciling: max size,
// default message TTL, and duplicate detection window.
func topicPropertiesDiffer(existing, desired *admin.TopicProperties) bool {
	if desired.MaxMessageSizeInKilobytes != nil &&
		(existing.MaxMessageSizeInKilobytes == nil || *existing.MaxMessageSizeInKilobytes != *desired.MaxMessageSizeInKilobytes) {
		return true
	}
	if desired.DefaultMessageTimeToLive != nil &&
		(existing.DefaultMessageTimeToLive == nil || *existing.DefaultMessageTimeToLive != *desired.DefaultMessageTimeToLive) {
		return true
	}
	if desired.DuplicateDetectionHistoryTimeWindow != nil &&
		(existing.DuplicateDetectionHistoryTimeWindow == nil || *existing.DuplicateDetectionHistoryTimeWindow != *desired.DuplicateDetectionHistoryTimeWindow) {
		return true
	}
	return false
}

// ensureTopic reconciles a single topic against cfg: create it if
// missing, update it in place if an existing topic's size/TTL/dedup
// window has drifted from cfg, or leave it alone if it already matches.
// Every management-plane call is retried with backoff since the admin
// endpoint throttles under concurrent reconciliation.
func (m *Manager) ensureTopic(ctx context.Context, name string, cfg model.TopicGroupConfig) error {
	var existing admin.GetTopicResponse
	getErr := withAdminRetry(ctx, func() error {
		var err error
		existing, err = m.admin.GetTopic(ctx, name, nil)
		return err
	})

	desired := desiredTopicProperties(cfg)

	if getErr != nil {
		if !isNotFound(getErr) {
			return getErr
		}
		return withAdminRetry(ctx, func() error {
			_, err := m.admin.CreateTopic(ctx, name, &admin.CreateTopicOptions{Properties: desired})
			if err != nil {
				return err
			}
			logger.Info("topicmanager: created topic", "topic", name)
			return nil
		})
	}

	if !topicPropertiesDiffer(&existing.TopicProperties, desired) {
		logger.Info("topicmanager: topic already up to date", "topic", name)
		return nil
	}

	updated := existing.TopicProperties
	if desired.MaxMessageSizeInKilobytes != nil {
		updated.MaxMessageSizeInKilobytes = desired.MaxMessageSizeInKilobytes
	}
	if desired.DefaultMessageTimeToLive != nil {
		updated.DefaultMessageTimeToLive = desired.DefaultMessageTimeToLive
	}
	if desired.DuplicateDetectionHistoryTimeWindow != nil {
		updated.DuplicateDetectionHistoryTimeWindow = desired.DuplicateDetectionHistoryTimeWindow
		updated.RequiresDuplicateDetection = desired.RequiresDuplicateDetection
	}

	return withAdminRetry(ctx, func() error {
		_, err := m.admin.UpdateTopic(ctx, name, updated, nil)
		if err != nil {
			return err
		}
		logger.Info("topicmanager: updated topic", "topic", name)
		return nil
	})
}

// ValidateTopicHealth confirms every expected topic for the given groups
// is reachable, returning the names of any that are missing.
func (m *Manager) ValidateTopicHealth(ctx context.Context, groups map[string]model.TopicGroupConfig) ([]string, error) {
	missing := make([]string, 0)
	check := func(name string) error {
		err := withAdminRetry(ctx, func() error {
			_, err := m.admin.GetTopic(ctx, name, nil)
			return err
		})
		if err != nil {
			missing = append(missing, name)
		}
		return nil
	}
	for group := range groups {
		if err := check(RequestsTopic(group)); err != nil {
			return nil, err
		}
		if err := check(ResponsesTopic(group)); err != nil {
			return nil, err
		}
	}
	if err := check(NotificationsTopic); err != nil {
		return nil, err
	}
	return missing, nil
}

// ListManagedTopics returns the full set of topic names this manager is
// responsible for, given the configured groups.
func ListManagedTopics(groups map[string]model.TopicGroupConfig) []string {
	names := make([]string, 0, len(groups)*2+1)
	for group := range groups {
		names = append(names, RequestsTopic(group), ResponsesTopic(group))
	}
	return append(names, NotificationsTopic)
}

// DeleteTopicSet tears down the requests/responses pair for group. It
// does not touch the shared notifications topic.
func (m *Manager) DeleteTopicSet(ctx context.Context, group string) error {
	for _, topic := range []string{RequestsTopic(group), ResponsesTopic(group)} {
		topic := topic
		err := withAdminRetry(ctx, func() error {
			_, err := m.admin.DeleteTopic(ctx, topic, nil)
			return err
		})
		if err != nil {
			return fmt.Errorf("topicmanager: delete topic %s: %w", topic, err)
		}
	}
	return nil
}

// Recreate deletes and re-provisions a group's topic pair, used to
// recover from a corrupted or misconfigured topic.
func (m *Manager) Recreate(ctx context.Context, group string, cfg model.TopicGroupConfig) error {
	if err := m.DeleteTopicSet(ctx, group); err != nil {
		return err
	}
	return m.EnsureTopicsExist(ctx, map[string]model.TopicGroupConfig{group: cfg})
}

func boolPtr(b bool) *bool                       { return &b }
func int64Ptr(v int64) *int64                    { return &v }
func durationPtr(d time.Duration) *time.Duration { return &d }
