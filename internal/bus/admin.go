package bus

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus/admin"

	"github.com/piizei/a2a-proxy/internal/model"
)

// NewAdminClient builds the management-plane client used for topic and
// subscription lifecycle operations, using the same credential
// selection rules as Connect.
func NewAdminClient(namespace string, cfg model.BusCredentialConfig) (*admin.Client, error) {
	if cfg.ConnectionString != "" {
		client, err := admin.NewClientFromConnectionString(cfg.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("bus: admin client from connection string: %w", err)
		}
		return client, nil
	}

	cred, err := resolveCredential(cfg)
	if err != nil {
		return nil, err
	}
	client, err := admin.NewClient(namespace, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("bus: admin client for %s: %w", namespace, err)
	}
	return client, nil
}
