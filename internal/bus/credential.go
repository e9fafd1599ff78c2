package bus

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/piizei/a2a-proxy/internal/model"
)

// resolveCredential selects the azcore.TokenCredential implied by cfg: a
// client secret credential when tenant/client/secret are all set, a
// managed identity credential when requested, or the ambient default
// Azure credential chain (CLI, environment, workload identity, ...)
// otherwise. It returns nil, nil when cfg carries a raw connection
// string instead, since azservicebus authenticates differently in that
// case.
func resolveCredential(cfg model.BusCredentialConfig) (azcore.TokenCredential, error) {
	if cfg.ConnectionString != "" {
		return nil, nil
	}

	switch {
	case cfg.TenantID != "" && cfg.ClientID != "" && cfg.ClientSecret != "":
		cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("bus: client secret credential: %w", err)
		}
		return cred, nil

	case cfg.ManagedIdentity:
		opts := &azidentity.ManagedIdentityCredentialOptions{}
		if cfg.ClientID != "" {
			opts.ID = azidentity.ClientID(cfg.ClientID)
		}
		cred, err := azidentity.NewManagedIdentityCredential(opts)
		if err != nil {
			return nil, fmt.Errorf("bus: managed identity credential: %w", err)
		}
		return cred, nil

	default:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("bus: default credential chain: %w", err)
		}
		return cred, nil
	}
}
