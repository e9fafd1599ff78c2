package model

// Role identifies whether a proxy instance additionally owns topic
// lifecycle management.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleFollower    Role = "follower"
)

// SubscriptionConfig pairs a group with a server-side filter predicate the
// subscriber orchestrator installs on the corresponding bus subscription.
type SubscriptionConfig struct {
	Group  string `yaml:"group" json:"group"`
	Filter string `yaml:"filter" json:"filter"`
}

// SessionConfig configures the session manager's TTL and persistence
// behavior.
type SessionConfig struct {
	DefaultTTLSeconds      int    `yaml:"defaultTtlSeconds" json:"defaultTtlSeconds"`
	MaxTTLSeconds          int    `yaml:"maxTtlSeconds" json:"maxTtlSeconds"`
	MaxSessionsPerAgent    int    `yaml:"maxSessionsPerAgent" json:"maxSessionsPerAgent"`
	CleanupIntervalSeconds int    `yaml:"cleanupIntervalSeconds" json:"cleanupIntervalSeconds"`
	StoreDir               string `yaml:"storeDir" json:"storeDir"`
}

// TopicGroupConfig describes the provisioning parameters for a single
// group's topic triple, owned by the coordinator's topic lifecycle manager.
type TopicGroupConfig struct {
	Name                             string `yaml:"name" json:"name"`
	MaxMessageSizeMB                 int    `yaml:"maxMessageSizeMB" json:"maxMessageSizeMB"`
	MessageTTLSeconds                int    `yaml:"messageTtlSeconds" json:"messageTtlSeconds"`
	EnablePartitioning               bool   `yaml:"enablePartitioning" json:"enablePartitioning"`
	DuplicateDetectionWindowMinutes  int    `yaml:"duplicateDetectionWindowMinutes" json:"duplicateDetectionWindowMinutes"`
}

// BusCredentialConfig selects how the messaging client authenticates to the
// bus namespace. A connection string takes precedence; otherwise tenantId,
// clientId and clientSecret together select a client secret credential,
// managedIdentity selects a managed identity (clientId, when set, picks a
// user-assigned one), and an entirely empty config means "use the ambient
// default Azure credential chain."
type BusCredentialConfig struct {
	ConnectionString string `yaml:"connectionString,omitempty" json:"connectionString,omitempty"`
	TenantID         string `yaml:"tenantId,omitempty" json:"tenantId,omitempty"`
	ClientID         string `yaml:"clientId,omitempty" json:"clientId,omitempty"`
	ClientSecret     string `yaml:"clientSecret,omitempty" json:"clientSecret,omitempty"`
	ManagedIdentity  bool   `yaml:"managedIdentity,omitempty" json:"managedIdentity,omitempty"`
}

// ProxyConfig is the top-level configuration for one proxy process.
type ProxyConfig struct {
	ID           string                       `yaml:"id" json:"id"`
	Version      string                       `yaml:"version,omitempty" json:"version,omitempty"`
	Role         Role                         `yaml:"role" json:"role"`
	Port         int                          `yaml:"port" json:"port"`
	BusNamespace string                       `yaml:"busNamespace" json:"busNamespace"`
	BusCredential BusCredentialConfig         `yaml:"busCredential,omitempty" json:"busCredential,omitempty"`
	HostedAgents map[string][]string          `yaml:"hostedAgents" json:"hostedAgents"`
	Subscriptions []SubscriptionConfig        `yaml:"subscriptions" json:"subscriptions"`
	AgentGroups  map[string]TopicGroupConfig  `yaml:"agentGroups,omitempty" json:"agentGroups,omitempty"`
	Sessions     SessionConfig                `yaml:"sessions" json:"sessions"`
	AgentRegistry map[string][]AgentInfo      `yaml:"agentRegistry" json:"agentRegistry"`
}

// IsCoordinator reports whether this proxy owns topic lifecycle management.
func (c *ProxyConfig) IsCoordinator() bool {
	return c.Role == RoleCoordinator
}
