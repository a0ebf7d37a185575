package config

// ServerConfig is the parsed shape of server.json.
type ServerConfig struct {
	Server  ServerListen  `json:"server"`
	Proxy   ProxyConfig   `json:"proxy"`
	Admin   AdminConfig   `json:"admin"`
	Logging LoggingConfig `json:"logging"`
	OpenAI  OpenAIConfig  `json:"openai"`
}

// ServerListen configures the listen address.
type ServerListen struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// ProxyConfig configures the upstream HTTP client.
type ProxyConfig struct {
	TimeoutSeconds int `json:"timeout"`
}

// AdminConfig is carried verbatim for the (out-of-scope) admin surface.
type AdminConfig struct {
	Enabled  bool   `json:"enabled"`
	Path     string `json:"path"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoggingConfig is carried verbatim for the (out-of-scope) logging transport.
type LoggingConfig struct {
	Directory      string `json:"directory"`
	MaxFileSize    int    `json:"maxFileSize"`
	MaxFiles       int    `json:"maxFiles"`
	EnableConsole  bool   `json:"enableConsole"`
}

// OpenAIConfig configures the OpenAI↔Anthropic translator front-end.
type OpenAIConfig struct {
	Enabled      bool              `json:"enabled"`
	Models       map[string]string `json:"models"`
	DefaultModel string            `json:"defaultModel"`
}

// UpstreamsConfig is the parsed shape of upstreams.json.
type UpstreamsConfig struct {
	Upstreams    []Upstream         `json:"upstreams"`
	LoadBalancer LoadBalancerConfig `json:"loadBalancer"`
}

// Upstream describes one backend Anthropic-Messages-API endpoint.
type Upstream struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	URL         string           `json:"url"`
	Key         string           `json:"key"`
	Weight      int              `json:"weight"`
	Enabled     bool             `json:"enabled"`
	HealthCheck *HealthCheckSpec `json:"healthCheck,omitempty"`
}

// HealthCheckSpec overrides the default health probe path/timeout.
type HealthCheckSpec struct {
	Path           string `json:"path"`
	TimeoutSeconds int    `json:"timeout"`
}

// LoadBalancerConfig configures upstream selection.
type LoadBalancerConfig struct {
	Strategy           string `json:"strategy"`
	HealthCheckEnabled bool   `json:"healthCheckEnabled"`
	FailoverEnabled    bool   `json:"failoverEnabled"`
}

// TenantsConfig is the parsed shape of tenants.json.
type TenantsConfig struct {
	Tenants []Tenant `json:"tenants"`
}

// Tenant is one authenticated consumer.
type Tenant struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Key           string        `json:"key"`
	Enabled       bool          `json:"enabled"`
	AllowedModels []string      `json:"allowedModels"`
	Limits        TenantLimits  `json:"limits"`
}

// TenantLimits holds the tenant's spending caps.
type TenantLimits struct {
	Daily DailyLimit `json:"daily"`
}

// DailyLimit carries an optional daily USD spend cap. A nil MaxUSD means
// unlimited.
type DailyLimit struct {
	MaxUSD *float64 `json:"maxUSD,omitempty"`
}

// PricingConfig is the parsed shape of pricing.json.
type PricingConfig struct {
	ModelPricing PricingMap `json:"modelPricing"`
}

// PricingEntry gives USD price per 1,000 tokens for each token category.
type PricingEntry struct {
	Input         float64 `json:"input"`
	Output        float64 `json:"output"`
	CacheCreation float64 `json:"cacheCreation"`
	CacheRead     float64 `json:"cacheRead"`
}

// PricingMap preserves the insertion order of the `modelPricing` JSON object,
// since pricing lookup is exact-first then first-wildcard-match in the order
// the patterns were written in pricing.json. encoding/json's map target
// would discard that order, so PricingMap implements its own UnmarshalJSON.
type PricingMap struct {
	Entries []PricingMapEntry
}

// PricingMapEntry is one (pattern, price) pair from pricing.json.
type PricingMapEntry struct {
	Pattern string
	Entry   PricingEntry
}
