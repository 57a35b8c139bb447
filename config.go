package corpsite

import "github.com/steppeindustrial/corpsite/internal/runtimeconfig"

var (
	ErrDefaultLocaleUnsupported = runtimeconfig.ErrDefaultLocaleUnsupported
	ErrLocaleUnsupported        = runtimeconfig.ErrLocaleUnsupported
	ErrStorageProviderUnknown   = runtimeconfig.ErrStorageProviderUnknown
	ErrStorageDriverUnknown     = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired       = runtimeconfig.ErrStorageDSNRequired
	ErrCacheProviderUnknown     = runtimeconfig.ErrCacheProviderUnknown
	ErrCacheRedisAddrRequired   = runtimeconfig.ErrCacheRedisAddrRequired
	ErrContactLimitInvalid      = runtimeconfig.ErrContactLimitInvalid
	ErrContactWindowInvalid     = runtimeconfig.ErrContactWindowInvalid
	ErrContactLimiterUnknown    = runtimeconfig.ErrContactLimiterUnknown
	ErrAuthSecretRequired       = runtimeconfig.ErrAuthSecretRequired
	ErrHTTPAddrRequired         = runtimeconfig.ErrHTTPAddrRequired
	ErrLoggingProviderUnknown   = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid      = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid     = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config         = runtimeconfig.Config
	StorageConfig  = runtimeconfig.StorageConfig
	CacheConfig    = runtimeconfig.CacheConfig
	ContactConfig  = runtimeconfig.ContactConfig
	AuthConfig     = runtimeconfig.AuthConfig
	HTTPConfig     = runtimeconfig.HTTPConfig
	MarkdownConfig = runtimeconfig.MarkdownConfig
	LoggingConfig  = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads CORPSITE_* environment variables over DefaultConfig.
func LoadConfig() (Config, error) {
	return runtimeconfig.Load()
}
