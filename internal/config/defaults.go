package config

const (
	defaultInputDir  = "~/transcripter/input"
	defaultOutputDir = "~/transcripter/output"
	defaultStateDir  = "~/.local/state/transcripter"
	defaultLogDir    = "~/.local/state/transcripter/logs"

	defaultProxyCacheName      = "proxy_list.json"
	defaultProxyMaxAgeSeconds  = 1800
	defaultProxySource         = "https://api.proxyscrape.com/v2/?request=displayproxies&protocol=http&timeout=10000&country=all&ssl=all&anonymity=all"
	defaultProxyFallbackSource = "http://api.proxyscrape.com/v2/?request=displayproxies&protocol=http&timeout=10000&country=all&ssl=all&anonymity=all"
	defaultFetchTimeoutSeconds = 30
	defaultFetchRetries        = 2
	defaultGenericFailureLimit = 3
	defaultMaxWorkers          = 8
	defaultPassDelaySeconds    = 2
	defaultMaxRounds           = 0
	defaultLaunchesPerSecond   = 2.0
	defaultUploadURL           = "https://vizard.ai/upload?from=video-to-text&tool-page=%2Fen%2Ftools%2Fvideo-to-text"
	defaultRetryBudget         = 3
	defaultOpenTimeoutSeconds  = 60
	defaultReadyTimeoutSeconds = 180
	defaultProbeTimeoutSeconds = 5
	defaultClickTimeoutSeconds = 30
	defaultJournalName         = "journal.db"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults. Path fields
// are unexpanded; Load normalizes them.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Proxy: Proxy{
			MaxAgeSeconds:       defaultProxyMaxAgeSeconds,
			Sources:             []string{defaultProxySource, defaultProxyFallbackSource},
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
			FetchRetries:        defaultFetchRetries,
			GenericFailureLimit: defaultGenericFailureLimit,
		},
		Dispatch: Dispatch{
			MaxWorkers:        defaultMaxWorkers,
			PassDelaySeconds:  defaultPassDelaySeconds,
			MaxRounds:         defaultMaxRounds,
			LaunchesPerSecond: defaultLaunchesPerSecond,
		},
		Upload: Upload{
			URL:                 defaultUploadURL,
			RetryBudget:         defaultRetryBudget,
			OpenTimeoutSeconds:  defaultOpenTimeoutSeconds,
			ReadyTimeoutSeconds: defaultReadyTimeoutSeconds,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
			ClickTimeoutSeconds: defaultClickTimeoutSeconds,
		},
		Browser: Browser{
			Headless: true,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
