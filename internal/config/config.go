package config

import (
	"blocklist/pkg/serrors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Enrichment providers.
const (
	ProviderIPWhois = "ipwhois"
	ProviderGeoIP   = "geoip"
	ProviderNone    = "none"
)

// Input maps one raw input list to the published list built from it.
type Input struct {
	// Path of the raw input list, relative to RepoPath unless absolute.
	Path string `yaml:"path"`
	// Output is the published list path, relative to RepoPath unless absolute.
	Output string `yaml:"output"`
}

// Config represents the application configuration structure.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`
	// LogFile is an optional file every log entry is appended to, in addition to stderr.
	LogFile string `env:"LOG_FILE" yaml:"logFile"`
	// RepoPath is the working copy the inputs and outputs live in.
	RepoPath string `env:"REPO_PATH" env-default:"." yaml:"repoPath"`
	// Inputs lists the raw lists processed on every run.
	Inputs []Input `yaml:"inputs"`

	// Aggregation controls how single addresses are collapsed into subnets.
	Aggregation struct {
		// Threshold is the number of host entries in one /24 needed to replace them by the /24.
		Threshold int `env:"AGGREGATION_THRESHOLD" env-default:"10" yaml:"threshold"`
		// IPv6GroupBits is the prefix length IPv6 hosts are grouped by. 0 disables IPv6 aggregation.
		IPv6GroupBits int `env:"AGGREGATION_IPV6_GROUP_BITS" env-default:"0" yaml:"ipv6GroupBits"`
	} `yaml:"aggregation"`

	// Limits are the hard limits a published list must respect.
	Limits struct {
		// MaxEntries is the maximum number of entries in one list.
		MaxEntries int `env:"LIMITS_MAX_ENTRIES" env-default:"131072" yaml:"maxEntries"`
		// MaxAnnotationLength is the maximum length of the "# annotation" part of a line.
		MaxAnnotationLength int `env:"LIMITS_MAX_ANNOTATION_LENGTH" env-default:"63" yaml:"maxAnnotationLength"`
		// MaxSizeBytes is the maximum size of one list file.
		MaxSizeBytes int64 `env:"LIMITS_MAX_SIZE_BYTES" env-default:"10485760" yaml:"maxSizeBytes"`
	} `yaml:"limits"`

	// Enrichment configures the annotation lookup for new entries.
	Enrichment struct {
		// Provider is one of ipwhois, geoip or none.
		Provider string `env:"ENRICHMENT_PROVIDER" env-default:"ipwhois" yaml:"provider"`
		// BaseURL overrides the ipwho.is endpoint.
		BaseURL string `env:"ENRICHMENT_BASE_URL" yaml:"baseURL"`
		// Timeout bounds a single lookup.
		Timeout time.Duration `env:"ENRICHMENT_TIMEOUT" env-default:"10s" yaml:"timeout"`
		// Concurrency is the number of lookups running at once.
		Concurrency int `env:"ENRICHMENT_CONCURRENCY" env-default:"1" yaml:"concurrency"`
		// GeoIP holds the MaxMind database paths used by the geoip provider.
		GeoIP struct {
			CountryDB string `env:"ENRICHMENT_GEOIP_COUNTRY_DB" yaml:"countryDB"`
			ASNDB     string `env:"ENRICHMENT_GEOIP_ASN_DB" yaml:"asnDB"`
		} `yaml:"geoip"`
	} `yaml:"enrichment"`

	// Publish configures how changed lists are committed and pushed.
	Publish struct {
		// Enabled turns publishing on. When off, lists are written but never pushed.
		Enabled bool `env:"PUBLISH_ENABLED" env-default:"false" yaml:"enabled"`
		// Remote is the git remote pushed to.
		Remote string `env:"PUBLISH_REMOTE" env-default:"origin" yaml:"remote"`
		// Branch is the branch pushed to.
		Branch string `env:"PUBLISH_BRANCH" env-default:"main" yaml:"branch"`
		// CommitMessage is used for every publish commit.
		CommitMessage string `env:"PUBLISH_COMMIT_MESSAGE" env-default:"Update validated blocklists" yaml:"commitMessage"`
		// AuthorName and AuthorEmail override the git identity when set.
		AuthorName  string `env:"PUBLISH_AUTHOR_NAME" yaml:"authorName"`
		AuthorEmail string `env:"PUBLISH_AUTHOR_EMAIL" yaml:"authorEmail"`
	} `yaml:"publish"`

	// Metrics configures the run statistics export.
	Metrics struct {
		// TextfilePath is where metrics are written after each run. Empty disables the export.
		TextfilePath string `env:"METRICS_TEXTFILE_PATH" yaml:"textfilePath"`
	} `yaml:"metrics"`
}

// Validate checks the values the pipeline depends on.
func (c *Config) Validate() error {
	switch {
	case len(c.Inputs) == 0:
		return serrors.With(serrors.ErrBadRequest, "no inputs configured")
	case c.Aggregation.Threshold <= 0:
		return serrors.With(serrors.ErrBadRequest, "aggregation threshold must be positive")
	case c.Aggregation.IPv6GroupBits < 0 || c.Aggregation.IPv6GroupBits >= 128:
		return serrors.With(serrors.ErrBadRequest, "ipv6 group bits must be between 0 and 127")
	case c.Limits.MaxEntries <= 0:
		return serrors.With(serrors.ErrBadRequest, "max entries must be positive")
	case c.Limits.MaxAnnotationLength <= 5:
		return serrors.With(serrors.ErrBadRequest, "max annotation length must be greater than 5")
	case c.Limits.MaxSizeBytes <= 0:
		return serrors.With(serrors.ErrBadRequest, "max size must be positive")
	case c.Enrichment.Concurrency <= 0:
		return serrors.With(serrors.ErrBadRequest, "enrichment concurrency must be positive")
	}

	switch c.Enrichment.Provider {
	case ProviderIPWhois, ProviderGeoIP, ProviderNone:
	default:
		return serrors.With(serrors.ErrBadRequest, "unknown enrichment provider %q", c.Enrichment.Provider)
	}

	for i, in := range c.Inputs {
		if in.Path == "" || in.Output == "" {
			return serrors.With(serrors.ErrBadRequest, "input %d needs both path and output", i)
		}
	}

	return nil
}

// Load receives the path for yaml config file and returns a filled, validated Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
