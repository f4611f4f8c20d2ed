package model

import "time"

// Config holds the complete copomatas configuration
type Config struct {
	Source      SourceConfig      `yaml:"source" mapstructure:"source"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// SourceConfig locates the upstream BCB endpoints
type SourceConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	LegacyCatalog  string `yaml:"legacy_catalog" mapstructure:"legacy_catalog"`
	CurrentCatalog string `yaml:"current_catalog" mapstructure:"current_catalog"`
	ContentLookup  string `yaml:"content_lookup" mapstructure:"content_lookup"`
}

// LegacyCatalogURL returns the absolute URL of the legacy catalog
func (s SourceConfig) LegacyCatalogURL() string {
	return s.BaseURL + s.LegacyCatalog
}

// CurrentCatalogURL returns the absolute URL of the current catalog
func (s SourceConfig) CurrentCatalogURL() string {
	return s.BaseURL + s.CurrentCatalog
}

// HTTPConfig controls the upstream HTTP client
type HTTPConfig struct {
	// Zero values disable the timeout, the body cap and the rate limit.
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls the upstream response cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ConcurrencyConfig controls content fetching fan-out
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls where partitions are written
type OutputConfig struct {
	PDFPath    string   `yaml:"pdf_path" mapstructure:"pdf_path"`
	HTMLPath   string   `yaml:"html_path" mapstructure:"html_path"`
	CreateDirs bool     `yaml:"create_dirs" mapstructure:"create_dirs"`
	Progress   bool     `yaml:"progress" mapstructure:"progress"`
	S3         S3Config `yaml:"s3" mapstructure:"s3"`
}

// PathFor returns the output path of the partition holding docType records
func (o OutputConfig) PathFor(docType DocumentType) string {
	if docType == DocumentTypeHTML {
		return o.HTMLPath
	}
	return o.PDFPath
}

// S3Config enables publishing the output files; an empty bucket disables it
type S3Config struct {
	Bucket   string `yaml:"bucket" mapstructure:"bucket"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
	Region   string `yaml:"region" mapstructure:"region"`
	Endpoint string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
}

// LogConfig controls the logger
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns the configuration matching the published BCB endpoints
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL:        "https://www.bcb.gov.br",
			LegacyCatalog:  "/api/servico/sitebcb/atascopom-conteudo/ultimas?quantidade=1000&filtro=",
			CurrentCatalog: "/api/servico/sitebcb/atascopom/ultimas?quantidade=1000&filtro=",
			ContentLookup:  "/api/servico/sitebcb/atascopom-conteudo/principal",
		},
		HTTP: HTTPConfig{
			UserAgent: "copomatas/0.1 (+https://github.com/ppiankov/copomatas)",
			Burst:     1,
		},
		Cache: CacheConfig{
			Dir: ".copomatas-cache",
			TTL: 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 1,
		},
		Output: OutputConfig{
			PDFPath:  "assets/df_pdfs.parquet",
			HTMLPath: "assets/df_htmls.parquet",
			Progress: true,
			S3: S3Config{
				Prefix: "copom/",
				Region: "sa-east-1",
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
