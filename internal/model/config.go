package model

import (
	"fmt"
	"time"
)

// Config is the complete typed configuration for the pipeline.
// Every section is an explicit struct validated at load time.
type Config struct {
	Project     ProjectConfig     `yaml:"project" mapstructure:"project"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Geonames    GeonamesConfig    `yaml:"geonames" mapstructure:"geonames"`
	Countries   CountriesConfig   `yaml:"countries" mapstructure:"countries"`
	LexisNexis  LexisNexisConfig  `yaml:"lexisnexis" mapstructure:"lexisnexis"`
	Topography  TopographyConfig  `yaml:"topography" mapstructure:"topography"`
	Annotation  AnnotationConfig  `yaml:"annotation" mapstructure:"annotation"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit   RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
}

// ProjectConfig holds project-wide settings.
type ProjectConfig struct {
	// Language is the ISO 639-1 code used to select alternate place names
	// and country name translations.
	Language string `yaml:"language" mapstructure:"language"`
}

// PathsConfig locates every on-disk table and stage directory.
type PathsConfig struct {
	Resources     string `yaml:"resources" mapstructure:"resources"`
	Parameters    string `yaml:"parameters" mapstructure:"parameters"`
	DataRaw       string `yaml:"data_raw" mapstructure:"data_raw"`
	DataInterim   string `yaml:"data_interim" mapstructure:"data_interim"`
	DataProcessed string `yaml:"data_processed" mapstructure:"data_processed"`
	Results       string `yaml:"results" mapstructure:"results"`
	Model         string `yaml:"model" mapstructure:"model"`
	Cache         string `yaml:"cache" mapstructure:"cache"`
}

// HTTPConfig configures outbound fetches (geodata downloads, country data).
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	// ProxyHTTP and ProxyHTTPS override the environment proxy settings.
	ProxyHTTP  string `yaml:"proxy_http" mapstructure:"proxy_http"`
	ProxyHTTPS string `yaml:"proxy_https" mapstructure:"proxy_https"`
}

// GeonamesConfig describes the geonames dump to gather and load.
type GeonamesConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Datasets are file names under BaseURL; zips are extracted in place.
	Datasets []string `yaml:"datasets" mapstructure:"datasets"`
	// CitiesFile is the table with the city records.
	CitiesFile string `yaml:"cities_file" mapstructure:"cities_file"`
}

// CountriesConfig describes the country metadata source.
type CountriesConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
	// AliasFile is a JSON object mapping a canonical country name to a
	// list of alternate spellings. Empty disables alias injection.
	AliasFile string `yaml:"alias_file" mapstructure:"alias_file"`
}

// LexisNexisConfig controls extraction of the news-archive batches.
type LexisNexisConfig struct {
	Batches []string `yaml:"batches" mapstructure:"batches"`
	// BaseURL is the common prefix of article links in the docx rels part.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// DateLayout parses the publication date after DateSplit removed its
	// redundant tail.
	DateLayout string `yaml:"date_layout" mapstructure:"date_layout"`
	DateSplit  string `yaml:"date_split" mapstructure:"date_split"`
	// ParagraphThreshold: paragraphs occurring more often than this across
	// a batch are boilerplate and removed from every filtered body.
	ParagraphThreshold int          `yaml:"paragraph_threshold" mapstructure:"paragraph_threshold"`
	Filter             FilterConfig `yaml:"filter" mapstructure:"filter"`
}

// FilterConfig is the final record filter, a conjunction of the non-zero
// fields. Records that fail it are retained separately for audit.
type FilterConfig struct {
	Sections  []string `yaml:"sections" mapstructure:"sections"`
	MaxPage   int      `yaml:"max_page" mapstructure:"max_page"`
	MinLength int      `yaml:"min_length" mapstructure:"min_length"`
}

// TopographyConfig declares the place-name categories.
type TopographyConfig struct {
	Rules []RuleConfig `yaml:"rules" mapstructure:"rules"`
}

// RuleConfig is one typed predicate rule: a label plus filters over the
// joined gazetteer fields. Empty filters match everything.
type RuleConfig struct {
	Label            string   `yaml:"label" mapstructure:"label"`
	Countries        []string `yaml:"countries" mapstructure:"countries"`
	ExcludeCountries []string `yaml:"exclude_countries" mapstructure:"exclude_countries"`
	Admin1           []string `yaml:"admin1" mapstructure:"admin1"`
	ExcludeAdmin1    []string `yaml:"exclude_admin1" mapstructure:"exclude_admin1"`
	MinPopulation    int64    `yaml:"min_population" mapstructure:"min_population"`
}

// AnnotationConfig controls the interactive annotation sessions and the
// promotion gate.
type AnnotationConfig struct {
	SampleSize int `yaml:"sample_size" mapstructure:"sample_size"`
	// Threshold is the percent-positive a phrase must reach to be promoted.
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// ConcurrencyConfig sets worker counts for the tag stage.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitConfig throttles resource downloads per host.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Language: "nl",
		},
		Paths: PathsConfig{
			Resources:     "resources",
			Parameters:    "parameters",
			DataRaw:       "data/raw",
			DataInterim:   "data/interim",
			DataProcessed: "data/processed",
			Results:       "results",
			Model:         "model",
			Cache:         "cache",
		},
		HTTP: HTTPConfig{
			Timeout:      2 * time.Minute,
			UserAgent:    "toponym-extraction/0.1 (+https://github.com/lcvriend/toponym-extraction)",
			MaxBodyBytes: 50_000_000,
		},
		Geonames: GeonamesConfig{
			BaseURL: "https://download.geonames.org/export/dump/",
			Datasets: []string{
				"cities5000.zip",
				"alternateNamesV2.zip",
				"featureCodes_en.txt",
				"countryInfo.txt",
				"admin1CodesASCII.txt",
				"admin2Codes.txt",
			},
			CitiesFile: "cities5000.txt",
		},
		Countries: CountriesConfig{
			URL: "https://restcountries.com/v2/all",
		},
		LexisNexis: LexisNexisConfig{
			BaseURL:            "https://advance.lexis.com/api/document",
			DateLayout:         "2 January 2006 Monday",
			DateSplit:          ",",
			ParagraphThreshold: 2,
		},
		Topography: TopographyConfig{
			Rules: []RuleConfig{
				{Label: "places_uk", Countries: []string{"GB"}},
				{Label: "places_nl", Countries: []string{"NL"}, ExcludeAdmin1: []string{"02"}},
				{Label: "places_frl", Countries: []string{"NL"}, Admin1: []string{"02"}},
				{Label: "places_world", ExcludeCountries: []string{"GB", "NL"}},
			},
		},
		Annotation: AnnotationConfig{
			SampleSize: 5,
			Threshold:  100,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
	}
}

// Validate checks the configuration for values that would only fail deep
// inside a run.
func (c *Config) Validate() error {
	if c.Project.Language == "" {
		return fmt.Errorf("project.language must be set")
	}
	if c.Annotation.Threshold < 0 || c.Annotation.Threshold > 100 {
		return fmt.Errorf("annotation.threshold must be between 0 and 100, got %v", c.Annotation.Threshold)
	}
	if c.Annotation.SampleSize < 1 {
		return fmt.Errorf("annotation.sample_size must be at least 1, got %d", c.Annotation.SampleSize)
	}
	if c.Concurrency.Workers < 1 {
		return fmt.Errorf("concurrency.workers must be at least 1, got %d", c.Concurrency.Workers)
	}
	if c.LexisNexis.ParagraphThreshold < 1 {
		return fmt.Errorf("lexisnexis.paragraph_threshold must be at least 1, got %d", c.LexisNexis.ParagraphThreshold)
	}
	seen := make(map[string]bool)
	for _, rule := range c.Topography.Rules {
		if rule.Label == "" {
			return fmt.Errorf("topography rule without a label")
		}
		if seen[rule.Label] {
			return fmt.Errorf("duplicate topography label: %s", rule.Label)
		}
		seen[rule.Label] = true
	}
	return nil
}
