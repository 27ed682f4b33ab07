package entity

import "time"

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Prismic PrismicConfig `mapstructure:"prismic"`
	Site    SiteConfig    `mapstructure:"site"`
	Session SessionConfig `mapstructure:"session"`
	Article ArticleConfig `mapstructure:"article"`
	Log     LogConfig     `mapstructure:"log"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

type RedisConfig struct {
	// Host may be empty, in which case pages are not cached.
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type CacheConfig struct {
	// TTL is the revalidation window of generated pages.
	TTL time.Duration `mapstructure:"ttl"`
}

type PrismicConfig struct {
	// Endpoint is the API root, e.g. https://repo.cdn.prismic.io/api/v2.
	Endpoint     string        `mapstructure:"endpoint"`
	AccessToken  string        `mapstructure:"access_token"`
	DocumentType string        `mapstructure:"document_type"`
	PageSize     int           `mapstructure:"page_size"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type SiteConfig struct {
	Title          string `mapstructure:"title"`
	BaseURL        string `mapstructure:"base_url"`
	Locale         string `mapstructure:"locale"`
	Timezone       string `mapstructure:"timezone"`
	WordsPerMinute int    `mapstructure:"words_per_minute"`
}

type SessionConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	// Limit caps the number of live listing sessions, zero means no cap.
	Limit int `mapstructure:"limit"`
}

type ArticleConfig struct {
	// FallbackWait is how long a request waits for a page being generated
	// before the loading page is served instead.
	FallbackWait time.Duration `mapstructure:"fallback_wait"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}
