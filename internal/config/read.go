package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nDmitry/spacetraveling/internal/entity"
	"github.com/spf13/viper"
)

const envPrefix = "SPACETRAVELING"

// Read loads the configuration from defaults, an optional config file and the environment.
// An empty configPath skips the file.
func Read(configPath string) (*entity.Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Variables shared with the rest of the deployment keep their plain names.
	bindings := map[string]string{
		"http.port":            "HTTP_SERVER_PORT",
		"redis.host":           "REDIS_HOST",
		"prismic.endpoint":     "PRISMIC_API_ENDPOINT",
		"prismic.access_token": "PRISMIC_ACCESS_TOKEN",
		"session.secret":       "SESSION_SECRET",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	var config entity.Config

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("cache.ttl", 60*time.Minute)
	v.SetDefault("prismic.endpoint", "")
	v.SetDefault("prismic.access_token", "")
	v.SetDefault("prismic.document_type", "posts")
	v.SetDefault("prismic.page_size", 5)
	v.SetDefault("prismic.timeout", 10*time.Second)
	v.SetDefault("site.title", "spacetraveling")
	v.SetDefault("site.base_url", "http://localhost:8080")
	v.SetDefault("site.locale", "pt-BR")
	v.SetDefault("site.timezone", "UTC")
	v.SetDefault("site.words_per_minute", 200)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.limit", 10000)
	v.SetDefault("article.fallback_wait", 3*time.Second)
	v.SetDefault("log.level", "info")
}

func validate(config *entity.Config) error {
	var errs []error

	if config.Prismic.Endpoint == "" {
		errs = append(errs, errors.New("prismic.endpoint is required"))
	} else if u, err := url.Parse(config.Prismic.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("prismic.endpoint must be an absolute URL: %q", config.Prismic.Endpoint))
	}

	if config.Prismic.PageSize < 1 || config.Prismic.PageSize > 100 {
		errs = append(errs, errors.New("prismic.page_size must be between 1 and 100"))
	}

	if config.Prismic.DocumentType == "" {
		errs = append(errs, errors.New("prismic.document_type is required"))
	}

	if config.Site.WordsPerMinute < 1 {
		errs = append(errs, errors.New("site.words_per_minute must be positive"))
	}

	if _, err := time.LoadLocation(config.Site.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("site.timezone: %w", err))
	}

	if config.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must be non-negative"))
	}

	if config.Session.Limit < 0 {
		errs = append(errs, errors.New("session.limit must be non-negative"))
	}

	return errors.Join(errs...)
}
