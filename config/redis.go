package config

import (
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// ProvideRedis connects the shared client used for rate limiting and the
// unread-count cache. Redis being down degrades both to direct store reads,
// so a failed connection is logged rather than fatal.
func ProvideRedis(config *Config) *redis.Client {
	if config.RedisUrl == "" {
		log.Warn().Msg("REDIS_URL not set, rate limiting and count cache disabled")
		return nil
	}

	options, err := redis.ParseURL(config.RedisUrl)
	if err != nil {
		log.Warn().Err(err).Msg("Could not parse redis url")
		return nil
	}

	client := redis.NewClient(options)

	if _, err = client.Ping(client.Context()).Result(); err != nil {
		log.Warn().Err(err).Msg("Could not reach redis")
		return nil
	}

	return client
}
