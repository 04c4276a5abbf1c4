package repository

import (
	"github.com/navikt/zmeet/internal/config"
	"github.com/navikt/zmeet/internal/log"
	"github.com/navikt/zmeet/internal/repository/memory"
	"github.com/navikt/zmeet/internal/repository/redis"
)

// NewRepository returns the Redis repository when Redis is enabled and the
// in-memory repository otherwise
func NewRepository(cfg config.RedisConfig) (Repository, error) {
	if !cfg.Enabled {
		log.Infof("Redis disabled, using in-memory session store")
		return memory.NewRepository(), nil
	}

	repo, err := redis.NewRepository(cfg)
	if err != nil {
		return nil, err
	}
	log.Infof("Using Redis session store with key prefix %q", cfg.KeyPrefix)
	return repo, nil
}
