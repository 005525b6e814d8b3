package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/pathlight-hq/pathlight-backend/internal/clients/redis"
	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
)

type Clients struct {
	Redis    *goredis.Client
	EventBus redisclient.EventBus
	Throttle redisclient.Throttle
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	rdb, err := redisclient.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis client: %w", err)
	}

	var bus redisclient.EventBus
	if rdb != nil {
		b, err := redisclient.NewEventBus(log, rdb)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis event bus: %w", err)
		}
		bus = b
	} else {
		log.Warn("REDIS_ADDR not set; outbound events and emission throttling disabled")
	}

	return Clients{
		Redis:    rdb,
		EventBus: bus,
		Throttle: redisclient.NewThrottle(log, rdb),
	}, nil
}
