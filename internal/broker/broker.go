// Package broker wraps the Redis pub/sub bus shared by the ingest and API
// processes. The bus does the actual fan-out; this process only publishes
// one compact message per cycle per channel.
package broker

import (
	"context"

	"github.com/redis/go-redis/v9"

	"stroomweg/internal/config"
)

const (
	ChannelSpeeds       = "speeds"
	ChannelJourneyTimes = "journey-times"

	// Freshness markers: timestamp of the most recent successfully
	// published batch, read by the query endpoints and health checks.
	KeySpeedsTimestamp      = "speeds:timestamp"
	KeyJourneyTimeTimestamp = "jt:timestamp"
)

// KnownChannel reports whether name is a subscribable live channel.
func KnownChannel(name string) bool {
	return name == ChannelSpeeds || name == ChannelJourneyTimes
}

func Open(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
