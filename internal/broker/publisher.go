package broker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stroomweg/internal/wire"
)

// Publisher compacts normalized batches onto the bus and records the cycle
// timestamp as a freshness marker. Publish failures never roll back or retry
// persistence; the caller logs and moves on.
type Publisher struct {
	Redis  *redis.Client
	Logger *zap.Logger
}

func (p *Publisher) PublishSpeeds(ctx context.Context, batch wire.SpeedBatch) error {
	if p == nil || p.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	ts := ""
	if len(batch) > 0 {
		ts = batch[0].Timestamp
	}
	if err := p.Redis.Set(ctx, KeySpeedsTimestamp, ts, 0).Err(); err != nil {
		return err
	}
	if err := p.Redis.Publish(ctx, ChannelSpeeds, payload).Err(); err != nil {
		return err
	}
	if p.Logger != nil {
		p.Logger.Debug("published speed batch",
			zap.Int("sites", len(batch)),
			zap.String("timestamp", ts),
		)
	}
	return nil
}

func (p *Publisher) PublishJourneyTimes(ctx context.Context, batch wire.JourneyTimeBatch) error {
	if p == nil || p.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	if err := p.Redis.Set(ctx, KeyJourneyTimeTimestamp, batch.Timestamp, 0).Err(); err != nil {
		return err
	}
	if err := p.Redis.Publish(ctx, ChannelJourneyTimes, payload).Err(); err != nil {
		return err
	}
	if p.Logger != nil {
		p.Logger.Debug("published journey time batch",
			zap.Int("segments", len(batch.Segments)),
			zap.String("timestamp", batch.Timestamp),
		)
	}
	return nil
}
