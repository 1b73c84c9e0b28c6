// Package status mirrors hub occupancy into redis so lobby pages can list
// the server without speaking its protocol.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cfoust/courtroom/pkg/gameserver"
	"github.com/cfoust/courtroom/pkg/utils"

	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog/log"
)

type RedisSettings struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Prefix of every key written, e.g. courtroom:status
	Key string `yaml:"key"`
	// Seconds a hub entry survives without being refreshed
	TTL int `yaml:"ttl"`
}

func (r RedisSettings) ttl() time.Duration {
	if r.TTL <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.TTL) * time.Second
}

type Publisher struct {
	client   *redis.Client
	settings RedisSettings
}

func NewPublisher(settings RedisSettings) *Publisher {
	return &Publisher{
		client: redis.NewClient(&redis.Options{
			Addr:     settings.Address,
			Password: settings.Password,
			DB:       settings.DB,
		}),
		settings: settings,
	}
}

// NewPublisherWithClient is for callers that already hold a client.
func NewPublisherWithClient(client *redis.Client, settings RedisSettings) *Publisher {
	return &Publisher{client: client, settings: settings}
}

func (p *Publisher) hubKey(hub int) string {
	prefix := p.settings.Key
	if prefix == "" {
		prefix = "courtroom:status"
	}
	return fmt.Sprintf("%s:hub:%d", prefix, hub)
}

// Publish writes one hub's status along with a running total.
func (p *Publisher) Publish(ctx context.Context, status gameserver.HubStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}

	pipe := p.client.Pipeline()
	pipe.Set(ctx, p.hubKey(status.Hub), data, p.settings.ttl())
	pipe.Set(ctx, p.hubKey(status.Hub)+":players", status.Players, p.settings.ttl())
	_, err = pipe.Exec(ctx)
	return err
}

// Load reads back a hub's last published status.
func (p *Publisher) Load(ctx context.Context, hub int) (*gameserver.HubStatus, error) {
	data, err := p.client.Get(ctx, p.hubKey(hub)).Bytes()
	if err != nil {
		return nil, err
	}

	var status gameserver.HubStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Poll publishes every status from the topic until ctx ends. Redis being
// down never reaches the game server; failures are only logged.
func (p *Publisher) Poll(ctx context.Context, topic *utils.Topic[gameserver.HubStatus]) {
	subscriber := topic.Subscribe()
	defer subscriber.Done()

	logger := log.With().Str("component", "status").Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case status := <-subscriber.Recv():
			publishCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := p.Publish(publishCtx, status)
			cancel()
			if err != nil {
				logger.Warn().Err(err).Int("hub", status.Hub).Msg("failed to publish status")
			}
		}
	}
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
