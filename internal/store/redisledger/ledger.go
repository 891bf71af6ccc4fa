// Package redisledger mirrors idle-since timestamps of empty rooms into
// redis, so a restarted process keeps the original eviction deadlines.
package redisledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/domain"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

type Ledger struct {
	client *redis.Client
}

// Dial connects and pings redis.
func Dial(ctx context.Context, opts Options) (*Ledger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return New(client), nil
}

func New(client *redis.Client) *Ledger { return &Ledger{client: client} }

// idle key: tempvoice:idle:<guild>, field: room id, value: unix millis
func idleKey(guild domain.GuildID) string { return "tempvoice:idle:" + string(guild) }

func (l *Ledger) Record(ctx context.Context, guild domain.GuildID, room domain.ChannelID, since time.Time) error {
	return l.client.HSet(ctx, idleKey(guild), string(room), since.UnixMilli()).Err()
}

func (l *Ledger) Clear(ctx context.Context, guild domain.GuildID, room domain.ChannelID) error {
	return l.client.HDel(ctx, idleKey(guild), string(room)).Err()
}

func (l *Ledger) Load(ctx context.Context, guild domain.GuildID) (map[domain.ChannelID]time.Time, error) {
	raw, err := l.client.HGetAll(ctx, idleKey(guild)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ChannelID]time.Time, len(raw))
	for room, v := range raw {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Warn().Str("module", "store.redis").Str("guild", string(guild)).Str("room", room).
				Str("value", v).Msg("dropping unparsable idle timestamp")
			continue
		}
		out[domain.ChannelID(room)] = time.UnixMilli(ms)
	}
	return out, nil
}

func (l *Ledger) Drop(ctx context.Context, guild domain.GuildID) error {
	return l.client.Del(ctx, idleKey(guild)).Err()
}

func (l *Ledger) Close() error { return l.client.Close() }
