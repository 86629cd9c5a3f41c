package store

import (
	"context"

	"github.com/Deng1Qsx2Wdc/geminixiang/internal/config"
	"github.com/go-redis/redis/v8"
	"github.com/zatxm/fhblade"
)

const redisStateKey = "geminixiang:conversation_state"

type redisStore struct {
	rdb *redis.Client
}

func NewRedisStore(cfg *config.Config) (Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &redisStore{rdb: rdb}, nil
}

func (r *redisStore) Load(ctx context.Context) (*State, error) {
	data, err := r.rdb.Get(ctx, redisStateKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return &State{}, nil
		}
		return nil, err
	}
	s := &State{}
	if err := fhblade.Json.Unmarshal(data, s); err != nil {
		return &State{}, nil
	}
	return s, nil
}

func (r *redisStore) Save(ctx context.Context, s *State) error {
	data, err := fhblade.Json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, redisStateKey, data, 0).Err()
}

func (r *redisStore) Reset(ctx context.Context) error {
	return r.rdb.Del(ctx, redisStateKey).Err()
}
