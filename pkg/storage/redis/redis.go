package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/c14220110/poliklinik-treatment/config"
)

// Connect membuka koneksi Redis. Jika REDIS_ADDR kosong, nil dikembalikan
// dan cache lookup katalog berjalan tanpa Redis.
func Connect(cfg *config.Config) (*goredis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
