package lock

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript só apaga a chave se o token ainda for o nosso; um lock que
// expirou e foi pego por outro processo não é liberado por engano.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker é o lock distribuído (SET NX PX) usado quando webhook e sync
// rodam em processos diferentes.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

func NewRedisLocker(redisURL string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisLockerWithClient(client), nil
}

func NewRedisLockerWithClient(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: "lock:",
		ttl:    2 * time.Minute,
		poll:   100 * time.Millisecond,
	}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, wait time.Duration) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.New().String()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis SETNX %s: %w", redisKey, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotAcquired)
		}

		select {
		case <-time.After(l.poll):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *RedisLocker) releaser(redisKey, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			log.Printf("⚠️ falha ao liberar lock %s: %v", redisKey, err)
		}
	}
}

func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
