package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"campus-registrar/backend/config"
)

// ErrLockHeld 锁已被其他请求持有
var ErrLockHeld = errors.New("资源正被其他操作占用，请稍后重试")

// Client Redis 客户端封装
// 用于批量建班互斥锁与写接口限流；未连接时调用方降级运行
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 分布式锁 ──

const lockPrefix = "lock:"

// 仅当值匹配时删除，避免误删他人在锁超时后重新获取的锁
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock 已获取的锁
type Lock struct {
	client *Client
	key    string
	token  string
}

// AcquireLock SET NX 获取锁；已被占用时返回 ErrLockHeld
func (c *Client) AcquireLock(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	key := lockPrefix + name
	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{client: c, key: key, token: token}, nil
}

// Release 释放锁
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := unlockScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Err(); err != nil {
		l.client.logger.Warn("释放锁失败", zap.String("key", l.key), zap.Error(err))
		return err
	}
	return nil
}

// ── 限流 ──

// CheckRateLimit 滑动窗口计数：窗口内请求数不超过 limit 时返回 true
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()[:8]
	minScore := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", minScore)
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
