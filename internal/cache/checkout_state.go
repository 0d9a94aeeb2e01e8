package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const checkoutSessionCacheTTL = 2 * time.Minute

// ErrLockNotAcquired 锁已被占用
var ErrLockNotAcquired = errors.New("cache lock not acquired")

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock 分布式互斥锁句柄
type Lock struct {
	key   string
	token string
}

func checkoutPayLockKey(sessionID uint) string {
	return fmt.Sprintf("checkout:pay_lock:%d", sessionID)
}

func checkoutSessionKey(sessionID uint) string {
	return fmt.Sprintf("checkout:session:%d", sessionID)
}

// AcquireCheckoutPayLock 获取结算会话支付锁
// Redis 未启用时直接返回空锁，由数据库行锁兜底
func AcquireCheckoutPayLock(ctx context.Context, sessionID uint, ttl time.Duration) (*Lock, error) {
	if !Enabled() {
		return &Lock{}, nil
	}
	key := buildKey(checkoutPayLockKey(sessionID))
	token := uuid.NewString()
	ok, err := redisClient.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &Lock{key: key, token: token}, nil
}

// Release 释放锁（仅释放自己持有的锁）
func (l *Lock) Release(ctx context.Context) error {
	if l == nil || l.key == "" || !Enabled() {
		return nil
	}
	return unlockScript.Run(ctx, redisClient, []string{l.key}, l.token).Err()
}

// GetCheckoutSession 读取结算会话视图缓存
func GetCheckoutSession(ctx context.Context, sessionID uint, dest interface{}) (bool, error) {
	return GetJSON(ctx, checkoutSessionKey(sessionID), dest)
}

// SetCheckoutSession 写入结算会话视图缓存
func SetCheckoutSession(ctx context.Context, sessionID uint, view interface{}) error {
	return SetJSON(ctx, checkoutSessionKey(sessionID), view, checkoutSessionCacheTTL)
}

// InvalidateCheckoutSession 删除结算会话视图缓存
func InvalidateCheckoutSession(ctx context.Context, sessionID uint) error {
	return Del(ctx, checkoutSessionKey(sessionID))
}
