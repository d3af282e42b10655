package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tolkBack/internal/models"
)

const delayedPushKey = "push:delayed"

// RedisDelayQueue holds push notifications scheduled for later delivery in a
// sorted set scored by the delivery timestamp.
type RedisDelayQueue struct {
	RDB *redis.Client
}

func NewRedisDelayQueue(rdb *redis.Client) *RedisDelayQueue {
	return &RedisDelayQueue{RDB: rdb}
}

func (q *RedisDelayQueue) Schedule(ctx context.Context, n models.PushNotification, at time.Time) error {
	n.SendAfter = &at
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return q.RDB.ZAdd(ctx, delayedPushKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: string(payload),
	}).Err()
}

// PopDue removes and returns every notification whose delivery time has passed.
func (q *RedisDelayQueue) PopDue(ctx context.Context, now time.Time) ([]models.PushNotification, error) {
	members, err := q.RDB.ZRangeByScore(ctx, delayedPushKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	notifications := make([]models.PushNotification, 0, len(members))
	for _, member := range members {
		var n models.PushNotification
		if err := json.Unmarshal([]byte(member), &n); err != nil {
			// drop unparseable entries so they don't wedge the queue
			q.RDB.ZRem(ctx, delayedPushKey, member)
			continue
		}
		// ZRem doubles as the claim: a competing flusher that already removed
		// the member sees 0 here and must not deliver it again
		removed, err := q.RDB.ZRem(ctx, delayedPushKey, member).Result()
		if err != nil {
			return nil, err
		}
		if removed == 0 {
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}
