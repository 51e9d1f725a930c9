package notify

import (
	"context"
	"encoding/json"
	"time"

	"tokenbot/internal/logger"
	"tokenbot/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const queueKey = "notifications"

// Service queues outbound notification events in redis. The chat
// transport consumes the list from the other end.
type Service struct {
	redis *redis.Client
}

func New(redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
	}
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) PaymentDecided(ctx context.Context, userID, paymentID int64, outcome string, newBalance *int64, note string) {
	s.publish(ctx, Event{
		Type:       TypePaymentDecided,
		UserID:     userID,
		PaymentID:  &paymentID,
		Outcome:    outcome,
		NewBalance: newBalance,
		Note:       note,
		Created:    time.Now(),
	})
}

func (s *Service) BalanceAdjusted(ctx context.Context, userID, delta, newBalance int64, note string) {
	s.publish(ctx, Event{
		Type:       TypeBalanceAdjusted,
		UserID:     userID,
		Delta:      &delta,
		NewBalance: &newBalance,
		Note:       note,
		Created:    time.Now(),
	})
}

func (s *Service) ContentUnlocked(ctx context.Context, userID, newBalance int64, note string) {
	s.publish(ctx, Event{
		Type:       TypeContentUnlocked,
		UserID:     userID,
		NewBalance: &newBalance,
		Note:       note,
		Created:    time.Now(),
	})
}

func (s *Service) publish(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("Failed to marshal notification event: %v", err)
		metrics.RecordNotification(event.Type, "error")
		return
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue %s notification for user %d: %v", event.Type, event.UserID, err)
		metrics.RecordNotification(event.Type, "error")
		return
	}

	metrics.RecordNotification(event.Type, "queued")
	logger.Debugf("Notification queued: %s for user %d", event.Type, event.UserID)
}

// Start samples the queue length for the metrics gauge until ctx is done.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification queue monitor started")

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification queue monitor stopped")
			return
		case <-ticker.C:
			length, err := s.redis.LLen(ctx, queueKey).Result()
			if err != nil {
				continue
			}
			metrics.NotifyQueueLength.Set(float64(length))
		}
	}
}
