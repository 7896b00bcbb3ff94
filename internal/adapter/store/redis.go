package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/ports"
)

// Key layout: one JSON value per entity plus a per-EVSE pointer to the most
// recent active entry, so bridge instances can share live roaming state.
const (
	sessionKeyPrefix        = "roaming:session:"
	sessionLatestKeyPrefix  = "roaming:session:evse:"
	reservationKeyPrefix    = "roaming:reservation:"
	reservationLatestPrefix = "roaming:reservation:evse:"

	defaultTTL = 48 * time.Hour
)

func NewRedisClient(url string, log *zap.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Successfully connected to Redis")
	return client, nil
}

// RedisSessionStore persists charging sessions in Redis.
type RedisSessionStore struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisSessionStore(client *redis.Client, log *zap.Logger) ports.SessionStore {
	return &RedisSessionStore{client: client, log: log}
}

func (s *RedisSessionStore) Save(ctx context.Context, session *domain.ChargingSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.ID, payload, defaultTTL).Err(); err != nil {
		return err
	}

	latestKey := sessionLatestKeyPrefix + session.EVSEID.String()
	if session.Status == domain.SessionStatusActive {
		return s.client.Set(ctx, latestKey, session.ID, defaultTTL).Err()
	}
	return s.client.Del(ctx, latestKey).Err()
}

func (s *RedisSessionStore) TryGet(ctx context.Context, id string) (*domain.ChargingSession, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session domain.ChargingSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &session, nil
}

func (s *RedisSessionStore) TryGetLatest(ctx context.Context, evseID domain.EVSEID) (*domain.ChargingSession, error) {
	id, err := s.client.Get(ctx, sessionLatestKeyPrefix+evseID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.TryGet(ctx, id)
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.TryGet(ctx, id)
	if err != nil {
		return err
	}
	if session != nil {
		if err := s.client.Del(ctx, sessionLatestKeyPrefix+session.EVSEID.String()).Err(); err != nil {
			s.log.Warn("Failed to drop latest-session pointer", zap.Error(err))
		}
	}
	return s.client.Del(ctx, sessionKeyPrefix+id).Err()
}

// RedisReservationStore persists reservations in Redis.
type RedisReservationStore struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisReservationStore(client *redis.Client, log *zap.Logger) ports.ReservationStore {
	return &RedisReservationStore{client: client, log: log}
}

func (s *RedisReservationStore) Save(ctx context.Context, reservation *domain.Reservation) error {
	payload, err := json.Marshal(reservation)
	if err != nil {
		return fmt.Errorf("failed to encode reservation: %w", err)
	}
	if err := s.client.Set(ctx, reservationKeyPrefix+reservation.ID, payload, defaultTTL).Err(); err != nil {
		return err
	}

	latestKey := reservationLatestPrefix + reservation.EVSEID.String()
	if reservation.Status == domain.ReservationStatusActive {
		return s.client.Set(ctx, latestKey, reservation.ID, defaultTTL).Err()
	}
	return s.client.Del(ctx, latestKey).Err()
}

func (s *RedisReservationStore) TryGet(ctx context.Context, id string) (*domain.Reservation, error) {
	raw, err := s.client.Get(ctx, reservationKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var reservation domain.Reservation
	if err := json.Unmarshal(raw, &reservation); err != nil {
		return nil, fmt.Errorf("failed to decode reservation %s: %w", id, err)
	}
	return &reservation, nil
}

func (s *RedisReservationStore) TryGetLatest(ctx context.Context, evseID domain.EVSEID) (*domain.Reservation, error) {
	id, err := s.client.Get(ctx, reservationLatestPrefix+evseID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.TryGet(ctx, id)
}

func (s *RedisReservationStore) Delete(ctx context.Context, id string) error {
	reservation, err := s.TryGet(ctx, id)
	if err != nil {
		return err
	}
	if reservation != nil {
		if err := s.client.Del(ctx, reservationLatestPrefix+reservation.EVSEID.String()).Err(); err != nil {
			s.log.Warn("Failed to drop latest-reservation pointer", zap.Error(err))
		}
	}
	return s.client.Del(ctx, reservationKeyPrefix+id).Err()
}
