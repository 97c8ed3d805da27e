package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
)

// RedisCellRepository stores the cell list as one JSON document under a single key,
// so every ReplaceAll is a single atomic SET.
type RedisCellRepository struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisCellRepository(client *redis.Client, keyPrefix string) *RedisCellRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisCellRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "grid:"
	}
	return &RedisCellRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisCellRepository) cellsKey() string {
	return r.keyPrefix + "cells"
}

func (r *RedisCellRepository) revisionKey() string {
	return r.keyPrefix + "revision"
}

// FetchAll reads the stored list; a missing key is an empty grid.
func (r *RedisCellRepository) FetchAll(ctx context.Context) ([]domain.Cell, error) {
	key := r.cellsKey()
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []domain.Cell{}, nil
		}
		return nil, fmt.Errorf("redis: failed to get cells from %s: %v: %w", key, err, repository.ErrTransport)
	}
	var cells []domain.Cell
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, fmt.Errorf("redis: failed to decode cells from %s: %v: %w", key, err, repository.ErrMalformedResponse)
	}
	if cells == nil {
		cells = []domain.Cell{}
	}
	return cells, nil
}

// ReplaceAll overwrites the list and bumps the revision counter in one MULTI/EXEC.
func (r *RedisCellRepository) ReplaceAll(ctx context.Context, cells []domain.Cell) error {
	payload, err := encodeCells(cells)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		r.queueReplace(ctx, pipe, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: failed to replace cells on %s: %v: %w", r.cellsKey(), err, repository.ErrTransport)
	}
	logrus.WithFields(logrus.Fields{"key": r.cellsKey(), "cells": len(cells)}).Debug("redis: cells replaced")
	return nil
}

// ReplaceAllAt is ReplaceAll guarded by WATCH on the revision key: the write is
// refused when the revision moved past the expected one, including a move that
// races the check.
func (r *RedisCellRepository) ReplaceAllAt(ctx context.Context, cells []domain.Cell, revision int64) error {
	payload, err := encodeCells(cells)
	if err != nil {
		return err
	}
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readRevision(ctx, tx, r.revisionKey())
		if err != nil {
			return err
		}
		if current != revision {
			return fmt.Errorf("redis: revision is %d, write was issued at %d: %w", current, revision, repository.ErrStaleRevision)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			r.queueReplace(ctx, pipe, payload)
			return nil
		})
		return err
	}, r.revisionKey())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStaleRevision):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("redis: revision changed during write issued at %d: %w", revision, repository.ErrStaleRevision)
	}
	return fmt.Errorf("redis: failed to replace cells on %s: %v: %w", r.cellsKey(), err, repository.ErrTransport)
}

// Revision returns how many times the list has been replaced.
func (r *RedisCellRepository) Revision(ctx context.Context) (int64, error) {
	n, err := readRevision(ctx, r.client, r.revisionKey())
	if err != nil {
		return 0, fmt.Errorf("redis: failed to read revision: %v: %w", err, repository.ErrTransport)
	}
	return n, nil
}

func (r *RedisCellRepository) queueReplace(ctx context.Context, pipe redis.Pipeliner, payload []byte) {
	pipe.Set(ctx, r.cellsKey(), payload, 0)
	pipe.Incr(ctx, r.revisionKey())
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readRevision(ctx context.Context, c getter, key string) (int64, error) {
	n, err := c.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func encodeCells(cells []domain.Cell) ([]byte, error) {
	if cells == nil {
		cells = []domain.Cell{}
	}
	payload, err := json.Marshal(cells)
	if err != nil {
		return nil, fmt.Errorf("redis: failed to encode %d cells: %w", len(cells), err)
	}
	return payload, nil
}
