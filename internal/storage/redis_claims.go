package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// RedisClaims records file bindings with SETNX so exactly one caller wins.
type RedisClaims struct {
	client redis.UniversalClient
	prefix string
}

type claimRecord struct {
	Kind     domain.BindingKind `json:"kind"`
	ID       string             `json:"id"`
	TicketID string             `json:"ticket_id"`
	BoundBy  string             `json:"bound_by"`
}

// NewRedisClaims builds a claim registry under prefix.
func NewRedisClaims(client redis.UniversalClient, prefix string) *RedisClaims {
	if prefix == "" {
		prefix = "helpdesk:file-claim:"
	}
	return &RedisClaims{client: client, prefix: prefix}
}

func (c *RedisClaims) key(id string) string {
	return c.prefix + id
}

// Claim binds id to target unless another binding exists.
func (c *RedisClaims) Claim(ctx context.Context, id string, target domain.AttachmentTarget, boundBy string) error {
	body, err := json.Marshal(claimRecord{Kind: target.Kind, ID: target.ID, TicketID: target.TicketID, BoundBy: boundBy})
	if err != nil {
		return fmt.Errorf("encode claim: %w", err)
	}
	ok, err := c.client.SetNX(ctx, c.key(id), body, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrAlreadyClaimed
	}
	return nil
}

// Get returns the current binding of id, or nil.
func (c *RedisClaims) Get(ctx context.Context, id string) (*domain.AttachmentTarget, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeClaim(raw)
}

// Release removes the binding only while target still holds it.
func (c *RedisClaims) Release(ctx context.Context, id string, target domain.AttachmentTarget) error {
	key := c.key(id)
	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		current, err := decodeClaim(raw)
		if err != nil {
			return err
		}
		if current.ID != target.ID {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			return nil
		})
		return err
	}, key)
}

func decodeClaim(raw []byte) (*domain.AttachmentTarget, error) {
	var rec claimRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode claim: %w", err)
	}
	return &domain.AttachmentTarget{Kind: rec.Kind, ID: rec.ID, TicketID: rec.TicketID}, nil
}
