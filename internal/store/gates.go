// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/seek-irl/seekd/internal/models"
)

// ReadGate loads the identity's session gate.
func (s *Store) ReadGate(ctx context.Context, identityKey string) (models.SessionGate, bool, error) {
	var gate models.SessionGate
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixGate + identityKey))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &gate)
		})
	})
	if err != nil {
		return models.SessionGate{}, false, fmt.Errorf("read gate %s: %w", identityKey, err)
	}
	return gate, found, nil
}

// WriteGate stores the identity's session gate, replacing any prior one.
func (s *Store) WriteGate(ctx context.Context, gate models.SessionGate) error {
	if gate.IdentityKey == "" {
		return fmt.Errorf("write gate: empty identity key")
	}
	payload, err := json.Marshal(gate)
	if err != nil {
		return fmt.Errorf("marshal gate: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixGate+gate.IdentityKey), payload)
	})
	if err != nil {
		return fmt.Errorf("write gate %s: %w", gate.IdentityKey, err)
	}
	return nil
}
