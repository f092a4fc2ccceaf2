// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err, "persistent database without a path")

	cfg := InMemoryConfig()
	cfg.GCDiscardRatio = 1.5
	_, err = Open(cfg)
	assert.Error(t, err)
}

func TestOpen_PersistentWithGC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = 10 * time.Millisecond

	db, err := Open(cfg)
	require.NoError(t, err)
	assert.False(t, db.InMemory())

	ctx := context.Background()
	require.NoError(t, db.WithTxn(ctx, func(txn *badger.Txn) error {
		return SetJSON(txn, "k", item{Name: "a", N: 1})
	}))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, db.Close())

	db, err = Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	var got item
	require.NoError(t, db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return GetJSON(txn, "k", &got)
	}))
	assert.Equal(t, item{Name: "a", N: 1}, got)
}

func TestJSONHelpers(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	assert.True(t, db.InMemory())

	require.NoError(t, db.WithTxn(ctx, func(txn *badger.Txn) error {
		for _, it := range []item{{"b", 2}, {"a", 1}, {"c", 3}} {
			if err := SetJSON(txn, "item/"+it.Name, it); err != nil {
				return err
			}
		}
		return SetJSON(txn, "other/x", item{Name: "x"})
	}))

	err := db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		var got item
		err := GetJSON(txn, "item/missing", &got)
		assert.ErrorIs(t, err, ErrNotFound)

		ok, err := Exists(txn, "item/a")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = Exists(txn, "item/z")
		require.NoError(t, err)
		assert.False(t, ok)

		var names []string
		err = ScanJSON(txn, "item/", func(key string, decode func(any) error) error {
			var it item
			if err := decode(&it); err != nil {
				return err
			}
			names = append(names, it.Name)
			assert.Equal(t, "item/"+it.Name, key)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, names)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := Delete(txn, "item/a"); err != nil {
			return err
		}
		return Delete(txn, "item/never")
	}))
	require.NoError(t, db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		ok, err := Exists(txn, "item/a")
		assert.False(t, ok)
		return err
	}))
}

func TestTxn_CancelledContext(t *testing.T) {
	db := openTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := db.WithTxn(ctx, func(*badger.Txn) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)

	err = db.WithReadTxn(ctx, func(*badger.Txn) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
