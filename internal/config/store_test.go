package config

import (
	"context"
	"testing"
	"time"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("") // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Close()

	// Reopening runs the migrations again; they must be idempotent.
	s, err = NewStore(dir)
	if err != nil {
		t.Fatalf("reopen NewStore: %v", err)
	}
	s.Close()
}

func TestAPIKeyLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rawKey := "sm_key_abc123def456"
	hash := HashAPIKey(rawKey)

	key := &model.APIKey{
		KeyHash:   hash,
		KeyPrefix: rawKey[:10],
		Label:     "Test Key",
		IsActive:  true,
	}
	if err := s.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if key.ID == 0 {
		t.Fatal("expected non-zero ID after create")
	}

	got, err := s.GetAPIKeyByHash(ctx, hash)
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if got.Label != "Test Key" || !got.IsActive || got.LastUsed != nil {
		t.Errorf("unexpected key %+v", got)
	}

	keys, err := s.ListAPIKeys(ctx)
	if err != nil {
		t.Fatalf("ListAPIKeys: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("got %d keys, want 1", len(keys))
	}

	if err := s.UpdateAPIKeyLastUsed(ctx, key.ID); err != nil {
		t.Fatalf("UpdateAPIKeyLastUsed: %v", err)
	}
	got, _ = s.GetAPIKeyByHash(ctx, hash)
	if got.LastUsed == nil {
		t.Error("expected last_used to be set")
	}

	if _, err := s.GetAPIKeyByHash(ctx, HashAPIKey("unknown")); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokeAPIKeyByPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key1 := &model.APIKey{KeyHash: HashAPIKey("sm_key1_xxxxxxxxxx"), KeyPrefix: "sm_key1_xxx", Label: "Key 1", IsActive: true}
	key2 := &model.APIKey{KeyHash: HashAPIKey("sm_key2_yyyyyyyyyy"), KeyPrefix: "sm_key2_yyy", Label: "Key 2", IsActive: true}
	for _, k := range []*model.APIKey{key1, key2} {
		if err := s.CreateAPIKey(ctx, k); err != nil {
			t.Fatalf("CreateAPIKey: %v", err)
		}
	}

	if err := s.RevokeAPIKeyByPrefix(ctx, "sm_key1_xxx"); err != nil {
		t.Fatalf("RevokeAPIKeyByPrefix: %v", err)
	}

	got1, _ := s.GetAPIKeyByHash(ctx, key1.KeyHash)
	if got1.IsActive {
		t.Error("key1 should be inactive")
	}
	got2, _ := s.GetAPIKeyByHash(ctx, key2.KeyHash)
	if !got2.IsActive {
		t.Error("key2 should still be active")
	}

	// Revoking again should return ErrNotFound (already inactive).
	if err := s.RevokeAPIKeyByPrefix(ctx, "sm_key1_xxx"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound on second revoke, got %v", err)
	}
	if err := s.RevokeAPIKeyByPrefix(ctx, "nonexistent"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown prefix, got %v", err)
	}
}

func TestQueryHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []*model.QueryRecord{
		{Source: "http", Question: "how many products", SQL: "SELECT COUNT(*) FROM products", Model: "gemini-2.0-flash", Status: model.QueryStatusOK, RowCount: 1, TotalMs: 120},
		{Source: "cli", Question: "drop everything", Status: model.QueryStatusError, ErrorKind: "read_only_refusal", TotalMs: 80},
		{Source: "mcp", Question: "list warehouses", SQL: "SELECT name FROM warehouses", Status: model.QueryStatusOK, RowCount: 3, Truncated: true},
	}
	for _, r := range records {
		if err := s.RecordQuery(ctx, r); err != nil {
			t.Fatalf("RecordQuery: %v", err)
		}
		if r.ID == 0 || r.CreatedAt.IsZero() {
			t.Fatalf("record not populated: %+v", r)
		}
	}

	all, err := s.ListQueries(ctx, HistoryFilter{})
	if err != nil {
		t.Fatalf("ListQueries: %v", err)
	}
	if len(all) != 3 || all[0].Question != "list warehouses" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if !all[0].Truncated || all[0].Source != "mcp" {
		t.Errorf("fields not persisted: %+v", all[0])
	}

	failed, err := s.ListQueries(ctx, HistoryFilter{Status: model.QueryStatusError})
	if err != nil {
		t.Fatalf("ListQueries: %v", err)
	}
	if len(failed) != 1 || failed[0].ErrorKind != "read_only_refusal" {
		t.Errorf("status filter: got %+v", failed)
	}

	limited, _ := s.ListQueries(ctx, HistoryFilter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("limit: got %d entries", len(limited))
	}

	n, err := s.PruneQueries(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneQueries: %v", err)
	}
	if n != 3 {
		t.Errorf("pruned %d, want 3", n)
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetSetting(ctx, "models.working"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetSetting(ctx, "models.working", "a,b"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := s.SetSetting(ctx, "models.working", "b"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	v, err := s.GetSetting(ctx, "models.working")
	if err != nil || v != "b" {
		t.Errorf("GetSetting = %q, %v", v, err)
	}
}

func TestHashAPIKey(t *testing.T) {
	hash1 := HashAPIKey("test-key-123")
	hash2 := HashAPIKey("test-key-123")
	hash3 := HashAPIKey("different-key")

	if hash1 != hash2 {
		t.Error("same input should produce same hash")
	}
	if hash1 == hash3 {
		t.Error("different input should produce different hash")
	}
	if len(hash1) != 64 { // SHA-256 hex = 64 chars
		t.Errorf("hash length %d, want 64", len(hash1))
	}
}
