package cache

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func newTestPresence(t *testing.T) (PresenceCache, *redis.Client) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 9})
	// 若 Redis 未启动则跳过
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skip: redis not available: %v", err)
	}
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return NewRedisPresence(rdb), rdb
}

func TestAddMemberAndAlive(t *testing.T) {
	p, _ := newTestPresence(t)
	ctx := context.Background()
	docID := "doc-presence"

	if err := p.AddMember(ctx, docID, 1, "alice", 60*time.Second); err != nil {
		t.Fatalf("AddMember error: %v", err)
	}
	if err := p.AddMember(ctx, docID, 2, "bob", 60*time.Second); err != nil {
		t.Fatalf("AddMember error: %v", err)
	}
	// 已过期的成员不应出现在在线列表里
	if err := p.AddMember(ctx, docID, 3, "carol", -1*time.Second); err != nil {
		t.Fatalf("AddMember error: %v", err)
	}

	members, err := p.GetAliveMembersWithNames(ctx, docID)
	if err != nil {
		t.Fatalf("GetAliveMembersWithNames error: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("alive members = %v, want 2", members)
	}
	names := map[uint64]string{}
	for _, m := range members {
		names[m.UserID] = m.Username
	}
	if names[1] != "alice" || names[2] != "bob" {
		t.Fatalf("member names = %v", names)
	}

	docs, err := p.GetDocuments(ctx)
	if err != nil {
		t.Fatalf("GetDocuments error: %v", err)
	}
	found := false
	for _, d := range docs {
		if d == docID {
			found = true
		}
	}
	if !found {
		t.Fatalf("GetDocuments = %v, want contains %s", docs, docID)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	p, _ := newTestPresence(t)
	ctx := context.Background()
	docID := "doc-cursor"

	if err := p.SetCursor(ctx, docID, 1, 5, 60*time.Second); err != nil {
		t.Fatalf("SetCursor error: %v", err)
	}
	if err := p.SetCursor(ctx, docID, 2, 12, 60*time.Second); err != nil {
		t.Fatalf("SetCursor error: %v", err)
	}

	cursors, err := p.Cursors(ctx, docID)
	if err != nil {
		t.Fatalf("Cursors error: %v", err)
	}
	if len(cursors) != 2 || cursors[1] != 5 || cursors[2] != 12 {
		t.Fatalf("Cursors = %v, want {1:5, 2:12}", cursors)
	}

	if err := p.RemoveCursor(ctx, docID, 1); err != nil {
		t.Fatalf("RemoveCursor error: %v", err)
	}
	cursors, err = p.Cursors(ctx, docID)
	if err != nil {
		t.Fatalf("Cursors error: %v", err)
	}
	if len(cursors) != 1 || cursors[2] != 12 {
		t.Fatalf("Cursors after remove = %v, want {2:12}", cursors)
	}
}
