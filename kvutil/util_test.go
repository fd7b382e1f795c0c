// Copyright (c) 2025 BVK Chaitanya

package kvutil

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/bvkgo/kv/kvmemdb"
)

type testValue struct {
	Names map[string]int64
}

func TestGetSetDB(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	if _, err := GetDB[testValue](ctx, db, "/missing"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist, got %v", err)
	}

	v := &testValue{Names: map[string]int64{"owner": 42}}
	if err := SetDB(ctx, db, "/value", v); err != nil {
		t.Fatal(err)
	}
	got, err := GetDB[testValue](ctx, db, "/value")
	if err != nil {
		t.Fatal(err)
	}
	if got.Names["owner"] != 42 {
		t.Fatalf("unexpected value %#v", got)
	}
}

