// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	fz := fuzz.New()
	fz.NumElements(1e3, 1e6)
	var data []byte
	fz.Fuzz(&data)
	ctx := context.Background()
	const batch = "test-batch"
	wc, err := store.Create(ctx, batch, FuncsName)
	if err != nil {
		t.Error(err)
		return
	}
	if _, err := io.Copy(wc, bytes.NewReader(data)); err != nil {
		t.Error(err)
		return
	}
	if err := wc.Close(); err != nil {
		t.Error(err)
		return
	}
	rc, err := store.Open(ctx, batch, FuncsName)
	if err != nil {
		t.Error(err)
		return
	}
	defer rc.Close()
	got, err := ioutil.ReadAll(rc)
	if err != nil {
		t.Error(err)
		return
	}
	if !bytes.Equal(data, got) {
		t.Error("data do not match")
	}
	// Artifacts are write-once.
	_, err = store.Create(ctx, batch, FuncsName)
	if err == nil {
		t.Error("expected error re-creating stored artifact")
	} else if !errors.Is(errors.Exists, err) {
		t.Errorf("unexpected error: %v", err)
	}
	// A sibling artifact in the same batch is unaffected.
	if _, err := store.Open(ctx, batch, KwargsName); err == nil {
		t.Error("expected error opening artifact never stored")
	}
}

func TestStoreImpls(t *testing.T) {
	testStore(t, newMemoryStore())
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	testStore(t, &FileStore{Prefix: dir})
}

func TestMemoryStoreNotExist(t *testing.T) {
	store := newMemoryStore()
	_, err := store.Open(context.Background(), "nope", SignalName(3))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(errors.NotExist, err) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMemoryStoreCommitOnClose(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	wc, err := store.Create(ctx, "b", FuncsName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wc.Write([]byte("partial")); err != nil {
		t.Fatal(err)
	}
	// The artifact isn't available until the writer is closed.
	if _, err := store.Open(ctx, "b", FuncsName); err == nil {
		t.Error("store prematurely available")
	}
	if err := wc.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Open(ctx, "b", FuncsName); err != nil {
		t.Error(err)
	}
}

func TestSignalName(t *testing.T) {
	for _, c := range []struct {
		task int
		want string
	}{
		{0, "task-0000"},
		{17, "task-0017"},
		{12345, "task-12345"},
	} {
		if got := SignalName(c.task); got != c.want {
			t.Errorf("task %d: got %v, want %v", c.task, got, c.want)
		}
	}
}

func TestSiblingURL(t *testing.T) {
	for _, c := range []struct {
		url, name, want string
	}{
		{"/tmp/seisflows/b/funcs", "task-0001", "/tmp/seisflows/b/task-0001"},
		{"s3://bucket/prefix/b/funcs", "task-0002", "s3://bucket/prefix/b/task-0002"},
		{"funcs", "task-0000", "task-0000"},
	} {
		if got := siblingURL(c.url, c.name); got != c.want {
			t.Errorf("sibling of %s: got %v, want %v", c.url, got, c.want)
		}
	}
}
