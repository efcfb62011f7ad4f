// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Artifact names within a batch. A batch stores exactly one descriptor
// (the funcs and kwargs pair), written at submission, and one
// completion signal per task, written by workers.
const (
	FuncsName  = "funcs"
	KwargsName = "kwargs"
)

// SignalName returns the artifact name of a task's completion signal.
// Signal artifacts are disjoint by task identity, so tasks never
// contend for a location.
func SignalName(task int) string {
	return fmt.Sprintf("task-%04d", task)
}

// Store is an abstraction that stores a batch's durable artifacts in a
// location visible to both the submission and the compute environment.
type Store interface {
	// Create returns a writer that populates the named artifact of the
	// given batch. Artifacts are write-once: if the artifact already
	// exists, an error with kind errors.Exists is returned. The
	// artifact is not available to Open until the returned closer has
	// been closed.
	Create(ctx context.Context, batch, name string) (io.WriteCloser, error)

	// Open returns a ReadCloser from which the named artifact can be
	// read. If the artifact is not stored, an error with kind
	// errors.NotExist is returned.
	Open(ctx context.Context, batch, name string) (io.ReadCloser, error)

	// URL returns the location of the named artifact. For file-backed
	// stores the URL is resolvable by workers on other machines.
	URL(batch, name string) string
}

// MemoryStore is a store implementation that maintains in-memory
// buffers of batch artifacts. It is used for testing.
type memoryStore struct {
	mu        sync.Mutex
	artifacts map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{artifacts: make(map[string][]byte)}
}

func key(batch, name string) string { return batch + "/" + name }

func (m *memoryStore) get(batch, name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.artifacts[key(batch, name)]
}

func (m *memoryStore) put(batch, name string, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.artifacts[key(batch, name)] != nil {
		return errors.E(errors.Exists, fmt.Sprintf("artifact %s already stored", key(batch, name)))
	}
	if p == nil {
		p = []byte{}
	}
	m.artifacts[key(batch, name)] = p
	return nil
}

type memoryWriter struct {
	bytes.Buffer
	batch, name string
	store       *memoryStore
}

func (m *memoryWriter) Close() error {
	return m.store.put(m.batch, m.name, m.Buffer.Bytes())
}

func (m *memoryStore) Create(ctx context.Context, batch, name string) (io.WriteCloser, error) {
	if m.get(batch, name) != nil {
		return nil, errors.E(errors.Exists, fmt.Sprintf("create %s", key(batch, name)))
	}
	return &memoryWriter{batch: batch, name: name, store: m}, nil
}

func (m *memoryStore) Open(ctx context.Context, batch, name string) (io.ReadCloser, error) {
	p := m.get(batch, name)
	if p == nil {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("open %s", key(batch, name)))
	}
	return ioutil.NopCloser(bytes.NewReader(p)), nil
}

func (m *memoryStore) URL(batch, name string) string {
	return "memory://" + key(batch, name)
}

// FileStore stores artifacts under a grailfile prefix; batch data can
// thus live on any shared filesystem or URL supported by grailfile
// (e.g., S3). An artifact is stored at "{Prefix}/{batch}/{name}".
type FileStore struct {
	Prefix string
}

func (s *FileStore) URL(batch, name string) string {
	return file.Join(s.Prefix, batch, name)
}

func (s *FileStore) Create(ctx context.Context, batch, name string) (io.WriteCloser, error) {
	path := s.URL(batch, name)
	if _, err := file.Stat(ctx, path); err == nil {
		return nil, errors.E(errors.Exists, fmt.Sprintf("create %s", path))
	}
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	return &fileIOCloser{Writer: f.Writer(ctx), ctx: ctx, file: f}, nil
}

func (s *FileStore) Open(ctx context.Context, batch, name string) (io.ReadCloser, error) {
	f, err := file.Open(ctx, s.URL(batch, name))
	if err != nil {
		return nil, err
	}
	return &fileIOCloser{Reader: f.Reader(ctx), ctx: ctx, file: f}, nil
}

type fileIOCloser struct {
	io.Writer
	io.Reader
	ctx  context.Context
	file file.File
}

func (f *fileIOCloser) Close() error {
	return f.file.Close(f.ctx)
}

// siblingURL returns the location of name in the same batch directory
// as url. Workers use it to derive their signal location from the
// descriptor location handed to them by the launcher.
func siblingURL(url, name string) string {
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		return url[:i+1] + name
	}
	return name
}
