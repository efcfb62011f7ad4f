// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package seisflows

import (
	"bytes"
	"testing"

	"github.com/grailbio/base/errors"
)

func TestEncodeFuncsValidates(t *testing.T) {
	for _, c := range []struct {
		name  string
		funcs []string
	}{
		{"empty", nil},
		{"unregistered", []string{"codectest.no-such-func"}},
		{"mixed", []string{"codectest.nop", "codectest.no-such-func"}},
	} {
		t.Run(c.name, func(t *testing.T) {
			var b bytes.Buffer
			_, err := EncodeFuncs(&b, c.funcs)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(errors.Invalid, err) {
				t.Errorf("unexpected error: %v", err)
			}
			if b.Len() != 0 {
				t.Error("invalid descriptor was partially written")
			}
		})
	}
}

func TestDescriptorValidate(t *testing.T) {
	d := Descriptor{Funcs: []string{"codectest.nop"}, Kwargs: Kwargs{"n": 1}}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeKwargsEmpty(t *testing.T) {
	var b bytes.Buffer
	if _, err := EncodeKwargs(&b, nil); err != nil {
		t.Fatal(err)
	}
	kwargs, err := DecodeKwargs(&b)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(kwargs), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if kwargs == nil {
		t.Error("decoded kwargs is nil")
	}
}
