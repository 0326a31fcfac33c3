// Copyright (c) 2023 BVK Chaitanya

package job

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestPauseResume(t *testing.T) {
	ctx := context.Background()
	jobf := func(ctx context.Context) error {
		<-ctx.Done()
		return context.Cause(ctx)
	}
	j1 := New("", jobf)
	if err := j1.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	if j1.State() != "RESUMED" {
		t.Fatalf("j1 must be resumed, got %v", j1.State())
	}
	if err := j1.Pause(); err != nil {
		t.Fatal(err)
	}
	if j1.State() != "PAUSED" {
		t.Fatalf("j1 must be paused, got %v", j1.State())
	}
	if err := j1.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	if err := j1.Cancel(); err != nil {
		t.Fatal(err)
	}
	if j1.State() != "CANCELED" {
		t.Fatalf("j1 must be canceled, got %v", j1.State())
	}
	if !IsFinal(j1.State()) {
		t.Fatalf("canceled job must be final")
	}
	if err := j1.Resume(ctx); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("want os.ErrClosed, got %v", err)
	}
}

func TestFailed(t *testing.T) {
	ctx := context.Background()
	ch := make(chan error)
	jobf := func(ctx context.Context) error {
		return <-ch
	}
	j1 := New("", jobf)
	if err := j1.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	ch <- errors.New("operation failed")
	close(ch)
	j1.Close()
	if !IsFailed(j1.State()) {
		t.Fatalf("j1 must have failed, got %v", j1.State())
	}
	if !IsFinal(j1.State()) {
		t.Fatalf("failed job must be final")
	}
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	ch := make(chan struct{})
	jobf := func(ctx context.Context) error {
		<-ch
		return nil
	}
	j1 := New("", jobf)
	if err := j1.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	close(ch)
	j1.Close()
	if j1.State() != "COMPLETED" {
		t.Fatalf("j1 must be complete, got %v", j1.State())
	}
	if IsFailed(j1.State()) {
		t.Fatalf("completed job must not be failed")
	}
}
