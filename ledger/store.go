// Copyright (c) 2023 BVK Chaitanya

package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bvkgo/kv"
)

// deleteRange removes every key in [begin, end). Keys are collected
// before deletion because deleting under an open iterator is undefined
// for some kv backends.
func deleteRange(ctx context.Context, rw kv.ReadWriter, begin, end string) error {
	it, err := rw.Ascend(ctx, begin, end)
	if err != nil {
		return fmt.Errorf("could not create range iterator: %w", err)
	}

	var keys []string
	for k, _, err := it.Fetch(ctx, false); err == nil; k, _, err = it.Fetch(ctx, true) {
		keys = append(keys, k)
	}
	if _, _, err := it.Fetch(ctx, false); err != nil && !errors.Is(err, io.EOF) {
		kv.Close(it)
		return fmt.Errorf("could not complete range scan: %w", err)
	}
	kv.Close(it)

	for _, k := range keys {
		if err := rw.Delete(ctx, k); err != nil {
			return fmt.Errorf("could not delete key %q: %w", k, err)
		}
	}
	return nil
}
