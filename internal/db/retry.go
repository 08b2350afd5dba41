package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// UpsertAttempts bounds how many times an upsert that lost an insert race is
// replayed.
const UpsertAttempts = 4

var upsertBackoff = 50 * time.Millisecond

// Upsert runs op until it succeeds or fails with anything but a duplicate key
// error. Two first writes for the same _id race on insert; the loser's replay
// finds the document and takes the update path. Waiting between attempts
// stops when ctx ends.
func Upsert(ctx context.Context, op func(ctx context.Context) error) error {
	return retryDuplicate(ctx, UpsertAttempts, upsertBackoff, op)
}

func retryDuplicate(ctx context.Context, attempts int, backoff time.Duration, op func(ctx context.Context) error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		err = op(ctx)
		if err == nil || !IsDuplicateKey(err) {
			return err
		}
		if i == attempts {
			break
		}
		t := time.NewTimer(time.Duration(i) * backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("upsert abandoned after %d attempt(s): %w", i, ctx.Err())
		case <-t.C:
		}
	}
	return fmt.Errorf("upsert still conflicting after %d attempts: %w", attempts, err)
}

// IsDuplicateKey reports whether err, possibly wrapped, carries a duplicate
// key write or command error.
func IsDuplicateKey(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}
