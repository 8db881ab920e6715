// Package txn wraps multi-document MongoDB transactions and detects
// deployments that cannot run them (standalone servers without a
// replica set). Callers that need all-or-nothing batches use
// IsNotSupported to refuse the write instead of risking a partial one.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// WithTransaction runs fn inside a session transaction. The callback
// must use the provided session context for every operation that
// belongs to the transaction.
func WithTransaction(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	sess, err := client.StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	return sess.WithTransaction(ctx, fn)
}

// Server error codes that indicate transactions are unavailable on
// this deployment (IllegalOperation and friends).
var notSupportedCodes = map[int32]bool{
	20:  true, // IllegalOperation
	51:  true, // transaction numbers only on replica set members
	263: true, // OperationNotSupportedInTransaction
}

// IsNotSupported reports whether err means the server cannot run
// multi-document transactions at all, as opposed to a transient
// transaction failure that a retry could clear.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && notSupportedCodes[cmdErr.Code] {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "transaction") {
		if strings.Contains(msg, "replica set") ||
			strings.Contains(msg, "session") ||
			strings.Contains(msg, "illegal operation") {
			return true
		}
	}
	if strings.Contains(msg, "session") && strings.Contains(msg, "not supported") {
		return true
	}
	return false
}
