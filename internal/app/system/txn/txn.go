// Package txn runs multi-document writes atomically when the deployment
// supports transactions and falls back to sequential execution when it
// does not (standalone mongod, some DocumentDB clusters).
//
// Callers that need all-or-nothing behaviour on the fallback path pass a
// compensation function to RunCompensated; it is invoked only when the
// write function fails outside a transaction.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Func is a unit of work. ctx is a mongo.SessionContext inside a
// transaction and the caller's context otherwise.
type Func func(ctx context.Context) error

// Run executes fn inside a transaction if possible.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn Func) error {
	return RunCompensated(ctx, db, log, fn, nil)
}

// RunCompensated is Run with a compensation step for the non-transactional
// path. When fn fails after falling back, undo is called with a fresh
// context derived from ctx; its own failure is logged and does not replace
// fn's error.
func RunCompensated(ctx context.Context, db *mongo.Database, log *zap.Logger, fn, undo Func) error {
	if log == nil {
		log = zap.NewNop()
	}

	session, err := db.Client().StartSession()
	if err != nil {
		log.Warn("failed to start session, running without transaction", zap.Error(err))
		return fallback(ctx, log, fn, undo)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err == nil {
		return nil
	}
	if IsNotSupported(err) {
		log.Warn("transactions not supported, running without transaction", zap.Error(err))
		return fallback(ctx, log, fn, undo)
	}
	return err
}

func fallback(ctx context.Context, log *zap.Logger, fn, undo Func) error {
	err := fn(ctx)
	if err == nil || undo == nil {
		return err
	}
	if uerr := undo(context.WithoutCancel(ctx)); uerr != nil {
		log.Error("compensation failed; partial write left behind",
			zap.Error(uerr), zap.NamedError("cause", err))
	}
	return err
}

// IsNotSupported reports whether err means the server cannot run
// multi-document transactions.
//
// Known codes: 20 (transaction numbers only allowed on a replica set
// member or mongos), 51 (IllegalOperation), 263 (operation not allowed
// in a transaction).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case 20, 51, 263:
			return true
		}
	}

	// Message matching needs two hits; a single "session" or
	// "transaction" shows up in ordinary write errors too.
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
