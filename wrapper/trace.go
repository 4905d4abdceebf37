package wrapper

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

// Trace logs entry into name at trace level and returns the matching exit
// logger, meant for `defer wrapper.Trace(ctx, "client.SendMessage")()`.
func Trace(ctx context.Context, name string) func() {
	log := Logger(ctx)
	log.Trace("->|" + name)

	return func() {
		log.Trace("<-|" + name)
	}
}

// WithContext prefixes a non-nil error with the operation name.
func WithContext(name string, err error) error {
	if err == nil {
		return nil
	}

	return errors.Wrap(err, name)
}

// Call runs fn between trace marks and wraps its error with name.
func Call[T any](ctx context.Context, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	defer Trace(ctx, name)()

	result, err := fn(ctx)

	return result, WithContext(name, err)
}

// Logger returns a logrus entry carrying the chat and task ids found in ctx.
func Logger(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{}

	if chatID, ok := GetChatID(ctx); ok {
		fields["chatID"] = chatID
	}

	if taskID, ok := GetTaskID(ctx); ok {
		fields["taskID"] = taskID
	}

	return logrus.WithFields(fields)
}
