package bridge

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/nejkit/telegram-drive-bridge/autoabort"
	"github.com/nejkit/telegram-drive-bridge/domain"
	"github.com/sirupsen/logrus"
)

// AwaitAuthorization serves the authorization callback until a code arrives,
// timeout passes or ctx is done. The callback server is shut
// down on every return path.
func AwaitAuthorization(ctx context.Context, addr, path string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	server, guard, err := autoabort.StartCallbackServer(ctx, addr, path)

	if err != nil {
		return "", errors.Wrap(err, "start authorization callback server")
	}

	defer guard.Close()

	logrus.WithField("addr", server.Addr()).Info("waiting for authorization callback")

	select {
	case code := <-server.Code():
		return code, nil
	case <-ctx.Done():
		return "", errors.Wrap(domain.ErrorAuthorizationCancelled, ctx.Err().Error())
	}
}
