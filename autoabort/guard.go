package autoabort

import "sync"

// Guard ties the shutdown of a helper to the scope that started it. Close
// runs shutdown and then abort, exactly once, however the scope is left:
//
//	guard := autoabort.New(cancel, server.Shutdown)
//	defer guard.Close()
type Guard struct {
	abort    func()
	shutdown func()
	once     sync.Once
}

// New returns a guard over the two triggers. Either may be nil.
func New(abort func(), shutdown func()) *Guard {
	return &Guard{
		abort:    abort,
		shutdown: shutdown,
	}
}

func (g *Guard) Close() {
	g.once.Do(func() {
		if g.shutdown != nil {
			g.shutdown()
		}

		if g.abort != nil {
			g.abort()
		}
	})
}
