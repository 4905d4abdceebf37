package autoabort

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestCloseRunsShutdownThenAbortOnce(t *testing.T) {
	var calls []string

	guard := New(func() { calls = append(calls, "abort") }, func() { calls = append(calls, "shutdown") })

	guard.Close()
	guard.Close()

	if len(calls) != 2 || calls[0] != "shutdown" || calls[1] != "abort" {
		t.Errorf("unexpected trigger order %v", calls)
	}
}

func scoped(guard *Guard, fail bool) (err error) {
	defer guard.Close()

	if fail {
		return errors.New("early exit")
	}

	return nil
}

func TestGuardFiresOnEveryExitPath(t *testing.T) {
	for _, fail := range []bool{false, true} {
		aborts, shutdowns := 0, 0
		guard := New(func() { aborts++ }, func() { shutdowns++ })

		_ = scoped(guard, fail)

		if aborts != 1 || shutdowns != 1 {
			t.Errorf("fail=%v: aborts=%d shutdowns=%d", fail, aborts, shutdowns)
		}
	}
}

func TestGuardFiresOnPanic(t *testing.T) {
	aborts := 0
	guard := New(func() { aborts++ }, nil)

	func() {
		defer func() { _ = recover() }()
		defer guard.Close()
		panic("boom")
	}()

	if aborts != 1 {
		t.Error("abort must run when the scope panics")
	}
}

func TestCallbackServerForwardsCode(t *testing.T) {
	server, guard, err := StartCallbackServer(context.Background(), "127.0.0.1:0", "/auth")

	if err != nil {
		t.Fatal(err)
	}

	defer guard.Close()

	resp, err := http.Get(fmt.Sprintf("http://%s/auth?code=abc", server.Addr()))

	if err != nil {
		t.Fatal(err)
	}

	_ = resp.Body.Close()

	select {
	case code := <-server.Code():
		if code != "abc" {
			t.Error("code != abc")
		}
	case <-time.After(time.Second):
		t.Fatal("code was not forwarded")
	}
}

func TestCallbackServerStopsOnClose(t *testing.T) {
	server, guard, err := StartCallbackServer(context.Background(), "127.0.0.1:0", "/auth")

	if err != nil {
		t.Fatal(err)
	}

	guard.Close()

	client := http.Client{Timeout: time.Second}

	if _, err := client.Get(fmt.Sprintf("http://%s/auth?code=abc", server.Addr())); err == nil {
		t.Error("server must not accept requests after Close")
	}
}
