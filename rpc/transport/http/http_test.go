package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/recstore/rpc/common"
)

// echoHandler prefixes the request with the service id
func echoHandler(serviceId uint64, req []byte) []byte {
	return append([]byte(fmt.Sprintf("%d:", serviceId)), req...)
}

func TestHandlerRoutesToService(t *testing.T) {
	ts := httptest.NewServer(NewHandler(echoHandler, true))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/100", "application/octet-stream", strings.NewReader("ping"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "100:ping" {
		t.Errorf("unexpected body %q", body)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("missing request id in response")
	}
}

func TestHandlerKeepsRequestID(t *testing.T) {
	ts := httptest.NewServer(NewHandler(echoHandler, false))
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/1", strings.NewReader("x"))
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected request id abc-123, got %q", got)
	}
}

func TestHandlerRejectsInvalidServiceID(t *testing.T) {
	ts := httptest.NewServer(NewHandler(echoHandler, false))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/lottery", "application/octet-stream", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	ts := httptest.NewServer(NewHandler(echoHandler, true))
	defer ts.Close()

	// one debug request so the duration histogram exists
	resp, err := http.Post(ts.URL+"/1", "application/octet-stream", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("recstore_http_request_duration_seconds")) {
		t.Errorf("metrics output misses the request histogram")
	}
}

func TestClientTransport(t *testing.T) {
	ts := httptest.NewServer(NewHandler(echoHandler, false))
	defer ts.Close()

	client := NewHttpClientTransport()
	if _, err := client.Send(1, nil); err == nil {
		t.Error("expected error before Connect")
	}

	if err := client.Connect(common.ClientConfig{
		Endpoints:     []string{strings.TrimPrefix(ts.URL, "http://")},
		TimeoutSecond: 5,
		RetryCount:    1,
	}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Close()

	resp, err := client.Send(200, []byte("hello"))
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if string(resp) != "200:hello" {
		t.Errorf("unexpected response %q", resp)
	}
}

func TestClientTransportRetriesNextEndpoint(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(NewHandler(func(serviceId uint64, req []byte) []byte {
		calls.Add(1)
		return req
	}, false))
	defer ts.Close()

	// a port nobody listens on
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	deadURL := "http://" + l.Addr().String()
	l.Close()

	client := NewHttpClientTransport()
	if err := client.Connect(common.ClientConfig{
		Endpoints:     []string{deadURL, ts.URL},
		TimeoutSecond: 2,
		RetryCount:    2,
	}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Close()

	for i := 0; i < 4; i++ {
		if _, err := client.Send(1, []byte("x")); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}
	if calls.Load() != 4 {
		t.Errorf("expected 4 handled requests, got %d", calls.Load())
	}
}

func TestClientTransportDoesNotResendTimedOutRequest(t *testing.T) {
	var fastCalls, slowCalls atomic.Int32
	fast := httptest.NewServer(NewHandler(func(serviceId uint64, req []byte) []byte {
		fastCalls.Add(1)
		return req
	}, false))
	defer fast.Close()

	release := make(chan struct{})
	slow := httptest.NewServer(NewHandler(func(serviceId uint64, req []byte) []byte {
		slowCalls.Add(1)
		<-release
		return req
	}, false))
	defer slow.Close()
	defer close(release)

	client := NewHttpClientTransport()
	if err := client.Connect(common.ClientConfig{
		// the first request goes to the second endpoint
		Endpoints:     []string{fast.URL, slow.URL},
		TimeoutSecond: 1,
		RetryCount:    2,
	}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Send(1, []byte("buy")); err == nil {
		t.Fatal("expected a timeout")
	}
	if slowCalls.Load() != 1 || fastCalls.Load() != 0 {
		t.Errorf("expected the request to be sent once, got slow=%d fast=%d", slowCalls.Load(), fastCalls.Load())
	}
}

func TestClientTransportNoEndpoints(t *testing.T) {
	if err := NewHttpClientTransport().Connect(common.ClientConfig{}); err == nil {
		t.Error("expected error without endpoints")
	}
}

func TestServerTransportShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	server := NewHttpServerTransport()
	server.RegisterHandler(echoHandler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Listen(ctx, common.ServerConfig{Endpoint: addr}) }()

	// wait until the server accepts requests
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Post("http://"+addr+"/7", "application/octet-stream", strings.NewReader("up"))
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server did not come up: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerTransportWithoutHandler(t *testing.T) {
	if err := NewHttpServerTransport().Listen(context.Background(), common.ServerConfig{Endpoint: "127.0.0.1:0"}); err == nil {
		t.Error("expected error without handler")
	}
}
