package avs

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alexa/avs-device-sdk-go/pkg/attachment"
)

type staticTokens struct {
	token string
}

func (s staticTokens) AccessToken(ctx context.Context) (string, error) {
	return s.token, nil
}

// gatewayStub is a test downchannel endpoint. It records the handshake
// Authorization header and hands the upgraded connection to serve.
type gatewayStub struct {
	t     *testing.T
	serve func(conn *websocket.Conn)

	mu         sync.Mutex
	authHeader string
}

func (g *gatewayStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.authHeader = r.Header.Get("Authorization")
	g.mu.Unlock()

	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()
	if g.serve != nil {
		g.serve(conn)
	}
}

func (g *gatewayStub) auth() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authHeader
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestClient(t *testing.T, stub *gatewayStub) (*Client, *attachment.Manager) {
	t.Helper()

	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	mgr := attachment.New()
	client, err := New(mgr, staticTokens{token: "test-token"},
		WithGatewayURL(wsURL(srv)),
		WithReconnect(false))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, mgr
}

func TestClient_RequiresCollaborators(t *testing.T) {
	if _, err := New(nil, staticTokens{}); err != ErrNoRegistry {
		t.Errorf("New(nil registry) err = %v, want ErrNoRegistry", err)
	}
	if _, err := New(attachment.New(), nil); err != ErrNoTokenProvider {
		t.Errorf("New(nil tokens) err = %v, want ErrNoTokenProvider", err)
	}
}

func TestClient_ConnectSendsBearerToken(t *testing.T) {
	done := make(chan struct{})
	stub := &gatewayStub{t: t, serve: func(conn *websocket.Conn) {
		<-done
	}}
	client, _ := newTestClient(t, stub)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	close(done)

	if got := stub.auth(); got != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", got)
	}
	if !client.Connected() {
		t.Error("client not connected after Connect")
	}
}

func TestClient_RoutesDirectives(t *testing.T) {
	directive := `{
		"directive": {
			"header": {"namespace": "Speaker", "name": "SetVolume", "messageId": "m1"},
			"payload": {"volume": 50}
		}
	}`
	stub := &gatewayStub{t: t, serve: func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(directive))
		// Hold the connection open until the client closes it.
		conn.ReadMessage()
	}}
	client, _ := newTestClient(t, stub)

	received := make(chan *Directive, 1)
	client.AddDirectiveHandler(func(d *Directive) {
		received <- d
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	select {
	case d := <-received:
		if d.Header.Namespace != "Speaker" || d.Header.Name != "SetVolume" {
			t.Errorf("directive header = %+v", d.Header)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("directive never reached handler")
	}
}

func TestClient_StreamsAttachmentFrames(t *testing.T) {
	const contentID = "dlg-1:speech-1"
	want := bytes.Repeat([]byte("pcm-frame "), 300)

	stub := &gatewayStub{t: t, serve: func(conn *websocket.Conn) {
		for off := 0; off < len(want); off += 512 {
			end := off + 512
			if end > len(want) {
				end = len(want)
			}
			conn.WriteMessage(websocket.BinaryMessage, EncodeFrame(contentID, want[off:end]))
		}
		conn.WriteMessage(websocket.BinaryMessage, EncodeFrame(contentID, nil))
		conn.ReadMessage()
	}}
	client, mgr := newTestClient(t, stub)

	future := mgr.CreateReader(contentID, attachment.ReaderBlocking)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	reader, err := future.Await(2 * time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	defer reader.Close()

	var got bytes.Buffer
	buf := make([]byte, 1024)
	for {
		n, status := reader.Read(buf, time.Second)
		got.Write(buf[:n])
		if status == attachment.ReadClosed {
			break
		}
		if status != attachment.ReadOK {
			t.Fatalf("Read status = %v", status)
		}
	}

	if !bytes.Equal(got.Bytes(), want) {
		t.Errorf("streamed %d bytes, want %d", got.Len(), len(want))
	}
}

func TestClient_SendEvent(t *testing.T) {
	events := make(chan []byte, 1)
	stub := &gatewayStub{t: t, serve: func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		events <- data
		conn.ReadMessage()
	}}
	client, _ := newTestClient(t, stub)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ev := NewEvent("SpeechRecognizer", "Recognize", nil)
	if err := client.SendEvent(ev); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}

	select {
	case data := <-events:
		d := string(data)
		if !strings.Contains(d, `"SpeechRecognizer"`) || !strings.Contains(d, `"Recognize"`) {
			t.Errorf("event on the wire = %s", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the server")
	}
}

func TestClient_SendAfterCloseFails(t *testing.T) {
	stub := &gatewayStub{t: t, serve: func(conn *websocket.Conn) {
		conn.ReadMessage()
	}}
	client, _ := newTestClient(t, stub)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	client.Close()

	if err := client.SendEvent(NewEvent("System", "SynchronizeState", nil)); err != ErrNotConnected {
		t.Errorf("SendEvent after Close err = %v, want ErrNotConnected", err)
	}
}

func TestClient_ServerDisconnectEndsSession(t *testing.T) {
	connected := make(chan struct{})
	stub := &gatewayStub{t: t, serve: func(conn *websocket.Conn) {
		<-connected
		// Returning closes the connection server-side.
	}}
	client, _ := newTestClient(t, stub)

	before := runtime.NumGoroutine()
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	done := client.Done()
	close(connected)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session never ended after server disconnect")
	}

	if client.Connected() {
		t.Error("client still reports connected after server disconnect")
	}
	if err := client.SendEvent(NewEvent("System", "SynchronizeState", nil)); err != ErrNotConnected {
		t.Errorf("SendEvent after disconnect err = %v, want ErrNotConnected", err)
	}

	// The session goroutines (read loop and keepalive pinger) must exit
	// with the connection, not linger until Close.
	deadline := time.Now().Add(3 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Errorf("goroutines = %d after disconnect, started with %d",
				runtime.NumGoroutine(), before)
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestClient_CloseEndsOpenAttachments(t *testing.T) {
	const contentID = "dlg-2:speech-2"
	started := make(chan struct{})
	stub := &gatewayStub{t: t, serve: func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.BinaryMessage, EncodeFrame(contentID, []byte("partial")))
		close(started)
		conn.ReadMessage()
	}}
	client, mgr := newTestClient(t, stub)

	future := mgr.CreateReader(contentID, attachment.ReaderBlocking)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	<-started

	reader, err := future.Await(2 * time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	defer reader.Close()

	// Drain the partial chunk, then close the client mid-stream.
	buf := make([]byte, 64)
	n, status := reader.Read(buf, 2*time.Second)
	if status != attachment.ReadOK || string(buf[:n]) != "partial" {
		t.Fatalf("Read = %d, %v", n, status)
	}

	client.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, status = reader.Read(buf, 100*time.Millisecond)
		if status == attachment.ReadClosed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("reader status = %v, want ReadClosed after client close", status)
		}
	}
}
