package broadcast

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
)

type viewerWriter struct {
	conn     *websocket.Conn
	clock    clockwork.Clock
	sendCh   chan []byte
	doneCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newViewerWriter(conn *websocket.Conn, clock clockwork.Clock) *viewerWriter {
	vw := &viewerWriter{
		conn:   conn,
		clock:  clock,
		sendCh: make(chan []byte, messageBufferSize),
		doneCh: make(chan struct{}),
	}
	vw.configurePongHandler()
	vw.wg.Add(1)
	go vw.run()
	return vw
}

func (vw *viewerWriter) run() {
	ticker := vw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer vw.wg.Done()

	for {
		select {
		case msg, ok := <-vw.sendCh:
			if !ok {
				return
			}
			vw.updateWriteDeadline()
			if err := vw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.Chan():
			vw.updateWriteDeadline()
			if err := vw.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-vw.doneCh:
			return
		}
	}
}

func (vw *viewerWriter) stop() {
	vw.stopOnce.Do(func() {
		close(vw.doneCh)
		_ = vw.conn.Close()
	})
	vw.wg.Wait()
}

// stopGraceful sends a WebSocket close frame with reason before closing.
func (vw *viewerWriter) stopGraceful(reason string) {
	vw.stopOnce.Do(func() {
		close(vw.doneCh)

		// Wait for the run goroutine to exit before writing the close frame,
		// so there is never a concurrent write on the connection.
		vw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		vw.updateWriteDeadline()
		_ = vw.conn.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = vw.conn.Close()
	})
}

func (vw *viewerWriter) configurePongHandler() {
	vw.updateReadDeadline()
	vw.conn.SetPongHandler(func(string) error {
		vw.updateReadDeadline()
		return nil
	})
}

func (vw *viewerWriter) updateWriteDeadline() {
	_ = vw.conn.SetWriteDeadline(vw.clock.Now().Add(writeDeadline))
}

func (vw *viewerWriter) updateReadDeadline() {
	_ = vw.conn.SetReadDeadline(vw.clock.Now().Add(pongDeadline))
}
