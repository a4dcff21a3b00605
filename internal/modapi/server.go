package modapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"voxelfactory.io/internal/sim/catalogs"
)

// Server exposes catalog queries over JSON-RPC 2.0, one object per WebSocket
// text frame. All methods are read-only; the catalogs are immutable after
// load, so handlers need no locking.
type Server struct {
	cats *catalogs.Catalogs
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(cats *catalogs.Catalogs, logger *log.Logger) *Server {
	return &Server{
		cats: cats,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.TextMessage {
				continue
			}

			req, err := parseRPCRequest(msg)
			if err != nil {
				if werr := writeJSON(conn, rpcErr(nil, codeParse, err.Error())); werr != nil {
					return
				}
				continue
			}

			resp := s.dispatch(req)
			if len(req.ID) == 0 {
				// Notification: no response frame.
				continue
			}
			if err := writeJSON(conn, resp); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
