package echoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

// wsGateway bridges websocket connections and the classroom Hub. It owns the
// live clients map and implements chat.Sender for outbound fan-out.
type wsGateway struct {
	conf     *core.Config
	logger   core.Logger
	registry *chat.Registry
	hub      *chat.Hub
	crsSvc   course.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient
}

var _ chat.Sender = (*wsGateway)(nil)

type wsClient struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	closed bool // guarded by the gateway mu
}

func newWSGateway(
	conf *core.Config,
	logger core.Logger,
	registry *chat.Registry,
	chatSvc *chat.Service,
	crsSvc course.ServiceInterface,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) *wsGateway {
	g := &wsGateway{
		conf:     conf,
		logger:   logger,
		registry: registry,
		crsSvc:   crsSvc,
		usrSvc:   usrSvc,
		validate: validate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*wsClient),
	}
	g.hub = chat.NewHub(registry, g, chatSvc, logger)
	return g
}

// serve upgrades the request and pumps classroom events until the peer goes
// away. Browsers cannot set headers on websocket requests, so the JWT rides
// in the "token" query parameter.
func (g *wsGateway) serve(ctx echo.Context) error {
	claims, err := parseToken(ctx.QueryParam("token"))
	if err != nil {
		return err
	}
	usr, err := g.usrSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errUnauthorized
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if usr.IsActive != nil && !*usr.IsActive {
		return errAccountDeactivated
	}

	conn, err := g.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading to websocket")
	}

	client := &wsClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, g.conf.Chat.SendBuffer),
	}
	g.mu.Lock()
	g.clients[client.id] = client
	g.mu.Unlock()

	go g.writePump(client)
	g.readPump(client, usr)
	return nil
}

// readPump decodes inbound frames and hands them to the Hub, in order. It
// returns when the connection dies, after running the disconnect cleanup.
func (g *wsGateway) readPump(client *wsClient, usr user.User) {
	defer func() {
		g.remove(client)
		g.hub.Disconnect(client.id)
	}()

	client.conn.SetReadLimit(g.conf.Chat.MaxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(g.conf.Chat.PongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(g.conf.Chat.PongWait))
	})

	reqCtx := context.Background()
	for {
		_, frame, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Debug(fmt.Sprintf("websocket closed: %v", err))
			}
			return
		}

		evt, err := chat.DecodeClientEvent(frame, g.validate)
		if err != nil {
			// malformed frames are dropped, the connection stays up
			g.logger.Debug(fmt.Sprintf("dropping bad frame: %v", err))
			continue
		}

		if join, ok := evt.(chat.JoinRoom); ok {
			// identity comes from the authenticated user, never the frame
			join.UserID = usr.ID
			join.DisplayName = usr.FullName()
			if _, err := g.crsSvc.CanAccess(reqCtx, usr, join.RoomID); err != nil {
				g.logger.Debug(fmt.Sprintf("join rejected for %s: %v", usr.Matricule, err))
				continue
			}
			evt = join
		}
		g.hub.Handle(reqCtx, client.id, evt)
	}
}

// writePump drains the client's send buffer and keeps the connection alive
// with pings. One writer per connection; gorilla allows no concurrent writes.
func (g *wsGateway) writePump(client *wsClient) {
	ticker := time.NewTicker(g.conf.Chat.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(g.conf.Chat.WriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(g.conf.Chat.WriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send queues evt for one connection. A missing client or a full buffer
// drops the event rather than blocking the Hub.
//
// The read lock is held across the channel send: remove closes the channel
// under the write lock, so a send can never hit a closed channel while a
// member disconnects mid-broadcast.
func (g *wsGateway) Send(connectionID string, evt chat.ServerEvent) {
	frame, err := json.Marshal(evt)
	if err != nil {
		g.logger.Error(fmt.Sprintf("encoding %s event: %v", evt.Event, err), err)
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	client, ok := g.clients[connectionID]
	if !ok || client.closed {
		return
	}
	select {
	case client.send <- frame:
	default:
		g.logger.Warn(fmt.Sprintf("send buffer full, dropping %s event for %s", evt.Event, connectionID))
	}
}

func (g *wsGateway) remove(client *wsClient) {
	g.mu.Lock()
	if _, ok := g.clients[client.id]; ok {
		delete(g.clients, client.id)
		client.closed = true
		close(client.send)
	}
	g.mu.Unlock()
}

// closeAll tears every live connection down; used on server shutdown.
func (g *wsGateway) closeAll() {
	g.mu.Lock()
	clients := make([]*wsClient, 0, len(g.clients))
	for _, client := range g.clients {
		clients = append(clients, client)
	}
	g.mu.Unlock()

	for _, client := range clients {
		g.remove(client)
		g.hub.Disconnect(client.id)
	}
}
