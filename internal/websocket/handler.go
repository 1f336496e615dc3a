package websocket

import (
	"context"
	"net/http"
	"strings"

	"socialhub/internal/domain/user"
	"socialhub/internal/services"
	"socialhub/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const bearerProtocol = "bearer"

// Authenticator resolves an access token to a known user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.User, error)
}

// Handler upgrades authenticated requests to WebSocket connections.
type Handler struct {
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, auth Authenticator) *Handler {
	return &Handler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{bearerProtocol},
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handle authenticates the handshake and hands the socket to the hub.
// Authentication failures are answered with 401 and no upgrade.
func (h *Handler) Handle(c *gin.Context) {
	token := extractToken(c.Request)
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("missing token", "UNAUTHORIZED"))
		return
	}

	u, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(services.PublicMessage(err), services.ErrorCode(err)))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.log.Error("upgrade", u.ID, "", err)
		return
	}

	client := newClient(h.hub, conn, u.ID)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// extractToken reads the token from the query, the Authorization header or
// the "bearer, <token>" subprotocol pair.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if token := services.BearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	protocols := websocket.Subprotocols(r)
	for i, p := range protocols {
		if strings.EqualFold(p, bearerProtocol) && i+1 < len(protocols) {
			return protocols[i+1]
		}
	}
	return ""
}
