package ws

//bertanggung jawab untuk:

// Menyimpan koneksi client layar ruang tindakan.

// Menerima event dari controller (antrian_update, navigate_billing).

// Melakukan broadcast event ke seluruh client yang terhubung.

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	EventAntrianUpdate   = "antrian_update"
	EventNavigateBilling = "navigate_billing"
)

var (
	ErrHubClosed = errors.New("hub websocket sudah berhenti")
	ErrHubBusy   = errors.New("antrian broadcast websocket penuh")
)

// Message adalah format event yang dikirim ke client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client mewakili koneksi WebSocket
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{ID: uuid.NewString(), Conn: conn, Send: make(chan []byte, 256)}
}

// Hub mengelola semua koneksi client
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run memproses register, unregister dan broadcast sampai ctx selesai.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.Clients {
				close(client.Send)
				delete(h.Clients, client)
			}
			return
		case client := <-h.Register:
			h.Clients[client] = true
			h.logger.Debug("client registered", zap.String("client", client.ID))
		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				h.logger.Debug("client unregistered", zap.String("client", client.ID))
			}
		case message := <-h.Broadcast:
			for client := range h.Clients {
				select {
				case client.Send <- message:
				default:
					// client lambat, koneksinya diputus
					close(client.Send)
					delete(h.Clients, client)
					h.logger.Warn("client dropped", zap.String("client", client.ID))
				}
			}
		}
	}
}

// Done tertutup setelah Run berhenti.
func (h *Hub) Done() <-chan struct{} { return h.done }

// register dan unregister tidak memblok setelah Run berhenti.
func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// BroadcastJSON mengirim event bertipe eventType ke semua client. Tidak pernah memblok:
// jika hub sudah berhenti atau buffer broadcast penuh, event dibuang dan error dikembalikan.
func (h *Hub) BroadcastJSON(eventType string, data interface{}) error {
	payload, err := json.Marshal(Message{Type: eventType, Data: data})
	if err != nil {
		return err
	}
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.Broadcast <- payload:
		return nil
	case <-h.done:
		return ErrHubClosed
	default:
		h.logger.Warn("broadcast dibuang, buffer penuh", zap.String("type", eventType))
		return ErrHubBusy
	}
}
