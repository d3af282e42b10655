package main

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"tolkBack/internal/models"
)

// WebSocketManager pushes fresh job offers to translators connected over /ws.
type WebSocketManager struct {
	clients    map[int]*websocket.Conn
	register   chan wsClient
	unregister chan int
	offers     chan jobOffer
}

type wsClient struct {
	ID     int
	Socket *websocket.Conn
}

type jobOffer struct {
	TranslatorID int
	Job          models.Job
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[int]*websocket.Conn),
		register:   make(chan wsClient),
		unregister: make(chan int),
		offers:     make(chan jobOffer, 64),
	}
}

// OfferJob implements services.OfferBroadcaster. Offers to translators who are
// not connected are dropped; they still get push and SMS.
func (ws *WebSocketManager) OfferJob(translatorID int, job models.Job) {
	select {
	case ws.offers <- jobOffer{TranslatorID: translatorID, Job: job}:
	default:
		log.Printf("ws: offer channel full, dropping offer for translator %d", translatorID)
	}
}

func (ws *WebSocketManager) Run() {
	for {
		select {
		case client := <-ws.register:
			ws.clients[client.ID] = client.Socket
		case clientID := <-ws.unregister:
			if conn, ok := ws.clients[clientID]; ok {
				conn.Close()
				delete(ws.clients, clientID)
			}
		case offer := <-ws.offers:
			conn, ok := ws.clients[offer.TranslatorID]
			if !ok {
				continue
			}
			if err := conn.WriteJSON(offer.Job); err != nil {
				log.Println("Error sending job offer:", err)
				conn.Close()
				delete(ws.clients, offer.TranslatorID)
			}
		}
	}
}

func (app *application) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}

	var clientData struct {
		UserID int `json:"userId"`
	}
	if err := conn.ReadJSON(&clientData); err != nil {
		log.Println("Failed to read client data:", err)
		conn.Close()
		return
	}

	app.wsManager.register <- wsClient{ID: clientData.UserID, Socket: conn}

	go app.readLoop(conn, clientData.UserID)
}

// readLoop drains the connection so pings and closes are handled; the server
// never expects client messages.
func (app *application) readLoop(conn *websocket.Conn, userID int) {
	defer func() {
		app.wsManager.unregister <- userID
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
