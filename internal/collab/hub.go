package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/imgstudio/imgstudio/backend-go/internal/document"
)

const saveTimeout = 5 * time.Second

// PlaygroundProjectID is the shared anonymous room. Its document lives only
// in memory and is never loaded from or saved to the store.
const PlaygroundProjectID = "proj_playground"

// DocLoader fetches the persisted document for a project, ErrNotFound-style
// errors included when the project has no image yet.
type DocLoader func(ctx context.Context, projectID string) (json.RawMessage, error)

// DocSaver persists the document snapshot for a project.
type DocSaver func(ctx context.Context, projectID string, doc json.RawMessage, version int) error

type Room struct {
	projectID string
	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager
	state     *RoomState
}

func NewRoom(projectID string, state *RoomState) *Room {
	return &Room{
		projectID: projectID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
		state:     state,
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // projectID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	loadDoc DocLoader
	saveDoc DocSaver
	opts    Options
}

func NewHub(loadDoc DocLoader, saveDoc DocSaver, opts Options) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		loadDoc:    loadDoc,
		saveDoc:    saveDoc,
		opts:       opts,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop flushes every room's unsaved document and halts the run loop.
func (h *Hub) Stop() {
	close(h.done)

	h.mu.Lock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.rooms = make(map[string]*Room)
	h.mu.Unlock()

	for _, room := range rooms {
		h.persistRoom(room)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		room = NewRoom(client.ProjectID, h.loadState(client.ProjectID))
		h.rooms[client.ProjectID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	color := room.presence.AssignColor(client.ClientID)

	// Tell the new client who it is and what the document looks like.
	welcomePayload, _ := json.Marshal(WelcomePayload{
		ClientID: client.ClientID,
		UserID:   client.UserID,
		Color:    color,
	})
	client.Send(&Message{Type: TypeWelcome, Payload: welcomePayload})

	if doc, seq, err := room.state.Snapshot(); err == nil {
		syncPayload, _ := json.Marshal(DocSyncPayload{Document: doc, ServerSeq: seq})
		client.Send(&Message{Type: TypeDocSync, Payload: syncPayload})
	}

	// Send current presence state to new client
	stateMsg := room.presence.StateMessage()
	if stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		ClientID:    client.ClientID,
		DisplayName: client.DisplayName,
		Color:       color,
	})
	joinMsg := &Message{
		Type:     TypePresenceJoin,
		UserID:   client.UserID,
		ClientID: client.ClientID,
		Payload:  joinPayload,
	}
	h.broadcastToRoom(client.ProjectID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "project", client.ProjectID)
}

// loadState fetches the persisted document for a new room. A project
// without an image yields a room whose operations fail until doc.reset.
func (h *Hub) loadState(projectID string) *RoomState {
	if projectID == PlaygroundProjectID {
		return NewRoomState(nil, h.opts)
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	raw, err := h.loadDoc(ctx, projectID)
	if err != nil {
		slog.Info("room starts without document", "project", projectID, "reason", err)
		return NewRoomState(nil, h.opts)
	}

	var doc document.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		slog.Error("stored document is corrupt", "project", projectID, "error", err)
		return NewRoomState(nil, h.opts)
	}
	return NewRoomState(&doc, h.opts)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)
	room.presence.Remove(client.ClientID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.ProjectID)
	}
	h.mu.Unlock()

	if empty {
		h.persistRoom(room)
	}

	// Broadcast leave to remaining clients
	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		UserID:   client.UserID,
		ClientID: client.ClientID,
	})
	leaveMsg := &Message{
		Type:     TypePresenceLeave,
		UserID:   client.UserID,
		ClientID: client.ClientID,
		Payload:  leavePayload,
	}
	h.broadcastToRoom(client.ProjectID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) persistRoom(room *Room) {
	if room.projectID == PlaygroundProjectID {
		return
	}
	doc, version, ok := room.state.TakeDirtySnapshot()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := h.saveDoc(ctx, room.projectID, doc, version); err != nil {
		slog.Error("persist room document", "project", room.projectID, "error", err)
		return
	}
	slog.Info("room document saved", "project", room.projectID, "version", version)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOperation(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handleOperation(sender *Client, msg *Message) {
	var payload OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.nack(sender, "", "invalid operation payload")
		return
	}
	op := payload.Operation

	h.mu.RLock()
	room, ok := h.rooms[sender.ProjectID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	seq, err := room.state.Apply(op)
	if err != nil {
		h.nack(sender, op.ID, err.Error())
		return
	}

	state, _ := room.state.State()

	ackPayload, _ := json.Marshal(OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: GetServerTimestamp(),
		State:           state,
	})
	sender.Send(&Message{Type: TypeOpAck, Payload: ackPayload})

	broadcastPayload, _ := json.Marshal(OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: seq,
		State:     state,
	})
	h.broadcastToRoom(sender.ProjectID, &Message{
		Type:    TypeOpBroadcast,
		UserID:  sender.UserID,
		Payload: broadcastPayload,
	}, sender.ClientID)
}

func (h *Hub) nack(client *Client, opID, reason string) {
	payload, _ := json.Marshal(OperationNackPayload{
		OperationID: opID,
		Reason:      reason,
	})
	client.Send(&Message{Type: TypeOpNack, Payload: payload})
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName

	h.mu.RLock()
	room, ok := h.rooms[sender.ProjectID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.presence.Update(sender.ClientID, &presence)

	// Broadcast to other clients in room
	outPayload, _ := json.Marshal(presence)
	outMsg := &Message{
		Type:     TypePresenceUpdate,
		UserID:   sender.UserID,
		ClientID: sender.ClientID,
		Payload:  outPayload,
	}
	h.broadcastToRoom(sender.ProjectID, outMsg, sender.ClientID)
}

// broadcastToRoom fans a message out to every client in the room except
// excludeClientID, marshaling it once.
func (h *Hub) broadcastToRoom(projectID string, msg *Message, excludeClientID string) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal broadcast", "error", err, "type", msg.Type)
		return
	}

	h.mu.RLock()
	room, ok := h.rooms[projectID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.SendRaw(data)
	}
}
