package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/repository"
	"github.com/chatsync/internal/storage"
)

// Hub is the push half of the sync model: every mutation that commits —
// whether it arrived over HTTP or as a WebSocket event — is fanned out here
// to the affected conversation's participants, so connected clients never
// have to poll.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{}
	total    int
	maxConns int

	convRepo    *repository.ConversationRepository
	msgRepo     *repository.MessageRepository
	userRepo    *repository.UserRepository
	receiptRepo *repository.ReadReceiptRepository
	typing      storage.TypingStore

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(
	convRepo *repository.ConversationRepository,
	msgRepo *repository.MessageRepository,
	userRepo *repository.UserRepository,
	receiptRepo *repository.ReadReceiptRepository,
	typing storage.TypingStore,
	maxConns int,
) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		clients:     make(map[string]map[*Client]struct{}),
		maxConns:    maxConns,
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		userRepo:    userRepo,
		receiptRepo: receiptRepo,
		typing:      typing,
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		done:        make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	allClients := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			allClients = append(allClients, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	// Close connections outside the lock (network I/O).
	for _, c := range allClients {
		c.Close()
	}
	for _, c := range allClients {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, c.userID)
		c.Close()
		return
	}
	if _, ok := h.clients[c.userID]; !ok {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.total++
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.userRepo.SetOnline(ctx, c.userID, true); err != nil {
		logger.Errorf("ws set online user=%s: %v", c.userID, err)
	}
	h.BroadcastUserStatus(c.userID, true)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	lastClient := len(clients) == 0
	if lastClient {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	// Network I/O outside the lock.
	c.Close()

	if lastClient {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.userRepo.SetOnline(ctx, c.userID, false); err != nil {
			logger.Errorf("ws set offline user=%s: %v", c.userID, err)
		}
		h.BroadcastUserStatus(c.userID, false)
	}
}

// HandleMessage dispatches incoming WebSocket events. Each handler commits
// through the same repository call the HTTP surface uses.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case EventNewMessage:
		h.handleNewMessage(ctx, c, msg)
	case EventTyping:
		h.handleTyping(ctx, c, msg)
	case EventMessageRead:
		h.handleMessageRead(ctx, c, msg)
	case EventReactionToggled:
		h.handleToggleReaction(ctx, c, msg)
	case EventMessageDeleted:
		h.handleDeleteMessage(ctx, c, msg)
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown event type"})
	}
}

func (h *Hub) handleNewMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleNewMessage", time.Now())()
	if msg.ConversationID == "" || msg.Content == "" {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "conversation_id and content required"})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	m, err := h.msgRepo.Send(ctx, msg.ConversationID, c.userID, msg.Content)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "conversation not found"})
		case errors.Is(err, repository.ErrForbidden):
			h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "not a participant"})
		default:
			logger.Errorf("ws send message conversation=%s user=%s: %v", msg.ConversationID, c.userID, err)
			h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "failed to save message"})
		}
		return
	}

	// Sending ends the composing state.
	if err := h.typing.ClearTyping(ctx, msg.ConversationID, c.userID); err != nil {
		logger.Errorf("ws clear typing conversation=%s user=%s: %v", msg.ConversationID, c.userID, err)
	}

	h.BroadcastToConversation(ctx, msg.ConversationID, OutgoingMessage{Type: EventNewMessage, Payload: m})
}

func (h *Hub) handleTyping(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.ConversationID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var err error
	if msg.IsTyping {
		err = h.typing.SetTyping(ctx, msg.ConversationID, c.userID, time.Now().UTC())
	} else {
		err = h.typing.ClearTyping(ctx, msg.ConversationID, c.userID)
	}
	if err != nil {
		logger.Errorf("ws typing conversation=%s user=%s: %v", msg.ConversationID, c.userID, err)
		return
	}

	out := OutgoingMessage{
		Type: EventTyping,
		Payload: TypingPayload{
			ConversationID: msg.ConversationID,
			UserID:         c.userID,
			IsTyping:       msg.IsTyping,
		},
	}
	h.broadcastToOthers(ctx, msg.ConversationID, c.userID, out)
}

func (h *Hub) handleMessageRead(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.ConversationID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := h.receiptRepo.MarkAsRead(ctx, msg.ConversationID, c.userID); err != nil {
		logger.Errorf("ws mark read conversation=%s user=%s: %v", msg.ConversationID, c.userID, err)
		return
	}

	out := OutgoingMessage{
		Type: EventMessageRead,
		Payload: MessageReadPayload{
			ConversationID: msg.ConversationID,
			UserID:         c.userID,
		},
	}
	h.broadcastToOthers(ctx, msg.ConversationID, c.userID, out)
}

func (h *Hub) handleToggleReaction(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleToggleReaction", time.Now())()
	if msg.MessageID == "" || msg.Emoji == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	m, err := h.msgRepo.ToggleReaction(ctx, msg.MessageID, c.userID, msg.Emoji)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "message not found"})
			return
		}
		logger.Errorf("ws toggle reaction %s: %v", msg.MessageID, err)
		return
	}

	out := OutgoingMessage{Type: EventReactionToggled, Payload: ReactionPayload{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		UserID:         c.userID,
		Reactions:      m.Reactions,
	}}
	h.BroadcastToConversation(ctx, m.ConversationID, out)
}

func (h *Hub) handleDeleteMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleDeleteMessage", time.Now())()
	if msg.MessageID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	m, err := h.msgRepo.SoftDelete(ctx, msg.MessageID, c.userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "message not found"})
		case errors.Is(err, repository.ErrUnauthorized):
			h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "can only delete own messages"})
		default:
			logger.Errorf("ws delete message %s: %v", msg.MessageID, err)
		}
		return
	}

	out := OutgoingMessage{Type: EventMessageDeleted, Payload: MessageDeletedPayload{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
	}}
	h.BroadcastToConversation(ctx, m.ConversationID, out)
}

// BroadcastUserStatus notifies everyone who shares a conversation with the
// user about an online/offline transition.
func (h *Hub) BroadcastUserStatus(userID string, online bool) {
	evType := EventUserOffline
	if online {
		evType = EventUserOnline
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	convs, err := h.convRepo.ListForUser(ctx, userID)
	if err != nil {
		logger.Errorf("ws get conversations for status broadcast user=%s: %v", userID, err)
		return
	}

	out := OutgoingMessage{
		Type: evType,
		Payload: UserStatusPayload{
			UserID: userID,
			Online: online,
		},
	}

	notified := make(map[string]struct{}, 16)
	for _, conv := range convs {
		for _, uid := range conv.Participants {
			if uid == userID {
				continue
			}
			if _, ok := notified[uid]; ok {
				continue
			}
			notified[uid] = struct{}{}
			h.sendToUser(uid, out)
		}
	}
}

// BroadcastToConversation sends a message to every participant.
func (h *Hub) BroadcastToConversation(ctx context.Context, conversationID string, msg OutgoingMessage) {
	defer logger.DeferLogDuration("ws.BroadcastToConversation", time.Now())()
	participants, err := h.convRepo.GetParticipants(ctx, conversationID)
	if err != nil {
		logger.Errorf("ws broadcast to conversation %s: %v", conversationID, err)
		return
	}
	for _, uid := range participants {
		h.sendToUser(uid, msg)
	}
}

func (h *Hub) broadcastToOthers(ctx context.Context, conversationID, excludeUserID string, msg OutgoingMessage) {
	participants, err := h.convRepo.GetParticipants(ctx, conversationID)
	if err != nil {
		logger.Errorf("ws broadcast to conversation %s: %v", conversationID, err)
		return
	}
	for _, uid := range participants {
		if uid != excludeUserID {
			h.sendToUser(uid, msg)
		}
	}
}

// NotifyUsers sends a message directly to the given users' connections.
func (h *Hub) NotifyUsers(userIDs []string, msg OutgoingMessage) {
	for _, uid := range userIDs {
		h.sendToUser(uid, msg)
	}
}

func (h *Hub) sendToUser(userID string, msg OutgoingMessage) {
	h.mu.RLock()
	clients, ok := h.clients[userID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client user=%s", c.userID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
