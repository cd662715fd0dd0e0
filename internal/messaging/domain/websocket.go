package domain

// Action websocket request action
type Action string

const (
	// JoinThread websocket action join-thread
	JoinThread Action = "join-thread"
	// LeaveThread websocket action leave-thread
	LeaveThread Action = "leave-thread"
	// TypingStart websocket action typing-start
	TypingStart Action = "typing-start"
	// TypingStop websocket action typing-stop
	TypingStop Action = "typing-stop"
	// MarkMessagesRead websocket action mark-messages-read
	MarkMessagesRead Action = "mark-messages-read"
	// RefreshMessages websocket action refresh-messages
	RefreshMessages Action = "refresh-messages"
)

// Event server emitted websocket event name
type Event string

const (
	// EventNewMessage server event new-message
	EventNewMessage Event = "new-message"
	// EventUserTyping server event user-typing
	EventUserTyping Event = "user-typing"
	// EventUserStoppedTyping server event user-stopped-typing
	EventUserStoppedTyping Event = "user-stopped-typing"
	// EventMessagesRead server event messages-read
	EventMessagesRead Event = "messages-read"
	// EventNotification server event notification, personal group only
	EventNotification Event = "notification"
	// EventRefreshRequested server event refresh-requested
	EventRefreshRequested Event = "refresh-requested"
	// EventError server event error
	EventError Event = "error"
)

// WSRequest websocket Request
type WSRequest struct {
	Action   string `json:"action"`
	ThreadID string `json:"thread_id"`
}

// WSEvent websocket server push
type WSEvent struct {
	Event   Event                  `json:"event"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
