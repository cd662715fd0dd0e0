package domain

import (
	"strings"
	"time"
)

// MaxContentLength upper bound for message content
const MaxContentLength = 2000

// ImageCaptionDefault content placeholder when an image is sent without a caption
const ImageCaptionDefault = "Image"

// MessageType kind of message carried in a thread
type MessageType string

const (
	// MessageTypeText plain text message
	MessageTypeText MessageType = "text"
	// MessageTypeImage image message, content holds the caption
	MessageTypeImage MessageType = "image"
	// MessageTypeSystem system generated notice
	MessageTypeSystem MessageType = "system"
	// MessageTypeBookingUpdate booking status change notice
	MessageTypeBookingUpdate MessageType = "booking_update"
)

// Valid check the type is one of the closed set
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeSystem, MessageTypeBookingUpdate:
		return true
	}
	return false
}

// Priority delivery priority of a message
type Priority string

const (
	// PriorityLow low priority
	PriorityLow Priority = "low"
	// PriorityNormal default priority
	PriorityNormal Priority = "normal"
	// PriorityHigh high priority
	PriorityHigh Priority = "high"
	// PriorityUrgent urgent priority
	PriorityUrgent Priority = "urgent"
)

// Valid check the priority is one of the closed set
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Attachment file metadata carried on a message; storage itself lives elsewhere
type Attachment struct {
	Filename string `bson:"filename" json:"filename"`
	URL      string `bson:"url" json:"url"`
	Type     string `bson:"type" json:"type"`
	Size     int64  `bson:"size" json:"size"`
}

// Message one durable message between two users. The message log is the
// only authoritative record; read-state is its single mutable part.
type Message struct {
	ID          string       `bson:"_id" json:"id"`
	SenderID    string       `bson:"sender_id" json:"sender_id"`
	RecipientID string       `bson:"recipient_id" json:"recipient_id"`
	Content     string       `bson:"content" json:"content"`
	MessageType MessageType  `bson:"message_type" json:"message_type"`
	ThreadID    string       `bson:"thread_id" json:"thread_id"`
	IsRead      bool         `bson:"is_read" json:"is_read"`
	ReadAt      *time.Time   `bson:"read_at,omitempty" json:"read_at,omitempty"`
	Priority    Priority     `bson:"priority" json:"priority"`
	Attachments []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updated_at"`
}

// Conversation one summary row per thread for a user
type Conversation struct {
	ThreadID    string   `bson:"_id" json:"thread_id"`
	LastMessage *Message `bson:"last_message" json:"last_message"`
	UnreadCount int      `bson:"unread_count" json:"unread_count"`
}

// ThreadKey derive the canonical thread key for two user ids. The ids
// are ordered lexicographically first, so ThreadKey(a,b) == ThreadKey(b,a).
func ThreadKey(idA, idB string) string {
	if strings.Compare(idA, idB) > 0 {
		idA, idB = idB, idA
	}
	return idA + "_" + idB
}

// ThreadCounterpart the other participant of a thread, false when
// userID is not part of the key
func ThreadCounterpart(threadID, userID string) (string, bool) {
	parts := strings.SplitN(threadID, "_", 2)
	if len(parts) != 2 {
		return "", false
	}
	switch userID {
	case parts[0]:
		return parts[1], true
	case parts[1]:
		return parts[0], true
	}
	return "", false
}
