package models

// Event types pushed to websocket clients
const (
	EventFriendRequest  = "friend_request"
	EventFriendAccepted = "friend_accepted"
	EventFriendRejected = "friend_rejected"
	EventFriendRemoved  = "friend_removed"
	EventOnlineStatus   = "online_status"
)

// WebSocketMessage is the format for real-time messages
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
