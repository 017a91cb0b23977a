package protocol

import "github.com/MaxIvlevich/labyrinth-game/go/internal/models"

// Intent is a client-originated action awaiting transmission.
type Intent interface {
	IntentType() MessageType
}

// CreateRoom asks the server to open a new room.
type CreateRoom struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers"`
}

func (CreateRoom) IntentType() MessageType { return MessageTypeCreateRoom }

// JoinRoom asks to take a seat in an existing room.
type JoinRoom struct {
	RoomID string `json:"roomId"`
}

func (JoinRoom) IntentType() MessageType { return MessageTypeJoinRoom }

// LeaveRoom leaves the current room.
type LeaveRoom struct{}

func (LeaveRoom) IntentType() MessageType { return MessageTypeLeaveRoom }

// ReconnectToRoom rejoins a room after the connection was re-established.
type ReconnectToRoom struct {
	RoomID string `json:"roomId"`
}

func (ReconnectToRoom) IntentType() MessageType { return MessageTypeReconnectToRoom }

// GetRoomList requests a ROOM_LIST_UPDATE.
type GetRoomList struct{}

func (GetRoomList) IntentType() MessageType { return MessageTypeGetRoomList }

// PlayerShift inserts the extra tile into a row or column.
type PlayerShift struct {
	RoomID         string           `json:"roomId"`
	ShiftDirection models.Direction `json:"shiftDirection"`
	ShiftIndex     int              `json:"shiftIndex"`
	NewOrientation int              `json:"newOrientation"`
}

func (PlayerShift) IntentType() MessageType { return MessageTypePlayerShift }

// PlayerMove moves the player's piece to a target cell.
type PlayerMove struct {
	RoomID  string `json:"roomId"`
	TargetX int    `json:"targetX"`
	TargetY int    `json:"targetY"`
}

func (PlayerMove) IntentType() MessageType { return MessageTypePlayerMove }
