package protocol

import (
	"encoding/json"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/models"
)

// MessageType is the "type" discriminator carried by every envelope.
type MessageType string

const (
	// Client -> server
	MessageTypeCreateRoom      MessageType = "CREATE_ROOM"
	MessageTypeJoinRoom        MessageType = "JOIN_ROOM"
	MessageTypeLeaveRoom       MessageType = "LEAVE_ROOM"
	MessageTypeReconnectToRoom MessageType = "RECONNECT_TO_ROOM"
	MessageTypeGetRoomList     MessageType = "GET_ROOM_LIST_REQUEST"
	MessageTypePlayerShift     MessageType = "PLAYER_ACTION_SHIFT"
	MessageTypePlayerMove      MessageType = "PLAYER_ACTION_MOVE"

	// Server -> client
	MessageTypeRoomListUpdate  MessageType = "ROOM_LIST_UPDATE"
	MessageTypeGameStateUpdate MessageType = "GAME_STATE_UPDATE"
	MessageTypeError           MessageType = "ERROR_MESSAGE"
	MessageTypeWelcome         MessageType = "WELCOME_MESSAGE"
)

// ErrorType classifies an ERROR_MESSAGE push.
type ErrorType string

const (
	ErrorTypeUnknown               ErrorType = "UNKNOWN_ERROR"
	ErrorTypeValidation            ErrorType = "VALIDATION_ERROR"
	ErrorTypeUnauthorized          ErrorType = "UNAUTHORIZED"
	ErrorTypeDoubleSession         ErrorType = "DOUBLE_SESSION_AUTHORIZED"
	ErrorTypeNullRequest           ErrorType = "NULL_REQUEST"
	ErrorTypeRoomNotFound          ErrorType = "ROOM_NOT_FOUND"
	ErrorTypeRoomIsFull            ErrorType = "ROOM_IS_FULL"
	ErrorTypeGameAlreadyStarted    ErrorType = "GAME_ALREADY_STARTED"
	ErrorTypeNotYourTurn           ErrorType = "NOT_YOUR_TURN"
	ErrorTypeInvalidPhaseForAction ErrorType = "INVALID_PHASE_FOR_ACTION"
	ErrorTypeInvalidMove           ErrorType = "INVALID_MOVE"
	ErrorTypeInvalidShift          ErrorType = "INVALID_SHIFT"
)

// ServerMessage is a decoded server push.
type ServerMessage interface {
	MessageType() MessageType
}

// RoomListUpdate replaces the lobby's room list.
type RoomListUpdate struct {
	Rooms       []models.RoomInfo `json:"rooms"`
	CurrentPage int               `json:"currentPage"`
	TotalItems  int64             `json:"totalItems"`
	TotalPages  int               `json:"totalPages"`
}

func (RoomListUpdate) MessageType() MessageType { return MessageTypeRoomListUpdate }

// GameStateUpdate carries a full authoritative game snapshot.
type GameStateUpdate struct {
	models.GameState
}

func (GameStateUpdate) MessageType() MessageType { return MessageTypeGameStateUpdate }

// ErrorMessage is an application error reported by the server.
type ErrorMessage struct {
	ErrorType ErrorType `json:"errorType"`
	Message   string    `json:"message"`
}

func (ErrorMessage) MessageType() MessageType { return MessageTypeError }

// WelcomeMessage is informational and has no state effect.
type WelcomeMessage struct {
	Message string `json:"message"`
}

func (WelcomeMessage) MessageType() MessageType { return MessageTypeWelcome }

// Unknown wraps a push whose type this client does not handle.
type Unknown struct {
	Type MessageType
	Raw  json.RawMessage
}

func (u Unknown) MessageType() MessageType { return u.Type }
