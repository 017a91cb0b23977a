package models

// RoomInfo is a lobby summary of a room.
type RoomInfo struct {
	RoomID             string    `json:"roomId"`
	RoomName           string    `json:"roomName"`
	CurrentPlayerCount int       `json:"currentPlayerCount"`
	MaxPlayers         int       `json:"maxPlayers"`
	GamePhase          GamePhase `json:"gamePhase"`
}

// Full reports whether the room has no free seat.
func (r RoomInfo) Full() bool {
	return r.MaxPlayers > 0 && r.CurrentPlayerCount >= r.MaxPlayers
}
