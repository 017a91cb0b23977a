package models

// GamePhase defines the phase a room's game is in.
type GamePhase string

const (
	GamePhaseWaitingForPlayers GamePhase = "WAITING_FOR_PLAYERS"
	GamePhasePlayerShift       GamePhase = "PLAYER_SHIFT"
	GamePhasePlayerMove        GamePhase = "PLAYER_MOVE"
	GamePhaseGameOver          GamePhase = "GAME_OVER"
)

// IsActivePlay reports whether a turn is in progress.
func (p GamePhase) IsActivePlay() bool {
	return p == GamePhasePlayerShift || p == GamePhasePlayerMove
}

// PlayerStatus defines a player's connectivity as seen by the server.
type PlayerStatus string

const (
	PlayerStatusConnected    PlayerStatus = "CONNECTED"
	PlayerStatusDisconnected PlayerStatus = "DISCONNECTED"
)

// Player represents a participant in a room.
type Player struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	AvatarType         string       `json:"avatarType,omitempty"`
	CurrentX           int          `json:"currentX"`
	CurrentY           int          `json:"currentY"`
	BaseX              int          `json:"baseX"`
	BaseY              int          `json:"baseY"`
	CollectedMarkerIDs []int        `json:"collectedMarkerIds,omitempty"`
	TargetMarkerIDs    []int        `json:"targetMarkerIds,omitempty"`
	Status             PlayerStatus `json:"status,omitempty"`
}

// GameState is the authoritative snapshot pushed by the server.
// It is replaced wholesale on every update and never patched locally.
type GameState struct {
	RoomID          string    `json:"roomId"`
	Board           *Board    `json:"board"`
	Players         []Player  `json:"players"`
	CurrentPhase    GamePhase `json:"currentPhase"`
	CurrentPlayerID string    `json:"currentPlayerId,omitempty"`
	WinnerID        string    `json:"winnerId,omitempty"`
	WinnerName      string    `json:"winnerName,omitempty"`
}

// PendingExtraTile returns the tile waiting to be inserted, if any.
func (g *GameState) PendingExtraTile() *Tile {
	if g == nil || g.Board == nil {
		return nil
	}
	return g.Board.ExtraTile
}

// Player returns the player with the given id, or nil.
func (g *GameState) Player(id string) *Player {
	if g == nil {
		return nil
	}
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}
