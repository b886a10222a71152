package remotepeer

// StateChangedPayload is the sparse body of a StateChanged message; all fields except
// gameActive (and a few fields of the nested sections) are omitempty. The
// server sends a fresh one on connect (with every section populated) and a partial one after
// any change (only the sections that moved).
type StateChangedPayload struct {
	GameActive    bool               `json:"gameActive"`
	GamesToUpload int                `json:"gamesToUpload,omitempty"`
	Game          *GamePayload       `json:"game,omitempty"`
	BoardState    *BoardStatePayload `json:"boardState,omitempty"`
	Settings      *SettingsPayload   `json:"settings,omitempty"`
}

type GamePayload struct {
	GameID      string `json:"gameId"`
	EngineLevel int    `json:"engineLevel"`
	White       string `json:"white"` // "human" | "engine" | "bluetooth"
	Black       string `json:"black"`
}

type BoardStatePayload struct {
	FEN            string `json:"fen"`
	PGN            string `json:"pgn"`
	LastMove       string `json:"lastMove,omitempty"`
	MoveCount      int    `json:"moveCount"`
	ShouldSendMove bool   `json:"shouldSendMove,omitempty"`
}

type SettingsPayload struct {
	LearningMode bool `json:"learningMode"`
}

// StartNormalGamePayload is the body of a StartNormalGame client message.
type StartNormalGamePayload struct {
	EnableEngine bool   `json:"enableEngine"`
	EngineColor  string `json:"engineColor"` // "white" | "black"
	EngineLevel  int    `json:"engineLevel"`
	GameID       string `json:"gameId,omitempty"`
	StartFEN     string `json:"startFen,omitempty"`
}

// ForceBluetoothMovesPayload is the body of a ForceBluetoothMoves client message. ClientColor
// is the color NOT controlled by the physical board; Winner, if present, forces adjudication.
type ForceBluetoothMovesPayload struct {
	GameID      string   `json:"gameId"`
	ClientColor string   `json:"clientColor"` // "white" | "black"
	Moves       []string `json:"moves"`
	Winner      *string  `json:"winner,omitempty"` // "white" | "black" | "draw"
}

// RequestArchivePGNFilePayload is the body of a RequestArchivePGNFile client message.
type RequestArchivePGNFilePayload struct {
	All  bool   `json:"all,omitempty"`
	Name string `json:"name,omitempty"`
}

// WritePreferencesPayload is the body of a WritePreferences client message: an arbitrary
// settings patch, validated the same way Orchestrator.UpdateSettings validates a local request.
type WritePreferencesPayload map[string]any

// RetPGNFilePayload is the body of a RetPGNFile server message.
type RetPGNFilePayload struct {
	Name string `json:"name"`
	PGN  string `json:"pgn"`
}

// OnErrorPayload is the body of an OnError server message.
type OnErrorPayload struct {
	Message string `json:"message"`
}
