// Package protocol defines the wire messages exchanged with observers over
// the persistent websocket connection. The server is authoritative; clients
// only send commands.
package protocol

import "encoding/json"

// Server → client message types.
const (
	ServerWorldInit      = "WORLD_INIT"
	ServerWorldDiff      = "WORLD_DIFF"
	ServerEvent          = "EVENT"
	ServerMetrics        = "METRICS"
	ServerSimEnd         = "SIM_END"
	ServerAgentReasoning = "AGENT_REASONING"
)

// Client → server message types.
const (
	ClientInitSim      = "INIT_SIM"
	ClientPause        = "PAUSE"
	ClientResume       = "RESUME"
	ClientSetSpeed     = "SET_SPEED"
	ClientIntervention = "INTERVENTION"
	ClientSelectAgent  = "SELECT_AGENT"
)

// ServerMessage is the envelope for everything the server emits.
type ServerMessage struct {
	Type    string `json:"type"`
	Tick    int64  `json:"tick"`
	Payload any    `json:"payload,omitempty"`
}

// SimConfig is the INIT_SIM payload.
type SimConfig struct {
	Size     string `json:"size"`
	Terrain  string `json:"terrain"`
	Disaster string `json:"disaster"`
	Seed     int64  `json:"seed,omitempty"`
}

// ClientMessage is the envelope for observer commands.
type ClientMessage struct {
	Type    string     `json:"type"`
	Config  *SimConfig `json:"config,omitempty"`
	Speed   int        `json:"speed,omitempty"`
	Kind    string     `json:"kind,omitempty"`
	Message string     `json:"message,omitempty"`
	AgentID string     `json:"agent_id,omitempty"`
}

// ParseClientMessage decodes and minimally validates an incoming command.
func ParseClientMessage(raw []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// ValidSpeed reports whether the speed is one of the supported presets.
func ValidSpeed(speed int) bool {
	switch speed {
	case 1, 5, 20, 60:
		return true
	}
	return false
}
