package model

type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// RegisterMessage is a Home Assistant MQTT discovery payload. Topics
// starting with "~" are relative to Tilda.
type RegisterMessage struct {
	Tilda          string         `json:"~"`
	Name           string         `json:"name"`
	ID             string         `json:"unique_id"`
	StateTopic     string         `json:"state_topic"`
	CommandTopic   string         `json:"command_topic,omitempty"`
	EntityCategory string         `json:"entity_category,omitempty"`
	Min            *int           `json:"min,omitempty"`
	Max            *int           `json:"max,omitempty"`
	Step           *int           `json:"step,omitempty"`
	Options        []string       `json:"options,omitempty"`
	PayloadOn      string         `json:"payload_on,omitempty"`
	PayloadOff     string         `json:"payload_off,omitempty"`
	Device         RegisterDevice `json:"device"`
}
