package models

import "encoding/json"

// LaneIndexes links one lane to the positions in a site's raw measurement
// array that carry its flow and speed values. DATEX II descriptor indexes
// start at 1, so zero means the measurement kind is not present for the lane.
type LaneIndexes struct {
	Lane       int `json:"lane"`
	FlowIndex  int `json:"flow_index,omitempty"`
	SpeedIndex int `json:"speed_index,omitempty"`
}

// IndexMapping is the fixed-shape, per-site lane table. It is built once per
// reference refresh and treated as immutable until the next refresh.
type IndexMapping []LaneIndexes

// DecodeIndexMapping parses the jsonb column form back into the typed table.
func DecodeIndexMapping(raw []byte) (IndexMapping, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m IndexMapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
