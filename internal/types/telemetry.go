package types

import "encoding/json"

// DefectStatus is the telemetry event published on the defects topic.
// The Defect field carries the string "true" or "false" (not a JSON bool);
// downstream consumers of the counter stream expect that exact shape.
type DefectStatus struct {
	Defect string `json:"Defect"`
}

// NewDefectStatus builds the event for the given defect flag.
func NewDefectStatus(defect bool) DefectStatus {
	s := DefectStatus{Defect: "false"}
	if defect {
		s.Defect = "true"
	}
	return s
}

// ToJSON converts the event to JSON bytes
func (d DefectStatus) ToJSON() ([]byte, error) {
	return json.Marshal(d)
}
