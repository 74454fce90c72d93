// Package types contains JSON read shapes shared by the HTTP API and its clients.
package types

import "time"

// SlotState is the indicator state of one debounce key.
type SlotState struct {
	Key int  `json:"key"`
	On  bool `json:"on"`
}

// Vector is a skeleton-space position in metres.
type Vector struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Readout mirrors the UI text fields for the most recent definitive subject.
type Readout struct {
	Frame      uint64 `json:"frame"`
	Slot       int    `json:"slot"`
	TrackingID int    `json:"tracking_id"`
	Head       Vector `json:"head"`
	WristRight Vector `json:"wrist_right"`
}

// Overlay is an overlay rectangle in color pixel space.
type Overlay struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// State is the GET /state response.
type State struct {
	Frame    uint64      `json:"frame"`
	Slots    []SlotState `json:"slots"`
	Readout  *Readout    `json:"readout,omitempty"`
	Overlays []Overlay   `json:"overlays"`
}

// Transition is a debounced posture change as exposed over HTTP.
type Transition struct {
	ID         string    `json:"id"`
	Frame      uint64    `json:"frame"`
	Key        int       `json:"key"`
	Slot       int       `json:"slot"`
	TrackingID int       `json:"tracking_id"`
	Kind       string    `json:"kind"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

// Stats is the GET /stats response. Runtime fields are zero until the service
// has started.
type Stats struct {
	Started            bool   `json:"started"`
	QueueSize          int    `json:"queueSize"`
	DedupeSize         int    `json:"dedupeSize"`
	MaxSubjects        int    `json:"maxSubjects"`
	ColorFormat        string `json:"colorFormat"`
	XAxis              string `json:"xAxis"`
	StateKey           string `json:"stateKey"`
	ResetOnSubjectLoss bool   `json:"resetOnSubjectLoss"`

	QueueLength     int    `json:"queueLength"`
	FramesAccepted  uint64 `json:"framesAccepted"`
	FramesProcessed uint64 `json:"framesProcessed"`
	FramesRecorded  int    `json:"framesRecorded"`
	DuplicateFrames uint64 `json:"duplicateFrames"`
	FrameIDs        int64  `json:"frameIds"`
	SubjectsOn      int    `json:"subjectsOn"`
	Stalled         bool   `json:"stalled"`
}
