package session

import (
	"encoding/json"

	"github.com/eyedraw/eyedraw/backend-go/internal/drawing"
	"github.com/eyedraw/eyedraw/backend-go/internal/render"
)

type Message struct {
	Type      string          `json:"type"`
	DrawingID string          `json:"drawingId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client to server
	TypePointerDown    = "pointer.down"
	TypePointerMove    = "pointer.move"
	TypePointerUp      = "pointer.up"
	TypePointerLeave   = "pointer.leave"
	TypeAddDoodle      = "doodle.add"
	TypeDeleteSelected = "doodle.deleteSelected"
	TypeSetParameter   = "doodle.setParameter"
	TypeMoveToFront    = "doodle.moveToFront"
	TypeMoveToBack     = "doodle.moveToBack"
	TypeSquiggleArm    = "squiggle.arm"
	TypeSquiggleDisarm = "squiggle.disarm"
	TypeZoomIn         = "zoom.in"
	TypeZoomOut        = "zoom.out"
	TypeSave           = "scene.save"

	// Server to client
	TypeWelcome = "welcome"
	TypeFrame   = "frame"
	TypeNotify  = "notify"
	TypeAck     = "ack"
	TypeSaved   = "scene.saved"
	TypeError   = "error"
)

type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type AddDoodlePayload struct {
	ClassName  string         `json:"className"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// SetParameterPayload targets DoodleID, or the selected doodle when it is empty.
type SetParameterPayload struct {
	DoodleID  string `json:"doodleId,omitempty"`
	Parameter string `json:"parameter"`
	Value     any    `json:"value"`
}

type SquigglePayload struct {
	Colour    string  `json:"colour,omitempty"`
	Thickness float64 `json:"thickness,omitempty"`
	Filled    bool    `json:"filled"`
}

type WelcomePayload struct {
	ClientID  string   `json:"clientId"`
	DrawingID string   `json:"drawingId"`
	Classes   []string `json:"classes"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
}

type FramePayload struct {
	Commands []render.DrawCommand `json:"commands"`
}

// NotifyPayload is the wire form of a drawing notification.
type NotifyPayload struct {
	Event     drawing.Event `json:"event"`
	DoodleID  string        `json:"doodleId,omitempty"`
	ClassName string        `json:"className,omitempty"`
	Parameter string        `json:"parameter,omitempty"`
	Old       any           `json:"old,omitempty"`
	New       any           `json:"new,omitempty"`
}

type AckPayload struct {
	Seq  int64  `json:"seq"`
	Mode string `json:"mode,omitempty"`
}

type SavedPayload struct {
	Version int `json:"version"`
}

type ErrorPayload struct {
	Seq     int64  `json:"seq,omitempty"`
	Message string `json:"message"`
}

func notifyPayload(n drawing.Notification) NotifyPayload {
	p := NotifyPayload{Event: n.Event, Parameter: n.Parameter, Old: n.Old, New: n.New}
	if n.Doodle != nil {
		p.DoodleID = n.Doodle.ID
		p.ClassName = n.Doodle.ClassName()
	}
	return p
}

func newMessage(typ string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(ErrorPayload{Message: err.Error()})
		typ = TypeError
	}
	return &Message{Type: typ, Payload: data}
}
