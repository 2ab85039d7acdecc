package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eyedraw/eyedraw/backend-go/internal/document"
	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/drawing"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
	"github.com/eyedraw/eyedraw/backend-go/internal/render"
)

var (
	ErrBusy           = errors.New("drawing is already being edited")
	ErrUnknownMessage = errors.New("unknown message type")
)

// Session is one live drawing and the single client editing it. Every access to the
// drawing goes through the session lock.
type Session struct {
	mu       sync.Mutex
	hub      *Hub
	doc      document.Document
	drawing  *drawing.Drawing
	recorder *render.Recorder
	client   *Client
	dirty    bool
	logger   *slog.Logger
}

func (s *Session) ID() string {
	return s.doc.ID
}

// Do runs fn with exclusive access to the drawing. Changes made by fn mark the session
// dirty and are pushed to the attached client.
func (s *Session) Do(fn func(d *drawing.Drawing) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.drawing)
	s.sendFrame()
	return err
}

// MarkDirty records a change the drawing does not announce, such as a reorder.
func (s *Session) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Attached reports whether a client is editing the drawing.
func (s *Session) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// Document returns the persisted form of the live drawing.
func (s *Session) Document() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentLocked()
}

func (s *Session) documentLocked() *document.Document {
	doc := s.doc
	doc.Width, doc.Height = s.drawing.Size()
	doc.Doodles = s.drawing.Records()
	return &doc
}

// Save writes the drawing to the store and returns the new version.
func (s *Session) Save(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Session) saveLocked(ctx context.Context) (int, error) {
	version, err := s.hub.persist.Save(ctx, s.documentLocked())
	if err != nil {
		return 0, fmt.Errorf("save %s: %w", s.doc.ID, err)
	}
	s.doc.Version = version
	s.dirty = false
	s.logger.Info("drawing saved", "version", version)
	return version, nil
}

// saveIfDirty saves unsaved changes.
func (s *Session) saveIfDirty(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	_, err := s.saveLocked(ctx)
	return err
}

func (s *Session) attach(c *Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return fmt.Errorf("%w: %s", ErrBusy, s.doc.ID)
	}
	s.client = c

	width, height := s.drawing.Size()
	c.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID:  c.ClientID,
		DrawingID: s.doc.ID,
		Classes:   s.drawing.Classes().Names(),
		Width:     width,
		Height:    height,
	}))
	s.sendFrame()
	return nil
}

// detach releases the session if c holds it. A gesture still in progress ends as if the
// pointer had left the canvas, so its changes are announced and saved. It reports whether
// c was attached.
func (s *Session) detach(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != c {
		return false
	}
	s.client = nil
	s.drawing.PointerLeave()
	s.drawing.Deselect()
	return true
}

// onNotify runs inside drawing calls, so the session lock is already held.
func (s *Session) onNotify(n drawing.Notification) {
	switch n.Event {
	case drawing.EventDoodleAdded, drawing.EventDoodleDeleted, drawing.EventParameterChanged:
		s.dirty = true
	}
	if s.client != nil {
		s.client.Send(newMessage(TypeNotify, notifyPayload(n)))
	}
}

func (s *Session) sendFrame() {
	if s.client != nil {
		s.client.Send(newMessage(TypeFrame, FramePayload{Commands: s.recorder.Commands()}))
	}
}

func (s *Session) handle(ctx context.Context, c *Client, msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != c {
		return
	}

	if msg.Type == TypeSave {
		version, err := s.saveLocked(ctx)
		if err != nil {
			s.logger.Error("save failed", "error", err)
			c.Send(newMessage(TypeError, ErrorPayload{Seq: msg.Seq, Message: "save failed"}))
			return
		}
		c.Send(newMessage(TypeSaved, SavedPayload{Version: version}))
		return
	}

	ack, err := s.apply(msg)
	if err != nil {
		s.logger.Debug("message rejected", "type", msg.Type, "error", err)
		c.Send(newMessage(TypeError, ErrorPayload{Seq: msg.Seq, Message: err.Error()}))
		return
	}
	c.Send(newMessage(TypeAck, ack))
	s.sendFrame()
}

func (s *Session) apply(msg *Message) (AckPayload, error) {
	ack := AckPayload{Seq: msg.Seq}
	d := s.drawing

	switch msg.Type {
	case TypePointerDown, TypePointerMove, TypePointerUp:
		p, err := decode[PointerPayload](msg.Payload)
		if err != nil {
			return ack, err
		}
		pt := geometry.Pt(p.X, p.Y)
		switch msg.Type {
		case TypePointerDown:
			ack.Mode = d.PointerDown(pt).String()
		case TypePointerMove:
			d.PointerMove(pt)
		default:
			d.PointerUp(pt)
		}

	case TypePointerLeave:
		d.PointerLeave()

	case TypeAddDoodle:
		p, err := decode[AddDoodlePayload](msg.Payload)
		if err != nil {
			return ack, err
		}
		if _, err := d.AddDoodle(p.ClassName, p.Parameters); err != nil {
			return ack, err
		}

	case TypeDeleteSelected:
		return ack, d.DeleteSelectedDoodle()

	case TypeSetParameter:
		p, err := decode[SetParameterPayload](msg.Payload)
		if err != nil {
			return ack, err
		}
		target, err := s.target(p.DoodleID)
		if err != nil {
			return ack, err
		}
		return ack, d.SetParameter(target, p.Parameter, p.Value)

	case TypeMoveToFront, TypeMoveToBack:
		sel := d.Selected()
		if sel == nil {
			return ack, drawing.ErrNoSelection
		}
		move := d.MoveToFront
		if msg.Type == TypeMoveToBack {
			move = d.MoveToBack
		}
		if err := move(sel); err != nil {
			return ack, err
		}
		s.dirty = true

	case TypeSquiggleArm:
		p, err := decode[SquigglePayload](msg.Payload)
		if err != nil {
			return ack, err
		}
		pen := doodle.SquiggleStyle
		if p.Colour != "" {
			pen.Stroke = p.Colour
		}
		if p.Thickness > 0 {
			pen.LineWidth = p.Thickness
		}
		if !d.ArmSquiggle(pen, p.Filled) {
			return ack, drawing.ErrNoSelection
		}

	case TypeSquiggleDisarm:
		d.DisarmSquiggle()

	case TypeZoomIn:
		d.ZoomIn()

	case TypeZoomOut:
		d.ZoomOut()

	default:
		return ack, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	return ack, nil
}

func (s *Session) target(id string) (*doodle.Doodle, error) {
	if id == "" {
		if sel := s.drawing.Selected(); sel != nil {
			return sel, nil
		}
		return nil, drawing.ErrNoSelection
	}
	if dd := s.drawing.Doodle(id); dd != nil {
		return dd, nil
	}
	return nil, fmt.Errorf("%w: %s", drawing.ErrNotFound, id)
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, errors.New("missing payload")
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("invalid payload: %w", err)
	}
	return v, nil
}
