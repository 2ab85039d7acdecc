package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/eyedraw/eyedraw/backend-go/internal/document"
	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/drawing"
	"github.com/eyedraw/eyedraw/backend-go/internal/shapes"
)

var errMissing = errors.New("missing")

type memPersistence struct {
	mu       sync.Mutex
	docs     map[string]document.Document
	versions map[string]int
}

func newMemPersistence(ids ...string) *memPersistence {
	p := &memPersistence{docs: make(map[string]document.Document), versions: make(map[string]int)}
	for _, id := range ids {
		doc := document.NewEmptyDocument(id, "test", "right")
		doc.Doodles = shapes.SampleScene()
		p.docs[id] = *doc
	}
	return p
}

func (p *memPersistence) Load(_ context.Context, id string) (*document.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, ok := p.docs[id]
	if !ok {
		return nil, errMissing
	}
	return &doc, nil
}

func (p *memPersistence) Save(_ context.Context, doc *document.Document) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions[doc.ID]++
	p.docs[doc.ID] = *doc
	return p.versions[doc.ID], nil
}

func (p *memPersistence) saved(id string) (document.Document, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.docs[id], p.versions[id]
}

func newTestHub(p Persistence) *Hub {
	return NewHub(shapes.NewRegistry(), p, WithAutosave(0), WithReadyTimeout(time.Second))
}

func drain(c *Client) []Message {
	var out []Message
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var m Message
			if err := json.Unmarshal(data, &m); err != nil {
				panic(err)
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func types(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func send(t *testing.T, c *Client, typ string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	c.hub.handleMessage(context.Background(), c, &Message{Type: typ, Seq: 7, Payload: data})
}

func TestOpenLoadsDocument(t *testing.T) {
	hub := newTestHub(newMemPersistence("drw_1"))

	s, err := hub.Open(context.Background(), "drw_1")
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Do(func(d *drawing.Drawing) error {
		if d.Len() != 4 || !d.Ready() {
			t.Errorf("loaded %d doodles, ready %v", d.Len(), d.Ready())
		}
		return nil
	})
	if again, _ := hub.Open(context.Background(), "drw_1"); again != s {
		t.Error("second Open created a new session")
	}
	if _, ok := hub.Drawings().Lookup("drw_1"); !ok {
		t.Error("drawing not registered")
	}
	if s.Dirty() {
		t.Error("freshly loaded session is dirty")
	}

	if _, err := hub.Open(context.Background(), "drw_missing"); !errors.Is(err, errMissing) {
		t.Errorf("missing drawing err = %v", err)
	}
}

func TestSecondClientIsRefused(t *testing.T) {
	hub := newTestHub(newMemPersistence("drw_1"))
	ctx := context.Background()

	first := NewClient(hub, nil, "user_a", "drw_1", "c1")
	if err := hub.Register(ctx, first); err != nil {
		t.Fatal(err)
	}
	msgs := drain(first)
	if got := types(msgs); len(got) != 2 || got[0] != TypeWelcome || got[1] != TypeFrame {
		t.Fatalf("on join = %v", got)
	}
	var welcome WelcomePayload
	if err := json.Unmarshal(msgs[0].Payload, &welcome); err != nil || welcome.DrawingID != "drw_1" || len(welcome.Classes) == 0 {
		t.Errorf("welcome = %+v, %v", welcome, err)
	}
	if !hub.Busy("drw_1") {
		t.Error("Busy = false with a client attached")
	}

	second := NewClient(hub, nil, "user_a", "drw_1", "c2")
	if err := hub.Register(ctx, second); !errors.Is(err, ErrBusy) {
		t.Errorf("second Register err = %v, want ErrBusy", err)
	}
}

func TestMessagesDriveDrawing(t *testing.T) {
	p := newMemPersistence("drw_1")
	hub := newTestHub(p)
	c := NewClient(hub, nil, "user_a", "drw_1", "c1")
	if err := hub.Register(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	drain(c)

	send(t, c, TypeAddDoodle, AddDoodlePayload{ClassName: shapes.LaserSpot, Parameters: map[string]any{"originX": 10, "originY": 20}})
	msgs := drain(c)
	want := []string{TypeNotify, TypeNotify, TypeAck, TypeFrame}
	if got := types(msgs); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("after add = %v, want %v", got, want)
	}
	var added NotifyPayload
	_ = json.Unmarshal(msgs[0].Payload, &added)
	if added.Event != drawing.EventDoodleAdded || added.ClassName != shapes.LaserSpot || added.DoodleID == "" {
		t.Errorf("added = %+v", added)
	}
	var ack AckPayload
	_ = json.Unmarshal(msgs[2].Payload, &ack)
	if ack.Seq != 7 {
		t.Errorf("ack seq = %d", ack.Seq)
	}
	var frame FramePayload
	_ = json.Unmarshal(msgs[3].Payload, &frame)
	if len(frame.Commands) == 0 || frame.Commands[0].Op != "clear" {
		t.Errorf("frame = %+v", frame)
	}

	s, _ := hub.Session("drw_1")
	if !s.Dirty() {
		t.Error("session not dirty after add")
	}

	send(t, c, TypeSetParameter, SetParameterPayload{Parameter: "scaleX", Value: 2})
	if got := types(drain(c)); fmt.Sprint(got) != fmt.Sprint([]string{TypeNotify, TypeAck, TypeFrame}) {
		t.Errorf("after set = %v", got)
	}

	send(t, c, TypeSetParameter, SetParameterPayload{Parameter: "scaleX", Value: "wide"})
	msgs = drain(c)
	if len(msgs) != 1 || msgs[0].Type != TypeError {
		t.Errorf("bad value = %v", types(msgs))
	}

	send(t, c, "doodle.explode", nil)
	msgs = drain(c)
	var e ErrorPayload
	if len(msgs) != 1 || json.Unmarshal(msgs[0].Payload, &e) != nil || !strings.Contains(e.Message, "unknown message type") {
		t.Errorf("unknown type = %v", msgs)
	}

	send(t, c, TypeSave, nil)
	msgs = drain(c)
	if len(msgs) != 1 || msgs[0].Type != TypeSaved {
		t.Fatalf("save = %v", types(msgs))
	}
	doc, version := p.saved("drw_1")
	if version != 1 || len(doc.Doodles) != 5 || doc.Doodles[4].ClassName != shapes.LaserSpot {
		t.Errorf("saved version %d with %d doodles", version, len(doc.Doodles))
	}
	if doc.Doodles[4].Parameters["scaleX"] != 2.0 {
		t.Errorf("saved scaleX = %v", doc.Doodles[4].Parameters["scaleX"])
	}
	if s.Dirty() {
		t.Error("session dirty after save")
	}
}

func TestPointerMessages(t *testing.T) {
	hub := newTestHub(newMemPersistence("drw_1"))
	c := NewClient(hub, nil, "user_a", "drw_1", "c1")
	if err := hub.Register(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	send(t, c, TypeAddDoodle, AddDoodlePayload{ClassName: shapes.BlotHaemorrhage, Parameters: map[string]any{"originX": 0, "originY": 0}})
	drain(c)

	// canvas pixels: the 1000x1000 drawing has its origin at (500, 500)
	send(t, c, TypePointerDown, PointerPayload{X: 500, Y: 500})
	msgs := drain(c)
	var ack AckPayload
	if len(msgs) < 2 || json.Unmarshal(msgs[len(msgs)-2].Payload, &ack) != nil || ack.Mode != "move" {
		t.Fatalf("pointer down = %v, ack %+v", types(msgs), ack)
	}
	send(t, c, TypePointerMove, PointerPayload{X: 550, Y: 500})
	send(t, c, TypePointerUp, PointerPayload{X: 550, Y: 500})

	s, _ := hub.Session("drw_1")
	_ = s.Do(func(d *drawing.Drawing) error {
		if x := d.Selected().Origin().X; x != 50 {
			t.Errorf("originX after drag = %v, want 50", x)
		}
		return nil
	})
}

func TestClientLeaveSavesAndCloses(t *testing.T) {
	p := newMemPersistence("drw_1")
	hub := newTestHub(p)
	go hub.Run()

	c := NewClient(hub, nil, "user_a", "drw_1", "c1")
	if err := hub.Register(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	send(t, c, TypeAddDoodle, AddDoodlePayload{ClassName: shapes.Microaneurysm})

	hub.unregister <- c
	hub.Stop()

	if _, open := hub.Session("drw_1"); open {
		t.Error("session still open after client left")
	}
	if _, ok := hub.Drawings().Lookup("drw_1"); ok {
		t.Error("drawing still registered")
	}
	if doc, version := p.saved("drw_1"); version != 1 || len(doc.Doodles) != 5 {
		t.Errorf("saved version %d with %d doodles", version, len(doc.Doodles))
	}
	drain(c) // returns once the closed channel is empty
}

func TestLeaveMidDragSavesGesture(t *testing.T) {
	p := newMemPersistence("drw_1")
	hub := newTestHub(p)
	c := NewClient(hub, nil, "user_a", "drw_1", "c1")
	if err := hub.Register(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	s := c.session

	// the sample blot sits at (-180, 120)
	send(t, c, TypePointerDown, PointerPayload{X: 320, Y: 620})
	send(t, c, TypePointerMove, PointerPayload{X: 370, Y: 620})
	hub.removeClient(c)

	if mode := s.drawing.Dragging(); mode != doodle.ModeNone {
		t.Errorf("drag mode after leave = %v, want none", mode)
	}
	if _, open := hub.Session("drw_1"); open {
		t.Error("session still open after client left")
	}
	doc, version := p.saved("drw_1")
	if version != 1 {
		t.Fatalf("saved %d times, want 1", version)
	}
	blot := doc.Doodles[2]
	if blot.ClassName != shapes.BlotHaemorrhage || blot.Parameters["originX"] != -130.0 {
		t.Errorf("saved %s originX = %v, want -130", blot.ClassName, blot.Parameters["originX"])
	}
}

type blockingPersistence struct {
	*memPersistence
	slowID  string
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPersistence) Load(ctx context.Context, id string) (*document.Document, error) {
	if id == p.slowID {
		close(p.entered)
		<-p.release
	}
	return p.memPersistence.Load(ctx, id)
}

func TestSlowLoadDoesNotBlockOtherDrawings(t *testing.T) {
	p := &blockingPersistence{
		memPersistence: newMemPersistence("drw_1", "drw_2", "drw_slow"),
		slowID:         "drw_slow",
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	hub := newTestHub(p)
	ctx := context.Background()
	if _, err := hub.Open(ctx, "drw_1"); err != nil {
		t.Fatal(err)
	}

	type opened struct {
		s   *Session
		err error
	}
	slow := make(chan opened, 2)
	for range 2 {
		go func() {
			s, err := hub.Open(ctx, "drw_slow")
			slow <- opened{s, err}
		}()
	}
	<-p.entered

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := hub.Session("drw_1"); !ok {
			t.Error("drw_1 not open")
		}
		if hub.Busy("drw_1") {
			t.Error("drw_1 busy without a client")
		}
		if _, err := hub.Open(ctx, "drw_2"); err != nil {
			t.Error(err)
		}
		if err := hub.Close(ctx, "drw_1"); err != nil {
			t.Error(err)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub blocked by a drawing that is still loading")
	}

	close(p.release)
	first, second := <-slow, <-slow
	if first.err != nil || second.err != nil {
		t.Fatalf("slow opens = %v, %v", first.err, second.err)
	}
	if first.s != second.s {
		t.Error("concurrent opens loaded the drawing twice")
	}
}

func TestStopSavesDirtySessions(t *testing.T) {
	p := newMemPersistence("drw_1", "drw_2")
	hub := newTestHub(p)
	go hub.Run()

	for _, id := range []string{"drw_1", "drw_2"} {
		if _, err := hub.Open(context.Background(), id); err != nil {
			t.Fatal(err)
		}
	}
	s, _ := hub.Session("drw_2")
	_ = s.Do(func(d *drawing.Drawing) error {
		_, err := d.AddDoodle(shapes.BlotHaemorrhage, nil)
		return err
	})

	hub.Stop()

	if _, v := p.saved("drw_1"); v != 0 {
		t.Errorf("clean drawing saved %d times", v)
	}
	if _, v := p.saved("drw_2"); v != 1 {
		t.Errorf("dirty drawing saved %d times, want 1", v)
	}
}

type allowAll struct{}

func (allowAll) ValidateToken(token string) (string, error) {
	if token != "good" {
		return "", errors.New("bad token")
	}
	return "user_a", nil
}

func (allowAll) CanEdit(_ context.Context, drawingID, _ string) error {
	if drawingID == "drw_other" {
		return ErrForbidden
	}
	return nil
}

func TestWebSocket(t *testing.T) {
	hub := newTestHub(newMemPersistence("drw_1"))
	go hub.Run()
	defer hub.Stop()

	r := mux.NewRouter()
	r.HandleFunc("/ws/drawings/{drawingId}", hub.WebSocketHandler(allowAll{}, allowAll{}, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/drawings/"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, tc := range []struct {
		path   string
		status int
	}{
		{"drw_1", http.StatusUnauthorized},
		{"drw_1?token=bad", http.StatusUnauthorized},
		{"drw_other?token=good", http.StatusForbidden},
	} {
		_, resp, err := websocket.Dial(ctx, base+tc.path, nil)
		if err == nil || resp == nil || resp.StatusCode != tc.status {
			t.Errorf("%s: err %v, resp %v, want %d", tc.path, err, resp, tc.status)
		}
	}

	conn, _, err := websocket.Dial(ctx, base+"drw_1?token=good", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatal(err)
		}
		return m
	}
	if m := read(); m.Type != TypeWelcome {
		t.Fatalf("first message = %s", m.Type)
	}
	read() // frame

	_, resp, err := websocket.Dial(ctx, base+"drw_1?token=good", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusConflict {
		t.Errorf("second client: err %v, resp %v", err, resp)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"zoom.in","seq":3}`)); err != nil {
		t.Fatal(err)
	}
	for {
		m := read()
		if m.Type == TypeAck {
			var ack AckPayload
			_ = json.Unmarshal(m.Payload, &ack)
			if ack.Seq != 3 {
				t.Errorf("ack seq = %d", ack.Seq)
			}
			break
		}
	}
}
