package room

import (
	rand "math/rand/v2"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/cardroom/internal/gameid"
	"github.com/lox/cardroom/internal/handlog"
	"github.com/lox/cardroom/internal/metrics"
	"github.com/lox/cardroom/internal/protocol"
	"github.com/lox/cardroom/internal/randutil"
)

// Registry is the process-wide room table. It allocates every room and
// seat identifier, so identifiers never collide across rooms, and it owns
// room lifecycle. It never holds its own lock while calling into a room.
type Registry struct {
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock
	gen    *gameid.Generator
	newRNG func() *rand.Rand
	hands  *handlog.Writer

	mu     sync.RWMutex
	closed bool
	rooms  map[string]*Controller
	ids    map[string]struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithHandLog makes every room export completed hands through w.
func WithHandLog(w *handlog.Writer) Option {
	return func(r *Registry) { r.hands = w }
}

// WithRandSource overrides the per-room shuffle source constructor. Tests
// use it to deal known cards.
func WithRandSource(newRNG func() *rand.Rand) Option {
	return func(r *Registry) { r.newRNG = newRNG }
}

// NewRegistry creates an empty registry. Rooms created through it share
// cfg, the clock, and the logger; each gets its own shuffle source.
func NewRegistry(cfg Config, logger *log.Logger, clock quartz.Clock, opts ...Option) *Registry {
	r := &Registry{
		cfg:    cfg,
		logger: logger,
		clock:  clock,
		gen:    gameid.NewGenerator(nil),
		newRNG: randutil.NewCrypto,
		rooms:  make(map[string]*Controller),
		ids:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewID allocates a process-unique identifier, regenerating on the rare
// collision.
func (r *Registry) NewID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newIDLocked()
}

func (r *Registry) newIDLocked() string {
	for {
		id := r.gen.Generate()
		if _, taken := r.ids[id]; !taken {
			r.ids[id] = struct{}{}
			return id
		}
	}
}

// CreateRoom makes a room and seats its creator, replying room-created
// then room-joined on the creator's sink.
func (r *Registry) CreateRoom(roomName, playerName string, sink Sink) (*Controller, string, error) {
	if roomName == "" {
		return nil, "", &IntentError{Code: protocol.CodeBadRequest, Message: "room name is required"}
	}
	if playerName == "" {
		return nil, "", &IntentError{Code: protocol.CodeBadRequest, Message: "player name is required"}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, "", &IntentError{Code: protocol.CodeInternal, Message: "server is shutting down"}
	}
	id := r.newIDLocked()
	c := newController(id, roomName, r.cfg, r.logger, r.clock, r.newRNG(), r, r.hands, r.release)
	r.rooms[id] = c
	total := len(r.rooms)
	r.mu.Unlock()

	metrics.ActiveRooms.Set(float64(total))
	r.logger.Info("Room created", "roomId", id, "name", roomName, "rooms", total)
	sink.Send(protocol.TypeRoomCreated, protocol.RoomCreated{Room: c.Info()})

	seatID, err := c.Join(playerName, sink)
	if err != nil {
		// the creator never sat down, so the room dies with the reply
		r.release(c)
		return nil, "", err
	}
	return c, seatID, nil
}

// Get finds a live room.
func (r *Registry) Get(roomID string) (*Controller, error) {
	r.mu.RLock()
	c, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil, &IntentError{Code: protocol.CodeUnknownRoom, Message: "no such room"}
	}
	return c, nil
}

// List snapshots every open room for the browser, sorted by name.
// Controllers are queried outside the registry lock.
func (r *Registry) List() []protocol.RoomSummary {
	r.mu.RLock()
	controllers := make([]*Controller, 0, len(r.rooms))
	for _, c := range r.rooms {
		controllers = append(controllers, c)
	}
	r.mu.RUnlock()

	summaries := make([]protocol.RoomSummary, 0, len(controllers))
	for _, c := range controllers {
		if s, ok := c.Summary(); ok {
			summaries = append(summaries, s)
		}
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries
}

// Len reports how many rooms are open.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Shutdown closes every room and refuses new ones.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	controllers := make([]*Controller, 0, len(r.rooms))
	for _, c := range r.rooms {
		controllers = append(controllers, c)
	}
	r.rooms = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range controllers {
		c.Shutdown()
	}
	metrics.ActiveRooms.Set(0)
	r.logger.Info("Registry shut down", "rooms", len(controllers))
}

// release drops a room once it reports closed and empty. Rooms call it
// after their last seat leaves.
func (r *Registry) release(c *Controller) {
	if !c.closeIfEmpty() {
		return
	}
	r.mu.Lock()
	if cur, ok := r.rooms[c.ID()]; ok && cur == c {
		delete(r.rooms, c.ID())
	}
	total := len(r.rooms)
	r.mu.Unlock()
	metrics.ActiveRooms.Set(float64(total))
	r.logger.Info("Room dissolved", "roomId", c.ID(), "rooms", total)
}
