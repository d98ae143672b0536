package server

import (
	"sort"
	"sync"

	"github.com/modbuscore/gomodbus/pdu"
)

// HandlerMap hides the underlying map implementation and allows lookups of
// a RequestHandler by UnitId (the teacher's rodbus ServerHandlerMap, ported
// to Go). A single port/connection session consults one map on every frame.
type HandlerMap struct {
	mu       sync.RWMutex
	handlers map[pdu.UnitId]RequestHandler
}

// NewHandlerMap creates an empty handler map.
func NewHandlerMap() *HandlerMap {
	return &HandlerMap{handlers: make(map[pdu.UnitId]RequestHandler)}
}

// NewSingleHandlerMap creates a map containing exactly one handler, the
// common case for a single-device RTU or TCP server.
func NewSingleHandlerMap(id pdu.UnitId, handler RequestHandler) *HandlerMap {
	m := NewHandlerMap()
	m.Add(id, handler)
	return m
}

// Add inserts or replaces the handler for id, returning the previous handler
// if one was already mapped.
func (m *HandlerMap) Add(id pdu.UnitId, handler RequestHandler) (previous RequestHandler, replaced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	previous, replaced = m.handlers[id]
	m.handlers[id] = handler
	return previous, replaced
}

// Get retrieves the handler mapped to id, if any.
func (m *HandlerMap) Get(id pdu.UnitId) (RequestHandler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[id]
	return h, ok
}

// UnitIds returns every mapped unit id in ascending order, used to fan a
// broadcast request out to every handler (spec.md §4.5).
func (m *HandlerMap) UnitIds() []pdu.UnitId {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]pdu.UnitId, 0, len(m.handlers))
	for id := range m.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
