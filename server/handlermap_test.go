package server

import (
	"testing"

	"github.com/modbuscore/gomodbus/pdu"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestHandlerMapAddGet(t *testing.T) {
	m := NewHandlerMap()
	h := NewDefaultHandler(zaptest.NewLogger(t), 1, 1, 1, 1)

	_, had := m.Get(1)
	assert.False(t, had)

	previous, replaced := m.Add(1, h)
	assert.Nil(t, previous)
	assert.False(t, replaced)

	got, ok := m.Get(1)
	assert.True(t, ok)
	assert.Same(t, h, got)
}

func TestHandlerMapAddReplacesExisting(t *testing.T) {
	m := NewHandlerMap()
	first := NewDefaultHandler(zaptest.NewLogger(t), 1, 1, 1, 1)
	second := NewDefaultHandler(zaptest.NewLogger(t), 1, 1, 1, 1)

	m.Add(1, first)
	previous, replaced := m.Add(1, second)
	assert.True(t, replaced)
	assert.Same(t, first, previous)

	got, _ := m.Get(1)
	assert.Same(t, second, got)
}

func TestHandlerMapUnitIdsSortedAscending(t *testing.T) {
	m := NewHandlerMap()
	h := NewDefaultHandler(zaptest.NewLogger(t), 1, 1, 1, 1)
	for _, id := range []pdu.UnitId{5, 1, 3} {
		m.Add(id, h)
	}
	assert.Equal(t, []pdu.UnitId{1, 3, 5}, m.UnitIds())
}

func TestNewSingleHandlerMap(t *testing.T) {
	h := NewDefaultHandler(zaptest.NewLogger(t), 1, 1, 1, 1)
	m := NewSingleHandlerMap(7, h)
	got, ok := m.Get(7)
	assert.True(t, ok)
	assert.Same(t, h, got)
	assert.Equal(t, []pdu.UnitId{7}, m.UnitIds())
}
