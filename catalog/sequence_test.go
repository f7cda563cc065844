package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence_Bounds(t *testing.T) {
	s := NewSequence(Item{Code: "crane", Steps: 3, Texts: []string{"one"}})

	assert.Equal(t, "crane3d0", s.Current())
	assert.Equal(t, "one", s.Text())
	assert.False(t, s.Prev())
	assert.Equal(t, []string{"crane3d1"}, s.Neighbours())

	assert.True(t, s.Next())
	assert.Equal(t, "", s.Text())
	assert.Equal(t, []string{"crane3d0", "crane3d2"}, s.Neighbours())

	assert.True(t, s.Next())
	assert.True(t, s.IsLast())
	assert.False(t, s.Next())
	assert.Equal(t, 2, s.Step())
	assert.Equal(t, "crane3d2", s.Current())

	assert.True(t, s.Prev())
	assert.Equal(t, "crane3d1", s.Current())
}

func TestSequence_SingleStep(t *testing.T) {
	s := NewSequence(Item{Code: "boat", Steps: 1})
	assert.True(t, s.IsLast())
	assert.False(t, s.Next())
	assert.Empty(t, s.Neighbours())
}
