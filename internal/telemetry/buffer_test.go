package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircularBuffer_Add_SingleItem(t *testing.T) {
	buf := NewCircularBuffer[string](10)
	buf.Add("a")
	assert.Equal(t, []string{"a"}, buf.Items())
}

func TestCircularBuffer_Add_MultipleItems(t *testing.T) {
	buf := NewCircularBuffer[string](10)
	buf.Add("a")
	buf.Add("b")
	buf.Add("c")
	assert.Equal(t, []string{"a", "b", "c"}, buf.Items())
}

func TestCircularBuffer_MaintainsCapacity(t *testing.T) {
	buf := NewCircularBuffer[string](3)
	buf.Add("a")
	buf.Add("b")
	buf.Add("c")
	buf.Add("d")
	assert.Equal(t, []string{"b", "c", "d"}, buf.Items())
	assert.Equal(t, 3, buf.Size())
}

func TestCircularBuffer_Size(t *testing.T) {
	buf := NewCircularBuffer[string](5)
	assert.Equal(t, 0, buf.Size())
	buf.Add("a")
	assert.Equal(t, 1, buf.Size())
}

func TestCircularBuffer_EmptyItems(t *testing.T) {
	buf := NewCircularBuffer[string](10)
	assert.Equal(t, []string{}, buf.Items())
}

func TestCircularBuffer_Clear(t *testing.T) {
	buf := NewCircularBuffer[string](10)
	buf.Add("a")
	buf.Add("b")
	buf.Clear()
	assert.Equal(t, 0, buf.Size())
	assert.Equal(t, []string{}, buf.Items())
}

func TestCircularBuffer_DefaultsCapacityWhenNonPositive(t *testing.T) {
	buf := NewCircularBuffer[int](0)
	for i := 0; i < 150; i++ {
		buf.Add(i)
	}
	assert.Equal(t, 100, buf.Size())
}
