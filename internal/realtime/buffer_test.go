package realtime

import (
	"fmt"
	"testing"
)

func TestBufferKeepsNewestFirstWithinCapacity(t *testing.T) {
	buffer := NewBuffer(3)
	for i := 1; i <= 4; i++ {
		buffer.Push(Update{Type: "update", Content: fmt.Sprintf("event-%d", i)})
	}

	items := buffer.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 buffered updates, got %d", len(items))
	}
	expected := []string{"event-4", "event-3", "event-2"}
	for index, content := range expected {
		if items[index].Content != content {
			t.Fatalf("expected %s at index %d, got %s", content, index, items[index].Content)
		}
	}
}

func TestBufferNeverExceedsCapacity(t *testing.T) {
	buffer := NewBuffer(20)
	for i := 0; i < 100; i++ {
		buffer.Push(Update{Content: fmt.Sprintf("%d", i)})
		if buffer.Len() > buffer.Capacity() {
			t.Fatalf("buffer grew to %d beyond capacity %d", buffer.Len(), buffer.Capacity())
		}
	}
	if buffer.Items()[0].Content != "99" {
		t.Fatalf("expected newest update first, got %s", buffer.Items()[0].Content)
	}
}

func TestBufferItemsAreCopies(t *testing.T) {
	buffer := NewBuffer(2)
	buffer.Push(Update{Content: "a"})
	items := buffer.Items()
	items[0].Content = "mutated"
	if buffer.Items()[0].Content != "a" {
		t.Fatalf("expected buffer contents to be isolated from callers")
	}
}

func TestNewBufferClampsCapacity(t *testing.T) {
	buffer := NewBuffer(0)
	buffer.Push(Update{Content: "a"})
	buffer.Push(Update{Content: "b"})
	if buffer.Len() != 1 || buffer.Items()[0].Content != "b" {
		t.Fatalf("expected single newest item, got %+v", buffer.Items())
	}
}
