package collections

import (
	"testing"
)

func TestSlicePool(t *testing.T) {
	pool := NewSlicePool[int](256)

	// Get a slice
	s := pool.Get()
	if s == nil {
		t.Fatal("Get returned nil")
	}
	if cap(*s) < 256 {
		t.Errorf("Expected capacity >= 256, got %d", cap(*s))
	}

	// Use the slice
	*s = append(*s, 1, 2, 3)
	if len(*s) != 3 {
		t.Errorf("Expected length 3, got %d", len(*s))
	}

	// Put it back
	pool.Put(s)

	// Get again (should be cleared)
	s2 := pool.Get()
	if len(*s2) != 0 {
		t.Errorf("Expected length 0 after Put, got %d", len(*s2))
	}
}

func TestStack(t *testing.T) {
	s := NewStack[int](10)

	if !s.IsEmpty() {
		t.Error("New stack should be empty")
	}

	s.Push(1)
	s.Push(2)
	s.Push(3)

	if s.Len() != 3 {
		t.Errorf("Expected length 3, got %d", s.Len())
	}

	// Peek
	v, ok := s.Peek()
	if !ok || v != 3 {
		t.Errorf("Expected Peek to return 3, got %d", v)
	}
	if s.Len() != 3 {
		t.Error("Peek should not modify length")
	}

	// Pop
	v, ok = s.Pop()
	if !ok || v != 3 {
		t.Errorf("Expected Pop to return 3, got %d", v)
	}

	v, ok = s.Pop()
	if !ok || v != 2 {
		t.Errorf("Expected Pop to return 2, got %d", v)
	}

	v, ok = s.Pop()
	if !ok || v != 1 {
		t.Errorf("Expected Pop to return 1, got %d", v)
	}

	// Pop from empty
	_, ok = s.Pop()
	if ok {
		t.Error("Pop from empty stack should return false")
	}

	if !s.IsEmpty() {
		t.Error("Stack should be empty after popping all elements")
	}
}

func BenchmarkStack_PushPop(b *testing.B) {
	s := NewStack[int](1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Push(i)
		s.Pop()
	}
}

