package ringbuffer

import (
	"reflect"
	"testing"
)

func TestBasicWriteRead(t *testing.T) {
	r := New(4)
	r.Write([]float32{1, 2, 3})
	if got := r.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
	got := r.Read(3)
	want := []float32{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read(3) = %v, want %v", got, want)
	}
	if !r.IsEmpty() {
		t.Errorf("expected ring to be empty after full read")
	}
}

func TestReadPartial(t *testing.T) {
	r := New(4)
	r.Write([]float32{1, 2, 3})
	got := r.Read(2)
	want := []float32{1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read(2) = %v, want %v", got, want)
	}
	if got := r.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	r := New(4)
	r.Write([]float32{1, 2, 3, 4})
	r.Write([]float32{5, 6})
	if got := r.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
	got := r.Read(4)
	want := []float32{3, 4, 5, 6}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read(4) = %v, want %v", got, want)
	}
}

func TestWriteLargerThanCapacity(t *testing.T) {
	r := New(3)
	r.Write([]float32{1, 2, 3, 4, 5})
	got := r.Read(3)
	want := []float32{3, 4, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read(3) = %v, want %v", got, want)
	}
}

func TestWraparound(t *testing.T) {
	r := New(3)
	r.Write([]float32{1, 2})
	r.Read(1)
	r.Write([]float32{3, 4})
	got := r.Read(3)
	want := []float32{2, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read(3) = %v, want %v", got, want)
	}
}

func TestResetClearsBuffer(t *testing.T) {
	r := New(4)
	r.Write([]float32{1, 2, 3})
	r.Reset()
	if got := r.Count(); got != 0 {
		t.Errorf("Count() after reset = %d, want 0", got)
	}
	if !r.IsEmpty() {
		t.Errorf("expected ring empty after reset")
	}
	r.Write([]float32{9, 8})
	got := r.Read(2)
	want := []float32{9, 8}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read(2) after reset+write = %v, want %v", got, want)
	}
}

func TestEmptyOperations(t *testing.T) {
	r := New(4)
	if !r.IsEmpty() {
		t.Errorf("new ring should be empty")
	}
	if got := r.Read(5); got != nil {
		t.Errorf("Read on empty ring = %v, want nil", got)
	}
	if got := r.Count(); got != 0 {
		t.Errorf("Count() on empty ring = %d, want 0", got)
	}
}

func TestZeroCapacity(t *testing.T) {
	r := New(0)
	r.Write([]float32{1, 2, 3})
	if got := r.Count(); got != 0 {
		t.Errorf("Count() on zero-capacity ring = %d, want 0", got)
	}
	if got := r.Read(1); got != nil {
		t.Errorf("Read on zero-capacity ring = %v, want nil", got)
	}
}
