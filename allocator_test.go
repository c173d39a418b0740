package vkc

import (
	"testing"
)

func TestAlignUp(t *testing.T) {
	if alignUp(12, 3) != 12 {
		t.Fail()
	}

	if alignUp(10, 3) != 12 {
		t.Fail()
	}

	if alignUp(0, 16) != 0 {
		t.Fail()
	}
}

func TestLinearAllocator(t *testing.T) {

	a := LinearAllocator{Size: 1024}

	ra := a.Allocate(2048, 1)
	if ra != nil {
		t.Error("oversized allocation should fail")
	}

	ra = a.Allocate(512, 1)
	fa := ra
	if ra == nil {
		t.Error("first allocation should fit")
	}

	ra = a.Allocate(768, 1)
	if ra != nil {
		t.Error("768 should not fit next to 512")
	}

	ra = a.Allocate(500, 1)
	k := ra
	if ra == nil {
		t.Error("500 should fit after 512")
	}

	ra = a.Allocate(50, 1)
	if ra != nil {
		t.Error("50 should not fit in the 12 byte tail")
	}

	ra = a.Allocate(5, 1)
	if ra == nil {
		t.Error("5 should fit in the tail")
	}

	ra = a.Allocate(20, 1)
	if ra != nil {
		t.Error("20 should not fit anywhere")
	}

	a.Free(k)
	ra = a.Allocate(500, 1)
	if ra == nil {
		t.Error("500 should fit again after freeing")
	}

	a.Free(fa)
	ra = a.Allocate(20, 1)
	if ra == nil {
		t.Error("20 should fit in the freed head")
	}

	ra = a.Allocate(40, 1)
	if ra == nil {
		t.Error("40 should fit in the freed head")
	}

	ra = a.Allocate(12, 1)
	if ra == nil {
		t.Error("12 should fit")
	}

	ra = a.Allocate(500, 1)
	if ra != nil {
		t.Error("500 should no longer fit")
	}

	ra = a.Allocate(5, 1)
	if ra == nil {
		t.Error("5 should still fit")
	}
}

func TestLinearAllocatorAlignment(t *testing.T) {
	a := LinearAllocator{Size: 256}

	first := a.Allocate(10, 1)
	if first == nil || first.Offset != 0 {
		t.Fatalf("first allocation should start at 0, got %v", first)
	}

	second := a.Allocate(10, 64)
	if second == nil {
		t.Fatal("aligned allocation should fit")
	}
	if second.Offset%64 != 0 {
		t.Errorf("offset %d not aligned to 64", second.Offset)
	}

	a.Free(first)
	a.Free(second)

	whole := a.Allocate(256, 1)
	if whole == nil {
		t.Error("full region should be allocatable after freeing everything")
	}
}

func TestLinearAllocatorZeroSize(t *testing.T) {
	a := LinearAllocator{Size: 64}
	if a.Allocate(0, 1) != nil {
		t.Error("zero size allocation should fail")
	}
}
