package mem_test

import (
	"bytes"
	"testing"

	"github.com/norx64/norx/internal/mem"
)

func TestXOR(t *testing.T) {
	for _, n := range []int{1, 8, 16, 17, 96} {
		a := bytes.Repeat([]byte{0xA5}, n)
		b := bytes.Repeat([]byte{0x0F}, n)
		dst := make([]byte, n)
		mem.XOR(dst, a, b)
		if want := bytes.Repeat([]byte{0xAA}, n); !bytes.Equal(dst, want) {
			t.Errorf("n=%d: XOR = %x, want %x", n, dst, want)
		}
	}
}

func TestSliceForAppend(t *testing.T) {
	head, tail := mem.SliceForAppend([]byte("abc"), 4)
	if got, want := len(head), 7; got != want {
		t.Errorf("len(head) = %d, want %d", got, want)
	}
	if got, want := len(tail), 4; got != want {
		t.Errorf("len(tail) = %d, want %d", got, want)
	}
	copy(tail, "defg")
	if string(head) != "abcdefg" {
		t.Errorf("head = %q", head)
	}
}
