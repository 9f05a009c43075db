package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/egyptianego17/btlcore/pkg/bterr"
)

func TestPipeSendRecvExact(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()
	defer b.Close()

	go func() {
		a.Send([]byte{0x01, 0x02, 0x03})
	}()

	buf := make([]byte, 3)
	if err := b.RecvExact(buf, 3, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("RecvExact() = %v, want nil", err)
	}
	if buf[0] != 0x01 || buf[1] != 0x02 || buf[2] != 0x03 {
		t.Fatalf("RecvExact() buf = % X, want 01 02 03", buf)
	}
}

func TestPipeRecvExactTimeout(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()
	defer b.Close()

	buf := make([]byte, 3)
	err := b.RecvExact(buf, 3, time.Now().Add(10*time.Millisecond))
	if !errors.Is(err, bterr.ErrTimeout) {
		t.Fatalf("RecvExact() = %v, want ErrTimeout", err)
	}
}

func TestPipeOrderingPreserved(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()
	defer b.Close()

	go func() {
		a.Send([]byte{1, 2})
		a.Send([]byte{3, 4})
	}()

	buf := make([]byte, 4)
	if err := b.RecvExact(buf, 4, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("RecvExact() = %v, want nil", err)
	}
	want := []byte{1, 2, 3, 4}
	for i, w := range want {
		if buf[i] != w {
			t.Fatalf("buf = % X, want % X", buf, want)
		}
	}
}
