package pipeline

import (
	"bufio"
	"context"
	"io"
)

// maxLineBytes bounds a single oracle line. A full 33-joint frame is well
// under 8KB.
const maxLineBytes = 1 << 20

// ReadLines streams r line by line into the returned channel, which is
// closed at EOF, on a read error or when ctx is cancelled. Read errors other
// than EOF are logged.
func ReadLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			opsf("line reader stopped: %v", err)
		}
	}()
	return out
}
