// Command gen-fixture writes a synthetic push-up session in the oracle wire
// format, one JSON frame per line, for replay with repcount -fixture.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/banshee-data/repcount/internal/pose"
)

func main() {
	output := flag.String("o", "fixtures/pushups.jsonl", "output path")
	frames := flag.Int("n", 600, "number of frames")
	seed := flag.Int64("seed", 1, "random seed")
	fps := flag.Float64("fps", 30, "frames per second")
	repSeconds := flag.Float64("rep-seconds", 2, "seconds per repetition")
	sagEvery := flag.Int("sag-every", 4, "every Nth repetition has sagging hips (0 disables)")
	dropout := flag.Float64("dropout", 0.02, "fraction of frames with no detection")
	noise := flag.Float64("noise", 1.5, "angle jitter standard deviation, degrees")
	flag.Parse()

	g := pose.NewSyntheticGenerator(*seed, time.Now().UTC())
	g.FrameRate = *fps
	g.RepSeconds = *repSeconds
	g.SagEvery = *sagEvery
	g.DropoutRate = *dropout
	g.Noise = *noise

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *output, err)
	}
	defer f.Close()

	if err := writeFixture(f, g, *frames); err != nil {
		log.Fatalf("failed to write fixture: %v", err)
	}
	log.Printf("✓ Created: %s (%d frames, seed %d)", *output, *frames, *seed)
}

// writeFixture writes a comment header followed by n generated frames.
func writeFixture(w io.Writer, g *pose.SyntheticGenerator, n int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# synthetic push-up session: %d frames at %.0f fps, %.1fs per rep, sag every %d\n",
		n, g.FrameRate, g.RepSeconds, g.SagEvery)
	for i := 0; i < n; i++ {
		line, err := pose.EncodeLine(g.NextFrame())
		if err != nil {
			return err
		}
		bw.WriteString(line)
		bw.WriteByte('\n')
		if (i+1)%300 == 0 {
			log.Printf("%d/%d frames", i+1, n)
		}
	}
	return bw.Flush()
}
