package responses

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rhuss/modelstream/pkg/bridge"
)

// StreamFromFixture replays a recorded session from a text file instead of
// contacting a backend. Every line of the file is treated as one complete
// frame, so a fixture is simply one "data: {...}" or "event: ..." line per
// frame with no blank separators.
func StreamFromFixture(ctx context.Context, path string, idleTimeout time.Duration) (*bridge.ResponseStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("responses: open fixture: %w", err)
	}
	defer f.Close()

	var content strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		content.WriteString(scanner.Text())
		content.WriteString("\n\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("responses: read fixture: %w", err)
	}

	pctx, sink, stream := bridge.New(ctx, bridge.DefaultCapacity)
	go func() {
		defer sink.Close()
		ProcessSSE(pctx, strings.NewReader(content.String()), sink, idleTimeout)
	}()
	return stream, nil
}
