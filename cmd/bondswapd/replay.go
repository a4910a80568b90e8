package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"bondswap/core"
)

const maxReplayLine = 1 << 20

type replayStats struct {
	Applied  int
	Rejected int
}

// replay applies one request per line. Rejected requests are logged and
// counted; malformed lines stop the replay.
func replay(ctx context.Context, node *core.Node, r io.Reader, logger *slog.Logger) (replayStats, error) {
	var stats replayStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReplayLine)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var req core.Request
		if err := json.Unmarshal([]byte(text), &req); err != nil {
			return stats, fmt.Errorf("replay line %d: %w", line, err)
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if _, err := node.Apply(ctx, req); err != nil {
			stats.Rejected++
			logger.Warn("replay request rejected", "line", line, "kind", req.Kind, "contract", req.Contract, "error", err.Error())
			continue
		}
		stats.Applied++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("replay read: %w", err)
	}
	return stats, nil
}
