package blocklist

import (
	"blocklist/pkg/domain"
	"blocklist/pkg/logger"
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// ReadLines returns the trimmed lines of r. Blank lines and lines starting
// with "#" are skipped.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("could not read lines: %w", err)
	}

	return lines, nil
}

// Validate parses every line as an address or CIDR block. Valid lines are
// returned normalized, in input order; invalid lines are logged and returned
// verbatim.
func Validate(ctx context.Context, lines []string) ([]domain.Entry, []string) {
	valid := make([]domain.Entry, 0, len(lines))
	var invalid []string
	for _, line := range lines {
		e, err := domain.ParseEntry(line)
		if err != nil {
			logger.Warn(ctx, "invalid address", zap.String("value", line), zap.Error(err))
			invalid = append(invalid, line)

			continue
		}
		valid = append(valid, e)
	}

	logger.Info(ctx, "validated addresses", zap.Int("valid", len(valid)), zap.Int("invalid", len(invalid)))

	return valid, invalid
}

// Deduplicate collapses entries with equal canonical forms.
func Deduplicate(entries []domain.Entry) domain.Set {
	return domain.NewSet(entries...)
}
