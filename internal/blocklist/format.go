package blocklist

import (
	"blocklist/pkg/domain"
	"blocklist/pkg/logger"
	"blocklist/pkg/serrors"
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// ellipsis marks a truncated annotation.
const ellipsis = "..."

// commentPrefix separates an entry from its annotation.
const commentPrefix = " # "

// FormatAnnotation prepares an annotation for a list line. Line breaks become
// spaces and surrounding whitespace is trimmed. The "# " marker plus the
// annotation never exceed maxLen characters: an annotation longer than
// maxLen-2 is cut to maxLen-5 characters followed by "...".
func FormatAnnotation(annotation string, maxLen int) string {
	annotation = strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}

		return r
	}, annotation))

	runes := []rune(annotation)
	if len(runes) > maxLen-2 {
		return string(runes[:max(maxLen-len(ellipsis)-2, 0)]) + ellipsis
	}

	return annotation
}

// FormatLine renders one list line including the trailing newline.
func FormatLine(e domain.AnnotatedEntry, maxAnnotationLen int) string {
	annotation := FormatAnnotation(e.Annotation, maxAnnotationLen)
	if annotation == "" {
		return e.Entry.String() + "\n"
	}

	return e.Entry.String() + commentPrefix + annotation + "\n"
}

// CheckCount fails with ErrLimitExceeded when n entries are over the limit.
func CheckCount(n int, limits Limits) error {
	if n > limits.MaxEntries {
		return serrors.With(serrors.ErrLimitExceeded,
			"%d entries exceed the limit of %d", n, limits.MaxEntries)
	}

	return nil
}

// WriteEntries writes entries in list format and returns the number of bytes
// written. Nothing is written when the entry count is over the limit.
func WriteEntries(w io.Writer, entries []domain.AnnotatedEntry, limits Limits) (int64, error) {
	if err := CheckCount(len(entries), limits); err != nil {
		return 0, err
	}

	var written int64
	for _, e := range entries {
		n, err := io.WriteString(w, FormatLine(e, limits.MaxAnnotationLength))
		written += int64(n)
		if err != nil {
			return written, serrors.Wrap(serrors.ErrIO, err, "could not write %s", e.Entry)
		}
	}

	return written, nil
}

// ParsePublished reads a list written by WriteEntries. Comment lines and
// blank lines are skipped; lines whose entry does not parse are logged and
// skipped.
func ParsePublished(ctx context.Context, r io.Reader) (domain.EntrySet, error) {
	entries := make(domain.EntrySet)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		raw, rest, _ := strings.Cut(line, " ")
		e, err := domain.ParseEntry(raw)
		if err != nil {
			logger.Warn(ctx, "skipping unparsable published entry", zap.String("value", raw), zap.Error(err))

			continue
		}
		entries[e] = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "#"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("could not read published list: %w", err)
	}

	return entries, nil
}
