package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"
)

const maxLineBytes = 1 << 20

// Last returns up to n trailing lines of path that contain match, plus the
// offset of the end of the file. A missing file yields no lines.
func Last(path string, n int, match string) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		return nil, end, err
	}

	ring := make([]string, 0, n)
	start := 0
	end, err := scan(file, match, func(line string) {
		if len(ring) < n {
			ring = append(ring, line)
			return
		}
		ring[start] = line
		start = (start + 1) % n
	})
	if err != nil {
		return nil, 0, err
	}
	return append(ring[start:len(ring):len(ring)], ring[:start]...), end, nil
}

// Follow emits lines appended after offset until ctx ends. A file that
// shrinks is assumed rotated and is read from the start again.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, match string, emit func(string)) error {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		next, err := readFrom(path, offset, match, emit)
		if err != nil {
			return err
		}
		offset = next
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, match string, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	return scan(file, match, emit)
}

// scan feeds complete matching lines to fn and returns the offset after the
// last complete line, so a partially written line is read again next time.
func scan(file *os.File, match string, fn func(string)) (int64, error) {
	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return pos, fmt.Errorf("read log file: %w", err)
		}
		if !strings.HasSuffix(line, "\n") && len(line) < maxLineBytes {
			return pos, nil
		}
		pos += int64(len(line))
		text := strings.TrimRight(line, "\r\n")
		if match == "" || strings.Contains(text, match) {
			fn(text)
		}
		if err != nil {
			return pos, nil
		}
	}
}
