package proxy

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"transcripter/internal/fileutil"
)

// ReadCache loads the cached list and its modification time. A missing file
// yields ok=false and no error.
func ReadCache(path string) (proxies []Proxy, modTime time.Time, ok bool, err error) {
	info, exists, err := fileutil.Stat(path)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("stat proxy cache: %w", err)
	}
	if !exists {
		return nil, time.Time{}, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("read proxy cache: %w", err)
	}
	if err := json.Unmarshal(data, &proxies); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("decode proxy cache: %w", err)
	}
	return proxies, info.ModTime(), true, nil
}

// WriteCache atomically replaces the cache with proxies. Direct entries are skipped.
func WriteCache(path string, proxies []Proxy) error {
	out := make([]Proxy, 0, len(proxies))
	for _, p := range proxies {
		if !p.IsDirect() {
			out = append(out, p)
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode proxy cache: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write proxy cache: %w", err)
	}
	return nil
}
