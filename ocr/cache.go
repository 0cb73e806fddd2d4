package ocr

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Request describes one OCR pass over a document.
type Request struct {
	Lang string
	DPI  int
	// MaxPages bounds the pass when Pages is empty.
	MaxPages int
	// Pages are explicit zero-based page indices.
	Pages []int
}

// CacheKey identifies the OCR output for data under req. It covers the
// document bytes, the language, the resolution and the page set.
func CacheKey(data []byte, req Request) string {
	h, _ := blake2b.New256(nil)
	h.Write(data)
	fmt.Fprintf(h, "|lang=%s|dpi=%d|", req.Lang, req.DPI)
	if len(req.Pages) > 0 {
		parts := make([]string, len(req.Pages))
		for i, p := range req.Pages {
			parts[i] = strconv.Itoa(p)
		}
		fmt.Fprintf(h, "pages=%s", strings.Join(parts, ","))
	} else {
		fmt.Fprintf(h, "first=%d", req.MaxPages)
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Cache stores OCR page text on disk as <stem>.<key>.txt. Entries are
// written once and never rewritten.
type Cache struct {
	Dir string
}

const pageMarker = "===PAGE "

// Path returns the cache file path for a document stem and key.
func (c Cache) Path(stem, key string) string {
	return filepath.Join(c.Dir, stem+"."+key+".txt")
}

// Load returns the cached pages for stem and key. A missing entry yields
// ok == false and a nil error.
func (c Cache) Load(stem, key string) (map[int]string, bool, error) {
	f, err := os.Open(c.Path(stem, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open ocr cache: %w", err)
	}
	defer f.Close()

	pages := make(map[int]string)
	cur := -1
	var buf []string
	flush := func() {
		if cur >= 0 {
			pages[cur] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
		buf = buf[:0]
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, pageMarker) && strings.HasSuffix(strings.TrimRight(line, " \t"), "===") {
			flush()
			mid := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(line), pageMarker), "===")
			n, err := strconv.Atoi(strings.TrimSpace(mid))
			if err != nil {
				n = -1
			}
			cur = n
			continue
		}
		buf = append(buf, line)
	}
	if err := sc.Err(); err != nil {
		return nil, false, fmt.Errorf("read ocr cache: %w", err)
	}
	flush()
	return pages, true, nil
}

// Store writes pages for stem and key unless an entry already exists. The
// file is written to a temporary name and renamed into place.
func (c Cache) Store(stem, key string, pages map[int]string) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("create ocr cache dir: %w", err)
	}
	dst := c.Path(stem, key)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	idx := make([]int, 0, len(pages))
	for i := range pages {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	var b strings.Builder
	for _, i := range idx {
		fmt.Fprintf(&b, "%s%d===\n", pageMarker, i)
		b.WriteString(strings.TrimRight(pages[i], " \t\r\n"))
		b.WriteString("\n")
	}

	tmp, err := os.CreateTemp(c.Dir, "."+stem+".*.tmp")
	if err != nil {
		return fmt.Errorf("create ocr cache temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write ocr cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close ocr cache: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename ocr cache: %w", err)
	}
	return nil
}
