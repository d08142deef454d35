package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	world "tickcraft.ai/internal/sim/world"
)

// ErrStop ends an Each* walk early without an error.
var ErrStop = errors.New("stop")

// ListFiles returns prefix-*.jsonl.zst files in dir in tick order.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// EachTick calls fn for every tick entry under worldDir in order.
func EachTick(worldDir string, fn func(world.TickLogEntry) error) error {
	return each(TicksDir(worldDir), "ticks", fn)
}

// EachAudit calls fn for every audit entry under worldDir in order.
func EachAudit(worldDir string, fn func(world.AuditEntry) error) error {
	return each(AuditDir(worldDir), "audit", fn)
}

func each[T any](dir, prefix string, fn func(T) error) error {
	files, err := ListFiles(dir, prefix)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := eachInFile(path, fn); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func eachInFile[T any](path string, fn func(T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return sc.Err()
}
