package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"tickcraft.ai/internal/sim/tag"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed          int64 `json:"seed"`
	TickRate      int   `json:"tick_rate_hz"`
	DayTicks      int   `json:"day_ticks"`
	MinY          int   `json:"min_y"`
	Height        int   `json:"height"`
	ItemTTL       int   `json:"item_ttl_ticks,omitempty"`
	SnapshotEvery int   `json:"snapshot_every_ticks,omitempty"`

	Raining bool `json:"raining"`

	Blocks    []BlockV1      `json:"blocks"`
	Powered   [][3]int       `json:"powered,omitempty"`
	Devices   []DeviceV1     `json:"devices"`
	Scheduled []ScheduledV1  `json:"scheduled,omitempty"`
	Players   []PlayerV1     `json:"players"`
	Mobs      []MobV1        `json:"mobs,omitempty"`
	Items     []ItemEntityV1 `json:"items,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type BlockV1 struct {
	Pos   [3]int            `json:"pos"`
	ID    string            `json:"id"`
	State map[string]string `json:"state,omitempty"`
}

// DeviceV1 is a device as {kind, pos, data}; Data is whatever the device
// saved.
type DeviceV1 struct {
	Kind string       `json:"kind"`
	Pos  [3]int       `json:"pos"`
	Data tag.Compound `json:"data"`
}

type ScheduledV1 struct {
	Due      uint64 `json:"due"`
	Seq      uint64 `json:"seq"`
	Pos      [3]int `json:"pos"`
	DeviceID string `json:"device_id"`
	Kind     string `json:"kind"`
}

type PlayerV1 struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Pos       [3]float64 `json:"pos"`
	OpenPos   *[3]int    `json:"open_pos,omitempty"`
	OpenID    string     `json:"open_id,omitempty"`
	Effects   []EffectV1 `json:"effects,omitempty"`
}

type EffectV1 struct {
	ID        string `json:"id"`
	Amplifier int    `json:"amplifier"`
	Duration  int    `json:"duration"`
	Ambient   bool   `json:"ambient,omitempty"`
}

type MobV1 struct {
	ID      string     `json:"id"`
	Kind    string     `json:"kind"`
	Pos     [3]float64 `json:"pos"`
	Hostile bool       `json:"hostile,omitempty"`
	Health  float64    `json:"health"`
	Nectar  bool       `json:"nectar,omitempty"`
}

type StackV1 struct {
	Item   string `json:"item"`
	Count  int    `json:"count"`
	Damage int    `json:"damage,omitempty"`
	Potion string `json:"potion,omitempty"`
	Name   string `json:"name,omitempty"`
}

type ItemEntityV1 struct {
	ID    string     `json:"id"`
	Pos   [3]float64 `json:"pos"`
	Stack StackV1    `json:"stack"`
	Age   int        `json:"age"`
}

type CountersV1 struct {
	NextSeq  uint64 `json:"next_seq"`
	NextItem uint64 `json:"next_item"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return Encode(f, snap)
}

// Encode writes the zstd stream: a JSON header line followed by the gob body.
func Encode(dst io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotV1{}, err
	}
	defer f.Close()
	return Decode(f)
}

func Decode(src io.Reader) (SnapshotV1, error) {
	var snap SnapshotV1
	dec, err := zstd.NewReader(src)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the header line, for listings.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}
