package utils

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.mongodb.org/mongo-driver/bson"

	"plp-bookstore/internal/models"
)

const (
	ArchiveMagic     = "PLPA"
	ArchiveVersion   = 1
	ArchiveExtension = ".plpa"
)

type archiveHeader struct {
	Magic    [4]byte
	Version  uint8
	Reserved [3]byte
}

// ArchiveRecord is an exported audit log entry. Data holds a BSON document
// of the form {data: <audited payload>}.
type ArchiveRecord struct {
	ID          string    `msgpack:"id"`
	Timestamp   time.Time `msgpack:"timestamp"`
	Entity      string    `msgpack:"entity"`
	Action      string    `msgpack:"action"`
	PerformedBy string    `msgpack:"performed_by"`
	Data        []byte    `msgpack:"data"`
}

// Payload returns the audited payload.
func (r ArchiveRecord) Payload() bson.RawValue {
	return bson.Raw(r.Data).Lookup("data")
}

func toRecord(l models.AuditLog) (ArchiveRecord, error) {
	data, err := bson.Marshal(bson.D{{Key: "data", Value: l.Data}})
	if err != nil {
		return ArchiveRecord{}, fmt.Errorf("encode payload of %s: %w", l.ID.Hex(), err)
	}
	return ArchiveRecord{
		ID:          l.ID.Hex(),
		Timestamp:   l.Timestamp,
		Entity:      l.Entity,
		Action:      l.Action,
		PerformedBy: l.PerformedBy,
		Data:        data,
	}, nil
}

// WriteArchive writes the header followed by an lz4 frame holding the
// msgpack encoded records.
func WriteArchive(w io.Writer, logs []models.AuditLog) error {
	records := make([]ArchiveRecord, 0, len(logs))
	for _, l := range logs {
		rec, err := toRecord(l)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	header := archiveHeader{Version: ArchiveVersion}
	copy(header.Magic[:], ArchiveMagic)
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	zw := lz4.NewWriter(w)
	if err := msgpack.NewEncoder(zw).Encode(records); err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}
	return nil
}

func ReadArchive(r io.Reader) ([]ArchiveRecord, error) {
	var header archiveHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(header.Magic[:]) != ArchiveMagic {
		return nil, fmt.Errorf("invalid archive: expected %s, got %q", ArchiveMagic, string(header.Magic[:]))
	}
	if header.Version != ArchiveVersion {
		return nil, fmt.Errorf("unsupported archive version: %d", header.Version)
	}

	var records []ArchiveRecord
	if err := msgpack.NewDecoder(lz4.NewReader(r)).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode archive: %w", err)
	}
	return records, nil
}

// Exporter writes batches of audit logs to archive files in Dir.
type Exporter struct {
	Dir string
	Now func() time.Time
}

// ExportData writes logs to a new archive file and returns its path.
func (e *Exporter) ExportData(logs []models.AuditLog) (string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	name := "audit-" + now().UTC().Format("20060102T150405.000000000") + ArchiveExtension
	path := filepath.Join(e.Dir, name)

	tmp, err := os.CreateTemp(e.Dir, ".audit-*")
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteArchive(tmp, logs); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename archive: %w", err)
	}
	return path, nil
}

func ReadArchiveFile(path string) ([]ArchiveRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadArchive(f)
}
