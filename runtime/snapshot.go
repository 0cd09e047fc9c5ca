package runtime

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Snapshots capture the contents of a VariableStorage as canonical CBOR so
// saved-game state can be written to disk or sent over a wire and restored
// later. Only variable values are captured; programs are recompiled from
// source, never serialized.

// cborEncMode uses canonical encoding so identical storage contents always
// produce identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("runtime: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// snapshotEntry is the wire form of one stored variable.
type snapshotEntry struct {
	Kind  uint8  `cbor:"k"`
	Value string `cbor:"v"`
}

// snapshot is the wire form of a full storage capture.
type snapshot struct {
	Version   int                      `cbor:"version"`
	Variables map[string]snapshotEntry `cbor:"vars"`
}

// NamedStorage is implemented by storages that can enumerate their
// variables. Both provided implementations satisfy it.
type NamedStorage interface {
	VariableStorage
	Names() []string
}

// MarshalSnapshot captures every variable in the storage as CBOR bytes.
func MarshalSnapshot(storage NamedStorage) ([]byte, error) {
	snap := snapshot{
		Version:   SnapshotVersion,
		Variables: make(map[string]snapshotEntry),
	}
	for _, name := range storage.Names() {
		value, ok := storage.Get(name)
		if !ok {
			continue
		}
		snap.Variables[name] = snapshotEntry{
			Kind:  uint8(value.Kind()),
			Value: value.AsString(),
		}
	}
	return cborEncMode.Marshal(&snap)
}

// UnmarshalSnapshot restores a snapshot into the storage. Existing contents
// are cleared first.
func UnmarshalSnapshot(data []byte, storage VariableStorage) error {
	var snap snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("runtime: unmarshal snapshot: %w", err)
	}
	if snap.Version > SnapshotVersion {
		return fmt.Errorf("runtime: snapshot version %d is newer than supported version %d", snap.Version, SnapshotVersion)
	}
	storage.Clear()
	for name, entry := range snap.Variables {
		storage.Set(name, decodeStoredValue(ValueKind(entry.Kind), entry.Value))
	}
	return nil
}
