package simulator

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sarchlab/memsim/vm"
)

// A Snapshot is everything needed to resume a simulator.
type Snapshot struct {
	Name  string   `json:"name"`
	Seq   uint64   `json:"seq"`
	State vm.State `json:"state"`
	Log   []string `json:"log"`
}

// Codec determines how snapshots are encoded.
type Codec interface {
	Encode(w io.Writer, snapshot Snapshot) error
	Decode(r io.Reader) (Snapshot, error)
}

// JSONCodec encodes snapshots as indented JSON.
type JSONCodec struct{}

// Encode writes the snapshot as JSON to the provided writer
func (c JSONCodec) Encode(w io.Writer, snapshot Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(snapshot)
}

// Decode reads a JSON snapshot from the reader
func (c JSONCodec) Decode(r io.Reader) (Snapshot, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	var snapshot Snapshot

	err := decoder.Decode(&snapshot)
	if err != nil {
		return Snapshot{}, err
	}

	return snapshot, nil
}

// Snapshot captures the current state, sequence number and log.
func (s *Simulator) Snapshot() Snapshot {
	s.lock.Lock()
	defer s.lock.Unlock()

	return Snapshot{
		Name:  s.name,
		Seq:   s.seq,
		State: s.state,
		Log:   s.log.lines(),
	}
}

// Restore replaces the current state with the snapshot. The snapshot is
// rejected if its state breaks an invariant.
func (s *Simulator) Restore(snapshot Snapshot) error {
	err := vm.CheckInvariants(snapshot.State)
	if err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	snapshot.State.Pressure = vm.PressureOf(snapshot.State)

	s.lock.Lock()
	defer s.lock.Unlock()

	s.state = snapshot.State
	s.seq = snapshot.Seq
	s.log.restore(snapshot.Log)

	return nil
}

// Save writes a snapshot with the codec.
func (s *Simulator) Save(w io.Writer, codec Codec) error {
	return codec.Encode(w, s.Snapshot())
}

// Load reads a snapshot with the codec and restores it.
func (s *Simulator) Load(r io.Reader, codec Codec) error {
	snapshot, err := codec.Decode(r)
	if err != nil {
		return err
	}

	return s.Restore(snapshot)
}
