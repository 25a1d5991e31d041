package datarecording

import (
	"context"
	"errors"

	"github.com/rs/xid"

	"github.com/sarchlab/memsim/sim/hooking"
	"github.com/sarchlab/memsim/simulator"
	"github.com/sarchlab/memsim/vm"
)

// CommandTable is the table that CommandRecorder writes into.
const CommandTable = "memsim_commands"

// ErrNoCommandTable is returned when reading commands from a file that no
// CommandRecorder wrote into.
var ErrNoCommandTable = errors.New("no command recorded in file")

// CommandEntry is one row of the command table.
type CommandEntry struct {
	Session    string
	Seq        uint64
	Command    string
	Page       int
	Outcome    string
	Message    string
	PageFaults uint64
	TLBHits    uint64
	TLBMisses  uint64
	SwapOuts   uint64
	SwapIns    uint64
	UsedFrames int
	Pressure   string
}

// CommandRecorder is a hook that stores every applied command into a
// DataRecorder. The rows of one recorder share a session ID.
type CommandRecorder struct {
	recorder DataRecorder
	session  string
}

// NewCommandRecorder creates a CommandRecorder and the command table if the
// recorder does not have it yet.
func NewCommandRecorder(recorder DataRecorder) *CommandRecorder {
	if !hasTable(recorder, CommandTable) {
		recorder.CreateTable(CommandTable, CommandEntry{})
	}

	return &CommandRecorder{
		recorder: recorder,
		session:  xid.New().String(),
	}
}

// Session returns the session ID written with every row.
func (r *CommandRecorder) Session() string {
	return r.session
}

// Func records the command carried by the hook context.
func (r *CommandRecorder) Func(ctx hooking.HookCtx) {
	if ctx.Pos != simulator.HookPosCommandApplied {
		return
	}

	rec, ok := ctx.Item.(simulator.Record)
	if !ok {
		return
	}

	r.recorder.InsertData(CommandTable, r.entryOf(rec))
}

func (r *CommandRecorder) entryOf(rec simulator.Record) CommandEntry {
	page := vm.NoPage
	if access, ok := rec.Command.(vm.Access); ok {
		page = access.Page
	}

	outcome := "ok"
	if rec.Outcome.Err != nil {
		outcome = rec.Outcome.Err.Error()
	}

	command := "invalid"
	if rec.Command != nil {
		command = rec.Command.String()
	}

	c := rec.State.Counters

	return CommandEntry{
		Session:    r.session,
		Seq:        rec.Seq,
		Command:    command,
		Page:       page,
		Outcome:    outcome,
		Message:    rec.Outcome.Message,
		PageFaults: c.PageFaults,
		TLBHits:    c.TLBHits,
		TLBMisses:  c.TLBMisses,
		SwapOuts:   c.SwapOuts,
		SwapIns:    c.SwapIns,
		UsedFrames: rec.State.UsedFrames(),
		Pressure:   string(rec.State.Pressure),
	}
}

// ReadCommands returns the recorded commands in the order they were applied,
// skipping the first offset ones. An empty session returns the commands of all
// sessions. A limit of 0 means no limit. The returned count covers every
// command of the session.
func ReadCommands(
	ctx context.Context,
	reader DataReader,
	session string,
	limit, offset int,
) ([]CommandEntry, int, error) {
	if !hasTable(reader, CommandTable) {
		return nil, 0, ErrNoCommandTable
	}

	reader.MapTable(CommandTable, CommandEntry{})

	params := QueryParams{
		OrderBy: "rowid",
		Limit:   limit,
		Offset:  offset,
	}

	if session != "" {
		params.Where = "Session = ?"
		params.Args = []any{session}
	}

	rows, total, err := reader.Query(ctx, CommandTable, params)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]CommandEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, *row.(*CommandEntry))
	}

	return entries, total, nil
}

type tableLister interface {
	ListTables() []string
}

func hasTable(l tableLister, name string) bool {
	for _, t := range l.ListTables() {
		if t == name {
			return true
		}
	}

	return false
}
