// Package trace provides a hook that records the activity of an MMU.
package trace

import (
	"sync"

	"github.com/rs/xid"
	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/hooking"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
)

// TableName is the table that the events are recorded into.
const TableName = "vmsim_event"

// EventEntry is one row of the event table.
type EventEntry struct {
	ID         string `json:"id"`
	Session    string `json:"session"`
	Seq        uint64 `json:"seq"`
	Kind       string `json:"kind"`
	Access     string `json:"access"`
	Address    uint64 `json:"address"`
	PageNumber uint64 `json:"page_number"`
	FrameIndex uint64 `json:"frame_index"`
	Value      uint8  `json:"value"`
	Hit        bool   `json:"hit"`
	Dirty      bool   `json:"dirty"`
}

// The values of EventEntry.Kind.
const (
	KindAccess = "access"
	KindFault  = "fault"
	KindEvict  = "evict"
	KindFlush  = "flush"
	KindLoad   = "load"
)

var kindOfPos = map[*hooking.HookPos]string{
	mmu.HookPosAccess:    KindAccess,
	mmu.HookPosPageFault: KindFault,
	mmu.HookPosEvict:     KindEvict,
	mmu.HookPosFlush:     KindFlush,
	mmu.HookPosLoad:      KindLoad,
}

// A DBTracer is a hook that records the events of an MMU into a database
// using the data recorder.
type DBTracer struct {
	mu           sync.Mutex
	dataRecorder datarecording.DataRecorder
	session      string
	seq          uint64
}

// NewDBTracer creates the event table and returns a tracer that fills it.
// Every tracer tags its rows with a fresh session ID.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	dataRecorder.CreateTable(TableName, EventEntry{})

	return &DBTracer{
		dataRecorder: dataRecorder,
		session:      xid.New().String(),
	}
}

// Session returns the ID that tags the rows of this tracer.
func (t *DBTracer) Session() string {
	return t.session
}

// NumEvents returns how many events have been recorded.
func (t *DBTracer) NumEvents() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.seq
}

// Func records the event carried by the hook context. Contexts that do not
// come from an MMU are ignored.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	kind, ok := kindOfPos[ctx.Pos]
	if !ok {
		return
	}

	evt, ok := ctx.Item.(mmu.Event)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++

	entry := EventEntry{
		ID:         xid.New().String(),
		Session:    t.session,
		Seq:        t.seq,
		Kind:       kind,
		Access:     evt.Access.String(),
		Address:    evt.Address,
		PageNumber: evt.PageNumber,
		FrameIndex: evt.FrameIndex,
		Value:      evt.Value,
		Hit:        evt.Hit,
		Dirty:      evt.Dirty,
	}

	t.dataRecorder.InsertData(TableName, entry)
}
