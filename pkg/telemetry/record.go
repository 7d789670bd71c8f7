package telemetry

import (
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/minut.go/pkg/bus"
)

// Record is one telemetry message. Exactly one of Frame and Stats is set.
type Record struct {
	Node  string       `protobuf:"bytes,1,opt,name=node,proto3" json:"node,omitempty"`
	Time  uint32       `protobuf:"varint,2,opt,name=time,proto3" json:"time,omitempty"`
	Frame *FrameRecord `protobuf:"bytes,3,opt,name=frame,proto3" json:"frame,omitempty"`
	Stats *StatsRecord `protobuf:"bytes,4,opt,name=stats,proto3" json:"stats,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Record) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Record) Reset() { *m = Record{} }

// String implements proto.Message.
func (m *Record) String() string { return proto.CompactTextString(m) }

// FrameRecord is a frame seen by the dispatcher.
type FrameRecord struct {
	Transmit      bool   `protobuf:"varint,1,opt,name=transmit,proto3" json:"transmit,omitempty"`
	Destination   uint32 `protobuf:"varint,2,opt,name=destination,proto3" json:"destination,omitempty"`
	Origin        uint32 `protobuf:"varint,3,opt,name=origin,proto3" json:"origin,omitempty"`
	TransactionID uint32 `protobuf:"varint,4,opt,name=transaction_id,proto3" json:"transaction_id,omitempty"`
	Command       uint32 `protobuf:"varint,5,opt,name=command,proto3" json:"command,omitempty"`
	Response      bool   `protobuf:"varint,6,opt,name=response,proto3" json:"response,omitempty"`
	Error         bool   `protobuf:"varint,7,opt,name=error,proto3" json:"error,omitempty"`
	Argv          []byte `protobuf:"bytes,8,opt,name=argv,proto3" json:"argv,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *FrameRecord) ProtoMessage() {}

// Reset implements proto.Message.
func (m *FrameRecord) Reset() { *m = FrameRecord{} }

// String implements proto.Message.
func (m *FrameRecord) String() string { return proto.CompactTextString(m) }

// NewFrameRecord converts a frame.
func NewFrameRecord(dir bus.Direction, fr bus.Frame) *FrameRecord {
	return &FrameRecord{
		Transmit:      dir == bus.Tx,
		Destination:   uint32(fr.Destination),
		Origin:        uint32(fr.Origin),
		TransactionID: uint32(fr.TransactionID),
		Command:       uint32(fr.Command),
		Response:      fr.IsResponse,
		Error:         fr.Error,
		Argv:          append([]byte(nil), fr.Argv[:]...),
	}
}

// Frame converts back to a bus frame.
func (m *FrameRecord) Frame() bus.Frame {
	fr := bus.Frame{
		Destination:   bus.Address(m.Destination),
		Origin:        bus.Address(m.Origin),
		TransactionID: byte(m.TransactionID),
		Command:       bus.Command(m.Command),
		IsResponse:    m.Response,
		Error:         m.Error,
	}
	copy(fr.Argv[:], m.Argv)
	return fr
}

// StatsRecord is a periodic snapshot of the node.
type StatsRecord struct {
	Routed       uint32 `protobuf:"varint,1,opt,name=routed,proto3" json:"routed,omitempty"`
	Delivered    uint32 `protobuf:"varint,2,opt,name=delivered,proto3" json:"delivered,omitempty"`
	Dropped      uint32 `protobuf:"varint,3,opt,name=dropped,proto3" json:"dropped,omitempty"`
	Unrouted     uint32 `protobuf:"varint,4,opt,name=unrouted,proto3" json:"unrouted,omitempty"`
	Foreign      uint32 `protobuf:"varint,5,opt,name=foreign,proto3" json:"foreign,omitempty"`
	Transmitted  uint32 `protobuf:"varint,6,opt,name=transmitted,proto3" json:"transmitted,omitempty"`
	Busy         uint32 `protobuf:"varint,7,opt,name=busy,proto3" json:"busy,omitempty"`
	LeaseExpired uint32 `protobuf:"varint,8,opt,name=lease_expired,proto3" json:"lease_expired,omitempty"`
	NodeState    uint32 `protobuf:"varint,9,opt,name=node_state,proto3" json:"node_state,omitempty"`
	Sequencer    string `protobuf:"bytes,10,opt,name=sequencer,proto3" json:"sequencer,omitempty"`
	Dropouts     uint32 `protobuf:"varint,11,opt,name=dropouts,proto3" json:"dropouts,omitempty"`
	Passes       uint64 `protobuf:"varint,12,opt,name=passes,proto3" json:"passes,omitempty"`
	Overruns     uint64 `protobuf:"varint,13,opt,name=overruns,proto3" json:"overruns,omitempty"`
	Errors       uint64 `protobuf:"varint,14,opt,name=errors,proto3" json:"errors,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *StatsRecord) ProtoMessage() {}

// Reset implements proto.Message.
func (m *StatsRecord) Reset() { *m = StatsRecord{} }

// String implements proto.Message.
func (m *StatsRecord) String() string { return proto.CompactTextString(m) }

// NewStatsRecord converts dispatcher counters.
func NewStatsRecord(st bus.Stats) *StatsRecord {
	return &StatsRecord{
		Routed:       st.Routed,
		Delivered:    st.Delivered,
		Dropped:      st.Dropped,
		Unrouted:     st.Unrouted,
		Foreign:      st.Foreign,
		Transmitted:  st.Transmitted,
		Busy:         st.Busy,
		LeaseExpired: st.LeaseExpired,
	}
}

// Decode parses a Record.
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := proto.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
