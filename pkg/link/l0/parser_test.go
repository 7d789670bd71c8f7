package l0

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// step feeds in and expects the result after the last byte. An empty
// in expires the timer instead.
type step struct {
	in   []byte
	want Result
}

func feed(in ...byte) step { return step{in: in} }

func expire() step { return step{} }

func (s step) is(st Sync) step {
	s.want.State = st
	return s
}

func (s step) ready() step { return s.is(Ready) }

func (s step) acked() step {
	s.want = Result{Reply: syncACK, State: Ready}
	return s
}

func (s step) resync() step {
	s.want = Result{Reply: syncREQ, State: Syncing}
	return s
}

func (s step) packet(seq, code byte, data ...byte) step {
	s.want = Result{State: Ready, Packet: &Packet{Seq: Seq(seq), Code: code, Data: data}}
	return s
}

func TestParser(t *testing.T) {
	testCases := []struct {
		name  string
		steps []step
	}{
		{"sync and receive", []step{
			feed(syncACK, 1).ready(),
			feed(1, 0x02).packet(1, 2),
			feed(2, 0x72, 0).packet(2, 2),
			feed(3, 0x92, 0x03).packet(3, 0x82, 3),
			feed(4, 0x72, 0x08, 1, 2, 3, 4, 5, 6, 7, 8).packet(4, 2, 1, 2, 3, 4, 5, 6, 7, 8),
		}},
		{"sync timeout", []step{
			expire().resync(),
			feed(syncACK).is(Syncing | Receiving),
			expire().resync(),
		}},
		{"skip garbage while syncing", []step{
			feed(1, 2, 3, 0x80, 0xf0, 0xf1).is(Syncing),
			feed(syncACK, 1).ready(),
		}},
		{"req while syncing", []step{
			feed(syncREQ, 1).acked(),
		}},
		{"req with invalid seq", []step{
			feed(syncREQ, syncREQ).resync(),
			feed(syncACK, 1).ready(),
		}},
		{"req after sync", []step{
			feed(syncACK, 1).ready(),
			feed(syncREQ, 1).acked(),
			feed(1, 0x02).packet(1, 2),
		}},
		{"ack after sync", []step{
			feed(syncACK, 1).ready(),
			feed(syncACK, 1).ready(),
			feed(1, 0x02).packet(1, 2),
		}},
		{"ack with wrong seq after sync", []step{
			feed(syncACK, 1).ready(),
			feed(syncACK, 2).resync(),
			feed(syncACK, 2).ready(),
			feed(2, 0x02).packet(2, 2),
		}},
		{"out of sequence", []step{
			feed(syncACK, 1).ready(),
			feed(1, 2).packet(1, 2),
			feed(1).resync(),
			feed(syncACK, 3).ready(),
		}},
		{"invalid length", []step{
			feed(syncACK, 1).ready(),
			feed(1, 0x70, 0x80).resync(),
		}},
		{"expire while ready", []step{
			feed(syncACK, 1).ready(),
			expire().ready(),
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var p Parser
			for n, s := range tc.steps {
				var res Result
				if len(s.in) == 0 {
					res = p.Expire()
				}
				for _, b := range s.in {
					res = p.Feed(b)
				}
				require.Equalf(t, s.want, res, "step %d", n)
			}
		})
	}
}

func TestParserReset(t *testing.T) {
	var p Parser
	res := p.Reset()
	require.Equal(t, Result{Reply: syncREQ, State: Syncing}, res)
	require.True(t, res.RestartTimer())
}

func TestResultTimer(t *testing.T) {
	testCases := []struct {
		res     Result
		restart bool
		stop    bool
	}{
		{Result{State: Syncing}, false, false},
		{Result{State: Syncing, Reply: syncACK}, false, false},
		{Result{State: Syncing, Reply: syncREQ}, true, false},
		{Result{State: Syncing | Receiving}, true, false},
		{Result{State: Ready | Receiving}, true, false},
		{Result{State: Ready}, false, true},
		{Result{State: Ready, Reply: syncACK}, false, true},
	}
	for _, tc := range testCases {
		t.Run(tc.res.State.String(), func(t *testing.T) {
			require.Equal(t, tc.restart, tc.res.RestartTimer())
			require.Equal(t, tc.stop, tc.res.StopTimer())
		})
	}
}
