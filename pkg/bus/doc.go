// Package bus routes fixed format frames between modules of one node.
//
// Modules register an Interface carrying their channel, the set of
// commands they want and the inbound queue the dispatcher fills. The
// only shared resource is the transmit path: a module takes the lock,
// retries Transmit while it returns ErrBusy and releases the lock once
// the frame is accepted. At most one module owns the lock at a time.
//
// Frames addressed to Self or to the node address never leave the node:
// they go through a loopback queue and are routed on the next pass.
// Everything else is handed to the Medium, which also supplies frames
// received from peers. A frame is delivered to every interface whose
// mask includes its command; frames no mask wants are counted and
// discarded.
package bus
