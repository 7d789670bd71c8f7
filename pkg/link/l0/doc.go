// Package l0 is the point-to-point link protocol used on serial lines.
//
// Both ends keep a sequence number and synchronize it with a REQ/ACK
// handshake before exchanging packets. A byte received out of sequence
// drops the link back to syncing, so the stream recovers from noise
// and partial packets without framing bytes or checksums. Parity can
// be enabled on the serial port when bit errors matter.
package l0
