package link

import (
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/robotalks/minut.go/pkg/bus"
	"github.com/robotalks/minut.go/pkg/link/l0"
	"github.com/robotalks/minut.go/pkg/link/mqtt"
	"github.com/robotalks/minut.go/pkg/link/stream"
	"github.com/robotalks/minut.go/pkg/link/websocket"
)

// Link is an opened transport with its Medium.
type Link struct {
	*Medium
	URL string

	closer io.Closer
}

// Close releases the transport.
func (l *Link) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Open connects a transport by URL for the node at addr:
//
//	serial:///dev/ttyUSB0?baud=115200
//	tcp://host:port
//	ws://host:port/path
//	mqtt://broker:1883/prefix/
func Open(rawURL string, addr bus.Address) (*Link, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %w", err)
	}
	l := &Link{URL: rawURL}
	var rw PacketReadWriter
	switch u.Scheme {
	case "serial":
		baud := 0
		if s := u.Query().Get("baud"); s != "" {
			if baud, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("invalid baud rate %q", s)
			}
		}
		conn, err := l0.OpenSerial(u.Path, baud)
		if err != nil {
			return nil, err
		}
		rw, l.closer = conn, conn
	case "tcp":
		s, closer, err := stream.Dial(u.Host)
		if err != nil {
			return nil, err
		}
		rw, l.closer = s, closer
	case "ws", "wss":
		ws, err := websocket.Dial(rawURL, "")
		if err != nil {
			return nil, err
		}
		rw, l.closer = ws, ws
	case "mqtt":
		q, err := mqtt.NewQueueFromURL(rawURL)
		if err != nil {
			return nil, err
		}
		if err := q.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect %s: %w", u.Host, err)
		}
		rw, l.closer = mqtt.NewReadWriter(q, byte(addr)), q
	default:
		return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
	}
	l.Medium = NewMedium(rw)
	return l, nil
}
