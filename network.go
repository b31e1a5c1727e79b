// network.go

// This file contains the transport between the core and the autopilot.

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package mavguide

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/SMerrony/mavguide/log"
)

// Frame is one decoded inbound message and the ids of its sender.
type Frame struct {
	SystemID    uint8
	ComponentID uint8
	Message     message.Message
}

// Transport moves decoded MAVLink messages to and from the autopilot.
// Recv blocks until a message arrives and returns an error once the
// transport is closed or broken.
type Transport interface {
	Recv() (Frame, error)
	Send(msg message.Message) error
	Close() error
}

// NodeTransport is a Transport over a gomavlib node.
type NodeTransport struct {
	node      *gomavlib.Node
	lg        *log.Logger
	closeOnce sync.Once
}

// ParseEndpoint converts a connection string into a gomavlib endpoint.
// Accepted forms are udp:host:port (listen), udpout:host:port,
// tcp:host:port (connect), tcpin:host:port, serial:device[:baud] and a bare
// device path. Serial endpoints without a baud rate use baud.
func ParseEndpoint(s string, baud int) (gomavlib.EndpointConf, error) {
	if strings.HasPrefix(s, "/") {
		return gomavlib.EndpointSerial{Device: s, Baud: baud}, nil
	}
	kind, addr, ok := strings.Cut(s, ":")
	if !ok || addr == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadEndpoint, s)
	}
	switch kind {
	case "udp", "udpin":
		return gomavlib.EndpointUDPServer{Address: addr}, nil
	case "udpout":
		return gomavlib.EndpointUDPClient{Address: addr}, nil
	case "udpbcast":
		return gomavlib.EndpointUDPBroadcast{BroadcastAddress: addr}, nil
	case "tcp":
		return gomavlib.EndpointTCPClient{Address: addr}, nil
	case "tcpin":
		return gomavlib.EndpointTCPServer{Address: addr}, nil
	case "serial":
		dev, rate, found := strings.Cut(addr, ":")
		if found {
			b, err := strconv.Atoi(rate)
			if err != nil {
				return nil, fmt.Errorf("%w: baud %q", ErrBadEndpoint, rate)
			}
			baud = b
		}
		return gomavlib.EndpointSerial{Device: dev, Baud: baud}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrBadEndpoint, kind)
}

// NewNodeTransport opens a gomavlib node on the configured endpoint.
// The node emits the companion heartbeat itself.
func NewNodeTransport(cfg Config, lg *log.Logger) (*NodeTransport, error) {
	ep, err := ParseEndpoint(cfg.Endpoint, cfg.Baud)
	if err != nil {
		return nil, err
	}
	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:      []gomavlib.EndpointConf{ep},
		Dialect:        common.Dialect,
		OutVersion:     gomavlib.V2,
		OutSystemID:    cfg.SystemID,
		OutComponentID: cfg.ComponentID,
	})
	if err != nil {
		return nil, err
	}
	lg.Info("Opened MAVLink endpoint", "endpoint", cfg.Endpoint)
	return &NodeTransport{node: node, lg: lg}, nil
}

func (t *NodeTransport) Recv() (Frame, error) {
	for evt := range t.node.Events() {
		switch e := evt.(type) {
		case *gomavlib.EventFrame:
			return Frame{
				SystemID:    e.SystemID(),
				ComponentID: e.ComponentID(),
				Message:     e.Message(),
			}, nil
		case *gomavlib.EventParseError:
			t.lg.Debug("MAVLink parse error", "error", e.Error)
		case *gomavlib.EventChannelOpen:
			t.lg.Info("MAVLink channel open", "channel", e.Channel.String())
		case *gomavlib.EventChannelClose:
			t.lg.Warn("MAVLink channel closed", "channel", e.Channel.String())
		}
	}
	return Frame{}, ErrLinkClosed
}

func (t *NodeTransport) Send(msg message.Message) error {
	t.node.WriteMessageAll(msg)
	return nil
}

func (t *NodeTransport) Close() error {
	t.closeOnce.Do(func() { t.node.Close() })
	return nil
}
