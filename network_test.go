// network_test.go

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
	"errors"
	"testing"

	"github.com/bluenviron/gomavlib/v3"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want gomavlib.EndpointConf
	}{
		{"udp:0.0.0.0:14550", gomavlib.EndpointUDPServer{Address: "0.0.0.0:14550"}},
		{"udpout:10.0.0.2:14550", gomavlib.EndpointUDPClient{Address: "10.0.0.2:14550"}},
		{"tcp:127.0.0.1:5760", gomavlib.EndpointTCPClient{Address: "127.0.0.1:5760"}},
		{"tcpin::5760", gomavlib.EndpointTCPServer{Address: ":5760"}},
		{"serial:/dev/ttyTHS1:921600", gomavlib.EndpointSerial{Device: "/dev/ttyTHS1", Baud: 921600}},
		{"serial:/dev/ttyUSB0", gomavlib.EndpointSerial{Device: "/dev/ttyUSB0", Baud: 57600}},
		{"/dev/ttyAMA0", gomavlib.EndpointSerial{Device: "/dev/ttyAMA0", Baud: 57600}},
	}
	for _, test := range tests {
		got, err := ParseEndpoint(test.in, 57600)
		if err != nil {
			t.Errorf("ParseEndpoint(%q) failed with %v", test.in, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseEndpoint(%q) = %#v, expected %#v", test.in, got, test.want)
		}
	}

	for _, bad := range []string{"", "udp", "carrier:pigeon", "serial:/dev/ttyS0:fast"} {
		if _, err := ParseEndpoint(bad, 57600); !errors.Is(err, ErrBadEndpoint) {
			t.Errorf("ParseEndpoint(%q) = %v, expected ErrBadEndpoint", bad, err)
		}
	}
}
