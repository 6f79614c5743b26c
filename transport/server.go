package transport

/*
 * gnc-motion - CNC motion-control firmware
 *
 * Copyright 2026, gnc-motion contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rcornwell/gnc-motion/executor"
)

// Server accepts Link connections on a single TCP listener and runs
// each one against ex's line/realtime dispatch. Grounded on the
// teacher's telnet/listener.go accept-loop shape (wg + shutdown
// channel + accept/handle goroutine pair), simplified to one endpoint
// since this firmware has a single serial-equivalent link rather than
// the teacher's per-device multiplexed port table.
type Server struct {
	wg         sync.WaitGroup
	listener   net.Listener
	shutdown   chan struct{}
	connection chan net.Conn
	ex         *executor.Executor
	address    string
}

// NewServer opens a listener on address (":2345" style) and returns a
// Server ready to Start.
func NewServer(address string, ex *executor.Executor) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on %s: %w", address, err)
	}
	return &Server{
		listener:   listener,
		shutdown:   make(chan struct{}),
		connection: make(chan net.Conn),
		ex:         ex,
		address:    address,
	}, nil
}

// Start launches the accept and dispatch goroutines.
func (s *Server) Start() {
	s.wg.Add(2)
	slog.Info("transport listening", "address", s.listener.Addr().String())
	go s.acceptConnections()
	go s.dispatchConnections()
}

// Stop closes the listener and waits briefly for the accept and
// dispatch goroutines to exit; open client connections are not waited
// for.
func (s *Server) Stop() {
	close(s.shutdown)
	s.listener.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("transport: timed out waiting for connections to close", "address", s.address)
	}
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	for {
		select {
		case <-s.shutdown:
			return
		default:
			conn, err := s.listener.Accept()
			if err != nil {
				continue
			}
			s.connection <- conn
		}
	}
}

func (s *Server) dispatchConnections() {
	defer s.wg.Done()
	for {
		select {
		case <-s.shutdown:
			return
		case conn := <-s.connection:
			go handleClient(conn, s.ex)
		}
	}
}

// handleClient pumps one connection: assemble lines, submit them to
// the executor, write back a response per line. Realtime bytes are
// applied inline and produce no response of their own.
func handleClient(conn net.Conn, ex *executor.Executor) {
	defer conn.Close()

	assembler := NewAssembler(ex)
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		for _, line := range assembler.Feed(buf[:n]) {
			resp := ex.Submit(ClassifyLine(line))
			if _, err := fmt.Fprintf(conn, "%s\n", resp); err != nil {
				return
			}
		}
	}
}
