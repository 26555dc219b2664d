// Package protocol implements the line protocol adapter: the per-connection
// read/parse/dispatch/reply loop described for the server's TCP listener.
package protocol

import (
	"bufio"
	"net"

	"github.com/google/uuid"
	"github.com/jimsnab/go-lane"

	"github.com/wvaviator/mycokv/internal/command"
)

// Engine is the subset of internal/engine.Engine the adapter depends on,
// kept narrow so this package never imports the engine's WAL/radix
// internals.
type Engine interface {
	Process(op command.Operation) (string, error)
}

// Server accepts connections on a listener and serves each with the line
// protocol: one request line in, one reply line out, until the client
// disconnects or a read fails.
type Server struct {
	l      lane.Lane
	engine Engine
}

// New constructs a Server bound to engine for request dispatch.
func New(l lane.Lane, engine Engine) *Server {
	return &Server{l: l, engine: engine}
}

// Serve accepts connections from lis in a loop, handling each on its own
// goroutine, until lis.Accept returns an error (typically because the
// listener was closed).
func (s *Server) Serve(lis net.Listener) error {
	for {
		conn, err := lis.Accept()
		if err != nil {
			return err
		}
		go s.handle(conn)
	}
}

// handle services one connection until a read error or EOF ends it. Each
// connection gets its own correlation ID so interleaved connection logs
// can be told apart.
func (s *Server) handle(conn net.Conn) {
	cid := uuid.NewString()
	defer conn.Close()

	s.l.Tracef("[%s] connection from %s", cid, conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Text()
		reply := s.dispatch(line)

		if _, err := writer.WriteString(reply + "\n"); err != nil {
			s.l.Errorf("[%s] write failed: %s", cid, err.Error())
			return
		}
		if err := writer.Flush(); err != nil {
			s.l.Errorf("[%s] flush failed: %s", cid, err.Error())
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.l.Debugf("[%s] connection closed: %s", cid, err.Error())
	}
}

// dispatch parses one request line and runs it against the engine,
// formatting any error per the "<code>: <message>" taxonomy convention.
func (s *Server) dispatch(line string) string {
	op, err := command.Parse(line)
	if err != nil {
		return err.Error()
	}

	reply, err := s.engine.Process(op)
	if err != nil {
		return err.Error()
	}
	return reply
}
