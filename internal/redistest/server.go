// Package redistest runs a small in-process Redis server for tests. It
// speaks RESP2 and implements the string commands the stores and caches
// use: PING, GET, SET (NX is honoured, expiry is ignored), SETNX, DEL,
// EXISTS and SCAN. HELLO is refused, so clients fall back to RESP2.
package redistest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Server is an in-memory Redis stand-in listening on a loopback port.
type Server struct {
	ln net.Listener

	mu    sync.Mutex
	data  map[string]string
	conns map[net.Conn]struct{}
	done  bool
	wg    sync.WaitGroup
}

// Start listens on a free loopback port and stops the server when the test
// ends.
func Start(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("redistest: listen: %v", err)
	}
	s := &Server{ln: ln, data: make(map[string]string), conns: make(map[net.Conn]struct{})}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Addr is the host:port to dial.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Keys returns the stored keys in order.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Value returns the raw value stored under key.
func (s *Server) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Close stops the listener, drops open connections and waits for their
// handlers to return.
func (s *Server) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	s.done = true
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.done {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		s.exec(w, args)
		if r.Buffered() == 0 {
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

func (s *Server) exec(w *bufio.Writer, args []string) {
	if len(args) == 0 {
		writeError(w, "ERR empty command")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd, args := strings.ToUpper(args[0]), args[1:]; cmd {
	case "PING":
		fmt.Fprint(w, "+PONG\r\n")
	case "SELECT":
		fmt.Fprint(w, "+OK\r\n")
	case "CLIENT":
		if len(args) > 0 && (strings.EqualFold(args[0], "SETINFO") || strings.EqualFold(args[0], "SETNAME")) {
			fmt.Fprint(w, "+OK\r\n")
			return
		}
		writeError(w, "ERR unknown subcommand")
	case "GET":
		if len(args) != 1 {
			writeError(w, "ERR wrong number of arguments for 'get' command")
			return
		}
		v, ok := s.data[args[0]]
		if !ok {
			fmt.Fprint(w, "$-1\r\n")
			return
		}
		writeBulk(w, v)
	case "SET":
		if len(args) < 2 {
			writeError(w, "ERR wrong number of arguments for 'set' command")
			return
		}
		nx := false
		for _, opt := range args[2:] {
			if strings.EqualFold(opt, "NX") {
				nx = true
			}
		}
		if _, exists := s.data[args[0]]; nx && exists {
			fmt.Fprint(w, "$-1\r\n")
			return
		}
		s.data[args[0]] = args[1]
		fmt.Fprint(w, "+OK\r\n")
	case "SETNX":
		if len(args) != 2 {
			writeError(w, "ERR wrong number of arguments for 'setnx' command")
			return
		}
		if _, exists := s.data[args[0]]; exists {
			fmt.Fprint(w, ":0\r\n")
			return
		}
		s.data[args[0]] = args[1]
		fmt.Fprint(w, ":1\r\n")
	case "DEL", "EXISTS":
		n := 0
		for _, k := range args {
			if _, ok := s.data[k]; ok {
				n++
				if cmd == "DEL" {
					delete(s.data, k)
				}
			}
		}
		fmt.Fprintf(w, ":%d\r\n", n)
	case "SCAN":
		// Everything comes back in one batch with cursor 0.
		pattern := "*"
		for i := 1; i+1 < len(args); i += 2 {
			if strings.EqualFold(args[i], "MATCH") {
				pattern = args[i+1]
			}
		}
		var keys []string
		for k := range s.data {
			if ok, _ := path.Match(pattern, k); ok {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		fmt.Fprint(w, "*2\r\n")
		writeBulk(w, "0")
		fmt.Fprintf(w, "*%d\r\n", len(keys))
		for _, k := range keys {
			writeBulk(w, k)
		}
	default:
		writeError(w, fmt.Sprintf("ERR unknown command '%s'", strings.ToLower(cmd)))
	}
}

func writeBulk(w io.Writer, v string) {
	fmt.Fprintf(w, "$%d\r\n%s\r\n", len(v), v)
}

func writeError(w io.Writer, msg string) {
	fmt.Fprintf(w, "-%s\r\n", msg)
}

// readCommand reads one RESP array of bulk strings.
func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return nil, fmt.Errorf("redistest: expected array, got %q", line)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, fmt.Errorf("redistest: array length: %w", err)
	}
	args := make([]string, 0, n)
	for range n {
		head, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(head, "$") {
			return nil, fmt.Errorf("redistest: expected bulk string, got %q", head)
		}
		size, err := strconv.Atoi(head[1:])
		if err != nil {
			return nil, fmt.Errorf("redistest: bulk length: %w", err)
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\r\n")
	if line == "" {
		return "", errors.New("redistest: empty line")
	}
	return line, nil
}
