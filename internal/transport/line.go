package transport

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// MaxLineSize bounds a single received line.  A longer line fails the
// read and, in practice, ends the connection.
const MaxLineSize = 64 * 1024

// LineConn frames a net.Conn as newline-terminated UTF-8 text.
//
// ReadLine must be called from a single goroutine.  WriteLine is safe
// for concurrent use; writes are serialized so lines never interleave.
// Close is idempotent and may be called from any goroutine, which is
// also how a blocked ReadLine is cancelled.
type LineConn struct {
	conn    net.Conn
	scanner *bufio.Scanner

	wmu sync.Mutex
	w   *bufio.Writer

	closeOnce sync.Once
	closeErr  error
}

// NewLineConn wraps conn.  The LineConn takes ownership of conn.
func NewLineConn(conn net.Conn) *LineConn {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 4096), MaxLineSize)
	return &LineConn{
		conn:    conn,
		scanner: sc,
		w:       bufio.NewWriter(conn),
	}
}

// ReadLine blocks until the next line arrives and returns it without
// the line terminator (a trailing "\r" is dropped as well).  Invalid
// UTF-8 is replaced with U+FFFD.  At end of stream it returns io.EOF.
func (c *LineConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.ToValidUTF8(c.scanner.Text(), "�"), nil
}

// WriteLine sends line followed by "\n".
func (c *LineConn) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if _, err := c.w.WriteString(line); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	return c.w.Flush()
}

// SetWriteDeadline bounds pending and future writes.
func (c *LineConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// Close closes the underlying connection once.  Later calls return the
// result of the first.
func (c *LineConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteAddr returns the peer address.
func (c *LineConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// LocalAddr returns the local address.
func (c *LineConn) LocalAddr() net.Addr { return c.conn.LocalAddr() }
