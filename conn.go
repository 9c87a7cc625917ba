package gatt

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SecurityLevel is the link security reported by the transport.
type SecurityLevel int

const (
	SecurityNone SecurityLevel = iota
	SecurityLow
	SecurityMedium
	SecurityHigh
)

// ErrIndicationPending is returned when an indication is attempted
// while a previous one has not yet been confirmed. ATT permits only
// one outstanding indication per bearer.
var ErrIndicationPending = errors.New("gatt: indication awaiting confirmation")

// ErrClosed is returned for operations on a closed bearer.
var ErrClosed = errors.New("gatt: bearer closed")

// A pduHandler decodes and handles one inbound PDU, returning the
// response to send (nil for none, as with commands) or a fatal error
// that must terminate the bearer.
type pduHandler func(req []byte) ([]byte, error)

// A bearer is one logical ATT connection over a transport socket.
// The socket's Read must return exactly one inbound PDU per call,
// as L2CAP basic-mode frames do. Writes are serialized; inbound PDUs
// are dispatched to per-opcode handlers registered by the owning
// server. The bearer owns the negotiated MTU and the single slot for
// an outstanding indication confirmation.
type bearer struct {
	rwc      io.ReadWriteCloser
	log      logrus.FieldLogger
	security SecurityLevel

	mtumu sync.RWMutex
	mtu   uint16

	handlers map[byte]pduHandler

	sendmu sync.Mutex // serializes writes to the socket

	cnfmu      sync.Mutex
	pendingCnf func() // confirmation callback for the outstanding indication

	closemu sync.Mutex
	closed  bool
}

func newBearer(rwc io.ReadWriteCloser, log logrus.FieldLogger) *bearer {
	return &bearer{
		rwc:      rwc,
		log:      log,
		security: SecurityNone,
		mtu:      DefaultMTU,
		handlers: make(map[byte]pduHandler),
	}
}

// register associates handler with inbound PDUs of opcode op.
// All registration happens before loop starts; the map is read-only
// afterwards.
func (b *bearer) register(op byte, h pduHandler) {
	b.handlers[op] = h
}

// MTU returns the current negotiated MTU.
func (b *bearer) MTU() uint16 {
	b.mtumu.RLock()
	mtu := b.mtu
	b.mtumu.RUnlock()
	return mtu
}

// setMTU adopts a newly negotiated MTU, clamped to [DefaultMTU, MaxMTU].
func (b *bearer) setMTU(mtu uint16) {
	if mtu < DefaultMTU {
		mtu = DefaultMTU
	}
	if mtu > MaxMTU {
		mtu = MaxMTU
	}
	b.mtumu.Lock()
	b.mtu = mtu
	b.mtumu.Unlock()
}

// SecurityLevel returns the link security of the connection. If the
// transport reports its own security level, that takes precedence.
func (b *bearer) SecurityLevel() SecurityLevel {
	if s, ok := b.rwc.(interface{ SecurityLevel() SecurityLevel }); ok {
		return s.SecurityLevel()
	}
	return b.security
}

// setSecurityLevel records a link security change reported by the
// transport.
func (b *bearer) setSecurityLevel(s SecurityLevel) {
	b.security = s
}

// send enqueues one outbound PDU. An attempt to send a PDU larger
// than the negotiated MTU is an invariant violation by the caller.
func (b *bearer) send(pdu []byte) error {
	if len(pdu) > int(b.MTU()) {
		return errors.Errorf("gatt: PDU of %d bytes exceeds MTU %d", len(pdu), b.MTU())
	}
	b.sendmu.Lock()
	_, err := b.rwc.Write(pdu)
	b.sendmu.Unlock()
	return errors.Wrap(err, "gatt: send")
}

// sendIndication enqueues a Handle Value Indication and remembers
// onConfirmed until the client's confirmation arrives. A second
// indication while one is outstanding is rejected with
// ErrIndicationPending.
func (b *bearer) sendIndication(pdu []byte, onConfirmed func()) error {
	b.cnfmu.Lock()
	if b.pendingCnf != nil {
		b.cnfmu.Unlock()
		return ErrIndicationPending
	}
	b.pendingCnf = onConfirmed
	b.cnfmu.Unlock()

	if err := b.send(pdu); err != nil {
		b.cnfmu.Lock()
		b.pendingCnf = nil
		b.cnfmu.Unlock()
		return err
	}
	return nil
}

// confirmed delivers the client's Handle Value Confirmation to the
// callback registered by sendIndication. A confirmation with no
// outstanding indication is ignored.
func (b *bearer) confirmed() {
	b.cnfmu.Lock()
	cb := b.pendingCnf
	b.pendingCnf = nil
	b.cnfmu.Unlock()
	if cb != nil {
		cb()
	}
}

// Close shuts the bearer down. Safe to call more than once.
func (b *bearer) Close() error {
	b.closemu.Lock()
	defer b.closemu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.closed = true
	return b.rwc.Close()
}

// loop reads inbound PDUs to completion, dispatching each to its
// registered handler. ATT forbids request pipelining, so the next
// read does not begin until the current handler has responded.
// A fatal handler error sends UnlikelyError best-effort, terminates
// the bearer, and is returned to the owner.
func (b *bearer) loop() error {
	buf := make([]byte, MaxMTU)
	for {
		n, err := b.rwc.Read(buf)
		if n == 0 || err != nil {
			b.Close()
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "gatt: read")
		}
		req := buf[:n]
		op := req[0]

		if op == attOpHandleCnf {
			b.confirmed()
			continue
		}

		h, ok := b.handlers[op]
		if !ok {
			if op&attOpCommandFlag != 0 {
				// Commands have no error path; drop silently.
				b.log.WithField("opcode", op).Debug("unsupported command ignored")
				continue
			}
			if err := b.send(attErrorResp(op, 0x0000, AttReqNotSupp)); err != nil {
				b.Close()
				return err
			}
			continue
		}

		rsp, err := h(req)
		if err != nil {
			// The ATT state machine is inconsistent; terminate.
			b.send(attErrorResp(op, 0x0000, AttUnlikely))
			b.Close()
			return errors.Wrap(err, "gatt: fatal")
		}
		if rsp == nil {
			continue
		}
		if err := b.send(rsp); err != nil {
			b.Close()
			return err
		}
	}
}
