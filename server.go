package gatt

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Maximum length of an attribute value, per the ATT spec.
const maxAttrValueLen = 512

// defaultMaxPreparedWrites bounds the prepared write queue.
const defaultMaxPreparedWrites = 50

// A WillReadHandler may veto a read of the attribute with the given
// UUID and handle before any data leaves the server. value is the
// current stored value and offset the requested read offset.
// Returning anything but AttSuccess rejects the read with that code.
type WillReadHandler func(u UUID, h uint16, value []byte, offset int) AttError

// A WillWriteHandler may veto a write before it is applied.
// Returning anything but AttSuccess rejects the write with that code.
type WillWriteHandler func(u UUID, h uint16, value, newValue []byte) AttError

// A DidWriteHandler observes every committed write.
type DidWriteHandler func(u UUID, h uint16, newValue []byte)

// A Server is an ATT/GATT server serving one bearer. Servers are
// single-shot types; once a Server's bearer has closed, create a new
// Server for the next connection. Multiple simultaneous centrals
// require one Server per bearer.
type Server struct {
	services []*Service
	attrs    *attrRange
	conn     *bearer
	log      logrus.FieldLogger

	mtu         uint16 // server-configured MTU, offered during Exchange MTU
	maxPrepared int
	prepared    []preparedWrite

	willRead  WillReadHandler
	willWrite WillWriteHandler
	didWrite  DidWriteHandler

	serving bool
}

// A preparedWrite is one queued partial write awaiting Execute Write.
type preparedWrite struct {
	handle uint16
	offset uint16
	value  []byte
}

// NewServer creates a Server with the specified options.
// See also Server.Option.
// See http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis for more discussion.
func NewServer(opts ...option) *Server {
	discard := logrus.New()
	discard.Out = ioutil.Discard
	s := &Server{
		log:         discard,
		mtu:         MaxMTU,
		maxPrepared: defaultMaxPreparedWrites,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type option func(*Server) option

// Option sets the options specified.
// It returns an option to restore the last arg's previous value.
// Some options can only be set before the server is serving;
// they are best used with NewServer instead of Option.
// See http://commandcenter.blogspot.com.au/2014/01/self-referential-functions-and-design.html for more discussion.
func (s *Server) Option(opts ...option) (prev option) {
	for _, opt := range opts {
		prev = opt(s)
	}
	return prev
}

// MTU sets the MTU the server offers during Exchange MTU. The
// negotiated value is the minimum of this and the client's offer.
func MTU(mtu uint16) option {
	return func(s *Server) option {
		if mtu < DefaultMTU {
			mtu = DefaultMTU
		}
		if mtu > MaxMTU {
			mtu = MaxMTU
		}
		prev := s.mtu
		s.mtu = mtu
		return MTU(prev)
	}
}

// MaxPreparedWrites bounds the prepared write queue; once full,
// further Prepare Write requests fail with AttPrepQueueFull.
func MaxPreparedWrites(n int) option {
	return func(s *Server) option {
		prev := s.maxPrepared
		s.maxPrepared = n
		return MaxPreparedWrites(prev)
	}
}

// Logger sets the diagnostic sink. Logging is a side channel and
// never affects protocol behavior.
func Logger(l logrus.FieldLogger) option {
	return func(s *Server) option {
		prev := s.log
		s.log = l
		return Logger(prev)
	}
}

// WillRead sets a hook consulted before any read-type operation
// returns attribute data.
func WillRead(f WillReadHandler) option {
	return func(s *Server) option {
		prev := s.willRead
		s.willRead = f
		return WillRead(prev)
	}
}

// WillWrite sets a hook consulted before any write is applied.
func WillWrite(f WillWriteHandler) option {
	return func(s *Server) option {
		prev := s.willWrite
		s.willWrite = f
		return WillWrite(prev)
	}
}

// DidWrite sets a hook observing every committed write.
func DidWrite(f DidWriteHandler) option {
	return func(s *Server) option {
		prev := s.didWrite
		s.didWrite = f
		return DidWrite(prev)
	}
}

// AddService registers a new Service with the server.
// All services must be added before calling Serve.
func (s *Server) AddService(u UUID) *Service {
	if s.serving {
		return nil
	}
	svc := NewService(u)
	s.services = append(s.services, svc)
	return svc
}

// SetServices replaces the server's services.
// SetServices must be called before Serve.
func (s *Server) SetServices(svcs []*Service) error {
	if s.serving {
		return errors.New("cannot set services while serving")
	}
	s.services = append([]*Service(nil), svcs...)
	return nil
}

// Serve compiles the attribute table and serves ATT requests on rwc
// until the bearer closes. rwc must deliver exactly one inbound PDU
// per Read, as an L2CAP basic-mode channel does. If rwc implements
// SecurityLevel() SecurityLevel, permission checks consult it for the
// current link security.
func (s *Server) Serve(rwc io.ReadWriteCloser) error {
	if s.serving {
		return errors.New("a server is already running")
	}
	s.attrs = generateAttributes(s.services, 1) // ble handles start at 1
	s.dumpAttributes()
	s.conn = newBearer(rwc, s.log)
	for op, h := range s.dispatch() {
		s.conn.register(op, h)
	}
	s.serving = true
	err := s.conn.loop()
	s.serving = false
	return err
}

// Close disconnects the bearer.
func (s *Server) Close() error {
	if !s.serving {
		return errors.New("not serving")
	}
	return s.conn.Close()
}

// dispatch builds the opcode handler table.
func (s *Server) dispatch() map[byte]pduHandler {
	return map[byte]pduHandler{
		attOpMtuReq:         s.handleExchangeMTU,
		attOpFindInfoReq:    s.handleFindInfo,
		attOpFindByTypeReq:  s.handleFindByTypeValue,
		attOpReadByTypeReq:  s.handleReadByType,
		attOpReadReq:        s.handleRead,
		attOpReadBlobReq:    s.handleReadBlob,
		attOpReadMultiReq:   s.handleReadMulti,
		attOpReadByGroupReq: s.handleReadByGroup,
		attOpWriteReq:       s.handleWrite,
		attOpWriteCmd:       s.handleWriteCmd,
		attOpPrepWriteReq:   s.handlePrepareWrite,
		attOpExecWriteReq:   s.handleExecuteWrite,
	}
}

func (s *Server) dumpAttributes() {
	s.log.Debug("generated attribute table:")
	for _, a := range s.attrs.aa {
		s.log.Debugf("0x%04X\t0x%04X\t0x%s\t[ % X ]", a.h, a.endh, a.typ, a.v)
	}
}

// checkRange applies the handle bound checks shared by the ranged
// discovery requests.
func (s *Server) checkRange(op byte, start, end uint16) []byte {
	if len(s.attrs.aa) == 0 || start == 0 || end == 0 || start > end {
		return attErrorResp(op, start, AttInvalidHandle)
	}
	return nil
}

// checkPermissions validates attribute access. req is the permission
// mask the operation needs, combining the basic read or write bit
// with its authentication and encryption companions. Checks
// short-circuit in priority order: basic permission, then
// authentication, then encryption.
func checkPermissions(req Permission, a attr, sec SecurityLevel) AttError {
	if req&AttrRead != 0 && a.perms&AttrRead == 0 {
		return AttReadNotPerm
	}
	if req&AttrWrite != 0 && a.perms&AttrWrite == 0 {
		return AttWriteNotPerm
	}
	readAuthn := (req&AttrReadAuthn != 0) && (a.perms&AttrReadAuthn != 0)
	writeAuthn := (req&AttrWriteAuthn != 0) && (a.perms&AttrWriteAuthn != 0)
	if (readAuthn || writeAuthn) && sec < SecurityHigh {
		return AttAuthentication
	}
	readEnc := (req&AttrReadEncrypt != 0) && (a.perms&AttrReadEncrypt != 0)
	writeEnc := (req&AttrWriteEncrypt != 0) && (a.perms&AttrWriteEncrypt != 0)
	if (readEnc || writeEnc) && sec < SecurityMedium {
		return AttInsuffEnc
	}
	return AttSuccess
}

const (
	permsRead  = AttrRead | AttrReadAuthn | AttrReadEncrypt
	permsWrite = AttrWrite | AttrWriteAuthn | AttrWriteEncrypt
)

func (s *Server) handleExchangeMTU(req []byte) ([]byte, error) {
	if len(req) != 3 {
		return attErrorResp(req[0], 0, AttInvalidPDU), nil
	}
	r := exchangeMTURequest(req)
	client := r.ClientRxMTU()
	s.log.WithField("clientMTU", client).Debug("exchange MTU request")

	// Answer with our own MTU, then adopt the minimum of the two.
	rsp := exchangeMTUResponse(make([]byte, 3))
	rsp.SetAttributeOpcode()
	rsp.SetServerRxMTU(s.mtu)

	final := client
	if s.mtu < final {
		final = s.mtu
	}
	s.conn.setMTU(final)
	return rsp, nil
}

func (s *Server) handleReadByGroup(req []byte) ([]byte, error) {
	if len(req) != 7 && len(req) != 21 {
		return attErrorResp(req[0], 0, AttInvalidPDU), nil
	}
	r := readByGroupRequest(req)
	start, end := r.StartingHandle(), r.EndingHandle()
	typ := r.AttributeGroupType()
	s.log.WithFields(logrus.Fields{"start": start, "end": end, "type": typ.String()}).
		Debug("read by group type request")

	if rsp := s.checkRange(req[0], start, end); rsp != nil {
		return rsp, nil
	}
	if !uuidEqual(typ, gattAttrPrimaryServiceUUID) && !uuidEqual(typ, gattAttrSecondaryServiceUUID) {
		return attErrorResp(req[0], start, AttUnsuppGrpType), nil
	}

	groups := s.attrs.ReadByGroupType(start, end, typ)
	if len(groups) == 0 {
		return attErrorResp(req[0], start, AttAttrNotFound), nil
	}

	mtu := int(s.conn.MTU())
	rsp := readByGroupResponse(make([]byte, mtu))
	rsp.SetAttributeOpcode()
	buf := bytes.NewBuffer(rsp.AttributeDataList())
	buf.Reset()

	// Every entry in one response carries the same UUID width; the
	// first length mismatch ends the list, it is not an error.
	dlen := 0
	for _, g := range groups {
		if dlen == 0 {
			dlen = 4 + len(g.v)
			if dlen > 255 {
				dlen = 255
			}
			if dlen > buf.Cap() {
				dlen = buf.Cap()
			}
			rsp.SetLength(byte(dlen))
		} else if 4+len(g.v) != dlen {
			break
		}
		if buf.Len()+dlen > buf.Cap() {
			break
		}
		writeUint16(buf, g.h)
		writeUint16(buf, g.endh)
		buf.Write(g.v[:dlen-4])
	}
	return rsp[:2+buf.Len()], nil
}

func (s *Server) handleReadByType(req []byte) ([]byte, error) {
	if len(req) != 7 && len(req) != 21 {
		return attErrorResp(req[0], 0, AttInvalidPDU), nil
	}
	r := readByTypeRequest(req)
	start, end := r.StartingHandle(), r.EndingHandle()
	typ := r.AttributeType()
	s.log.WithFields(logrus.Fields{"start": start, "end": end, "type": typ.String()}).
		Debug("read by type request")

	if rsp := s.checkRange(req[0], start, end); rsp != nil {
		return rsp, nil
	}
	found := s.attrs.ReadByType(start, end, typ)
	if len(found) == 0 {
		return attErrorResp(req[0], start, AttAttrNotFound), nil
	}

	mtu := int(s.conn.MTU())
	rsp := readByTypeResponse(make([]byte, mtu))
	rsp.SetAttributeOpcode()
	buf := bytes.NewBuffer(rsp.AttributeDataList())
	buf.Reset()

	dlen := 0
	for _, a := range found {
		if e := checkPermissions(permsRead, a, s.conn.SecurityLevel()); e != AttSuccess {
			return attErrorResp(req[0], a.h, e), nil
		}
		if s.willRead != nil {
			if e := s.willRead(a.typ, a.h, a.v, 0); e != AttSuccess {
				return attErrorResp(req[0], a.h, e), nil
			}
		}
		v := a.v
		if dlen == 0 {
			dlen = 2 + len(v)
			if dlen > 255 {
				dlen = 255
			}
			if dlen > buf.Cap() {
				dlen = buf.Cap()
			}
			rsp.SetLength(byte(dlen))
		} else if 2+len(v) != dlen {
			break
		}
		if buf.Len()+dlen > buf.Cap() {
			break
		}
		writeUint16(buf, a.h)
		buf.Write(v[:dlen-2])
	}
	return rsp[:2+buf.Len()], nil
}

func (s *Server) handleFindInfo(req []byte) ([]byte, error) {
	if len(req) != 5 {
		return attErrorResp(req[0], 0, AttInvalidPDU), nil
	}
	r := findInfoRequest(req)
	start, end := r.StartingHandle(), r.EndingHandle()
	s.log.WithFields(logrus.Fields{"start": start, "end": end}).Debug("find information request")

	if rsp := s.checkRange(req[0], start, end); rsp != nil {
		return rsp, nil
	}
	found := s.attrs.FindInformation(start, end)
	if len(found) == 0 {
		return attErrorResp(req[0], start, AttAttrNotFound), nil
	}

	mtu := int(s.conn.MTU())
	rsp := findInfoResponse(make([]byte, mtu))
	rsp.SetAttributeOpcode()
	buf := bytes.NewBuffer(rsp.InformationData())
	buf.Reset()

	// A response is uniformly 16-bit or 128-bit pairs; the first
	// size mismatch ends the list.
	switch found[0].typ.Len() {
	case 2:
		rsp.SetFormat(findInfoFormat16)
	case 16:
		rsp.SetFormat(findInfoFormat128)
	default:
		return nil, errors.Errorf("gatt: attribute 0x%04X has unencodable type length %d",
			found[0].h, found[0].typ.Len())
	}
	for _, a := range found {
		if rsp.Format() == findInfoFormat16 && a.typ.Len() != 2 {
			break
		}
		if rsp.Format() == findInfoFormat128 && a.typ.Len() != 16 {
			break
		}
		if buf.Len()+2+a.typ.Len() > buf.Cap() {
			break
		}
		writeUint16(buf, a.h)
		buf.Write(a.typ)
	}
	return rsp[:2+buf.Len()], nil
}

func (s *Server) handleFindByTypeValue(req []byte) ([]byte, error) {
	if len(req) < 7 {
		return attErrorResp(req[0], 0, AttInvalidPDU), nil
	}
	r := findByTypeValueRequest(req)
	start, end := r.StartingHandle(), r.EndingHandle()
	s.log.WithFields(logrus.Fields{"start": start, "end": end, "type": r.AttributeType()}).
		Debug("find by type value request")

	if rsp := s.checkRange(req[0], start, end); rsp != nil {
		return rsp, nil
	}
	spans := s.attrs.FindByTypeValue(start, end, r.AttributeType(), r.AttributeValue())
	if len(spans) == 0 {
		return attErrorResp(req[0], start, AttAttrNotFound), nil
	}

	mtu := int(s.conn.MTU())
	rsp := findByTypeValueResponse(make([]byte, mtu))
	rsp.SetAttributeOpcode()
	buf := bytes.NewBuffer(rsp.HandleInformationList())
	buf.Reset()
	for _, g := range spans {
		if buf.Len()+4 > buf.Cap() {
			break
		}
		writeUint16(buf, g.start)
		writeUint16(buf, g.end)
	}
	return rsp[:1+buf.Len()], nil
}

func (s *Server) handleRead(req []byte) ([]byte, error) {
	if len(req) != 3 {
		return attErrorResp(req[0], 0, AttInvalidPDU), nil
	}
	r := readRequest(req)
	h := r.AttributeHandle()
	s.log.WithField("handle", h).Debug("read request")

	a, ok := s.attrs.At(h)
	if !ok {
		return attErrorResp(req[0], h, AttInvalidHandle), nil
	}
	if e := checkPermissions(permsRead, a, s.conn.SecurityLevel()); e != AttSuccess {
		return attErrorResp(req[0], h, e), nil
	}
	if s.willRead != nil {
		if e := s.willRead(a.typ, h, a.v, 0); e != AttSuccess {
			return attErrorResp(req[0], h, e), nil
		}
	}

	mtu := int(s.conn.MTU())
	v := a.v
	if len(v) > mtu-1 {
		v = v[:mtu-1]
	}
	rsp := readResponse(make([]byte, 1+len(v)))
	rsp.SetAttributeOpcode()
	copy(rsp.AttributeValue(), v)
	return rsp, nil
}

func (s *Server) handleReadBlob(req []byte) ([]byte, error) {
	if len(req) != 5 {
		return attErrorResp(req[0], 0, AttInvalidPDU), nil
	}
	r := readBlobRequest(req)
	h, offset := r.AttributeHandle(), int(r.ValueOffset())
	s.log.WithFields(logrus.Fields{"handle": h, "offset": offset}).Debug("read blob request")

	a, ok := s.attrs.At(h)
	if !ok {
		return attErrorResp(req[0], h, AttInvalidHandle), nil
	}
	if e := checkPermissions(permsRead, a, s.conn.SecurityLevel()); e != AttSuccess {
		return attErrorResp(req[0], h, e), nil
	}

	mtu := int(s.conn.MTU())
	// A value that fits whole in a Read Response is not "long";
	// that is checked before the offset is.
	if len(a.v) <= mtu-1 {
		return attErrorResp(req[0], h, AttAttrNotLong), nil
	}
	if offset > len(a.v) {
		return attErrorResp(req[0], h, AttInvalidOffset), nil
	}
	if s.willRead != nil {
		if e := s.willRead(a.typ, h, a.v, offset); e != AttSuccess {
			return attErrorResp(req[0], h, e), nil
		}
	}

	v := a.v[offset:]
	if len(v) > mtu-1 {
		v = v[:mtu-1]
	}
	rsp := readBlobResponse(make([]byte, 1+len(v)))
	rsp.SetAttributeOpcode()
	copy(rsp.PartAttributeValue(), v)
	return rsp, nil
}

func (s *Server) handleReadMulti(req []byte) ([]byte, error) {
	if len(req) < 5 || (len(req)-1)%2 != 0 {
		return attErrorResp(req[0], 0, AttInvalidPDU), nil
	}
	r := readMultiRequest(req)
	handles := r.Handles()
	s.log.WithField("handles", handles).Debug("read multiple request")

	// Every handle must pass independently; the first failure
	// aborts the whole request with that handle's error.
	var set []byte
	for _, h := range handles {
		a, ok := s.attrs.At(h)
		if !ok {
			return attErrorResp(req[0], h, AttInvalidHandle), nil
		}
		if e := checkPermissions(permsRead, a, s.conn.SecurityLevel()); e != AttSuccess {
			return attErrorResp(req[0], h, e), nil
		}
		if s.willRead != nil {
			if e := s.willRead(a.typ, h, a.v, 0); e != AttSuccess {
				return attErrorResp(req[0], h, e), nil
			}
		}
		set = append(set, a.v...)
	}

	mtu := int(s.conn.MTU())
	if len(set) > mtu-1 {
		set = set[:mtu-1]
	}
	rsp := readMultiResponse(make([]byte, 1+len(set)))
	rsp.SetAttributeOpcode()
	copy(rsp.SetOfValues(), set)
	return rsp, nil
}

func (s *Server) handleWrite(req []byte) ([]byte, error) {
	rsp, err := s.write(req, false)
	return rsp, err
}

// handleWriteCmd is handleWrite without the response; per the ATT
// spec, commands are fire and forget and errors are dropped.
func (s *Server) handleWriteCmd(req []byte) ([]byte, error) {
	_, err := s.write(req, true)
	return nil, err
}

func (s *Server) write(req []byte, cmd bool) ([]byte, error) {
	if len(req) < 3 {
		return attErrorResp(req[0], 0, AttInvalidPDU), nil
	}
	r := writeRequest(req)
	h := r.AttributeHandle()
	value := r.AttributeValue()
	s.log.WithFields(logrus.Fields{"handle": h, "len": len(value), "command": cmd}).
		Debug("write")

	a, ok := s.attrs.At(h)
	if !ok {
		return attErrorResp(req[0], h, AttInvalidHandle), nil
	}
	if e := checkPermissions(permsWrite, a, s.conn.SecurityLevel()); e != AttSuccess {
		return attErrorResp(req[0], h, e), nil
	}
	if uuidEqual(a.typ, gattAttrClientCharacteristicConfigUUID) && len(value) != 2 {
		return attErrorResp(req[0], h, AttInvalAttrValueLen), nil
	}
	if len(value) > maxAttrValueLen {
		return attErrorResp(req[0], h, AttInvalAttrValueLen), nil
	}
	if s.willWrite != nil {
		if e := s.willWrite(a.typ, h, a.v, value); e != AttSuccess {
			return attErrorResp(req[0], h, e), nil
		}
	}

	s.attrs.Write(h, value)
	if err := s.didWriteAttribute(h); err != nil {
		return nil, err
	}
	return []byte{attOpWriteResp}, nil
}

func (s *Server) handlePrepareWrite(req []byte) ([]byte, error) {
	if len(req) < 5 {
		return attErrorResp(req[0], 0, AttInvalidPDU), nil
	}
	r := prepareWriteRequest(req)
	h := r.AttributeHandle()
	s.log.WithFields(logrus.Fields{"handle": h, "offset": r.ValueOffset()}).
		Debug("prepare write request")

	a, ok := s.attrs.At(h)
	if !ok {
		return attErrorResp(req[0], h, AttInvalidHandle), nil
	}
	// Permission and security are checked now; offset and length
	// errors are deferred to Execute Write.
	if e := checkPermissions(permsWrite, a, s.conn.SecurityLevel()); e != AttSuccess {
		return attErrorResp(req[0], h, e), nil
	}
	if len(s.prepared) >= s.maxPrepared {
		return attErrorResp(req[0], h, AttPrepQueueFull), nil
	}

	s.prepared = append(s.prepared, preparedWrite{
		handle: h,
		offset: r.ValueOffset(),
		value:  append([]byte(nil), r.PartAttributeValue()...),
	})

	// The response echoes the request.
	rsp := prepareWriteResponse(append([]byte(nil), req...))
	rsp[0] = attOpPrepWriteResp
	return rsp, nil
}

func (s *Server) handleExecuteWrite(req []byte) ([]byte, error) {
	if len(req) != 2 {
		return attErrorResp(req[0], 0, AttInvalidPDU), nil
	}
	r := executeWriteRequest(req)
	queue := s.prepared
	s.prepared = nil // the queue empties whatever the outcome
	s.log.WithFields(logrus.Fields{"flags": r.Flags(), "queued": len(queue)}).
		Debug("execute write request")

	switch r.Flags() {
	case execWriteCancel:
		return []byte{attOpExecWriteResp}, nil
	case execWriteCommit:
	default:
		return attErrorResp(req[0], 0, AttInvalidPDU), nil
	}

	// Assemble per handle in submission order, validating the whole
	// transaction before applying any of it.
	var order []uint16
	assembled := make(map[uint16][]byte)
	for _, p := range queue {
		v, seen := assembled[p.handle]
		if !seen {
			order = append(order, p.handle)
		}
		if int(p.offset) != len(v) {
			return attErrorResp(req[0], p.handle, AttInvalidOffset), nil
		}
		v = append(v, p.value...)
		if len(v) > maxAttrValueLen {
			return attErrorResp(req[0], p.handle, AttInvalAttrValueLen), nil
		}
		assembled[p.handle] = v
	}
	for _, h := range order {
		a, ok := s.attrs.At(h)
		if !ok {
			return nil, errors.Errorf("gatt: prepared write for vanished handle 0x%04X", h)
		}
		if s.willWrite != nil {
			if e := s.willWrite(a.typ, h, a.v, assembled[h]); e != AttSuccess {
				return attErrorResp(req[0], h, e), nil
			}
		}
	}

	// All validated; commit everything, then fire the side effects.
	for _, h := range order {
		s.attrs.Write(h, assembled[h])
	}
	for _, h := range order {
		if err := s.didWriteAttribute(h); err != nil {
			return nil, err
		}
	}
	return []byte{attOpExecWriteResp}, nil
}

// didWriteAttribute runs the post-write pipeline for handle h: the
// DidWrite hook first, then, if h is a characteristic value with a
// subscribed client configuration, a notification or indication.
func (s *Server) didWriteAttribute(h uint16) error {
	a, ok := s.attrs.At(h)
	if !ok {
		return errors.Errorf("gatt: didWrite for unknown handle 0x%04X", h)
	}
	if s.didWrite != nil {
		s.didWrite(a.typ, h, a.v)
	}

	c := s.characteristicByValueHandle(h)
	if c == nil || c.cccdHandle == 0 {
		return nil
	}
	cccd, ok := s.attrs.At(c.cccdHandle)
	if !ok || len(cccd.v) < 2 {
		return nil
	}
	ccc := uint16(cccd.v[0]) | uint16(cccd.v[1])<<8

	if ccc&gattCCCNotifyFlag != 0 {
		if err := s.notify(attOpHandleNotify, h, a.v); err != nil {
			return err
		}
	}
	if ccc&gattCCCIndicateFlag != 0 {
		pdu := s.handleValuePDU(attOpHandleInd, h, a.v)
		err := s.conn.sendIndication(pdu, func() {
			s.log.WithField("handle", h).Debug("indication confirmed")
		})
		if err == ErrIndicationPending {
			// One indication per bearer; this one is dropped.
			s.log.WithField("handle", h).Warn("indication dropped: confirmation outstanding")
			return nil
		}
		return err
	}
	return nil
}

// notify sends an unacknowledged Handle Value Notification.
func (s *Server) notify(op byte, h uint16, value []byte) error {
	return s.conn.send(s.handleValuePDU(op, h, value))
}

// handleValuePDU builds a notification or indication PDU, truncating
// the value to the 3-byte header's remainder of the MTU.
func (s *Server) handleValuePDU(op byte, h uint16, value []byte) []byte {
	mtu := int(s.conn.MTU())
	if len(value) > mtu-3 {
		value = value[:mtu-3]
	}
	pdu := handleValueNotification(make([]byte, 3+len(value)))
	pdu.SetAttributeOpcode(op)
	pdu.SetAttributeHandle(h)
	copy(pdu.AttributeValue(), value)
	return pdu
}

// characteristicByValueHandle resolves a characteristic value handle
// to its Characteristic, or nil.
func (s *Server) characteristicByValueHandle(h uint16) *Characteristic {
	for _, svc := range s.services {
		for _, c := range svc.chars {
			if c.valueHandle == h {
				return c
			}
		}
	}
	return nil
}

// WriteValue updates the attribute at handle h from the owning
// application and runs the same notify/indicate pipeline as a
// client-initiated write.
func (s *Server) WriteValue(h uint16, value []byte) error {
	if _, ok := s.attrs.At(h); !ok {
		return errors.Errorf("gatt: no attribute with handle 0x%04X", h)
	}
	s.attrs.Write(h, value)
	return s.didWriteAttribute(h)
}

// WriteCharacteristicValue updates the value of the first
// characteristic with UUID u, by handle lookup through the schema.
func (s *Server) WriteCharacteristicValue(u UUID, value []byte) error {
	for _, svc := range s.services {
		for _, c := range svc.chars {
			if uuidEqual(c.uuid, u) {
				return s.WriteValue(c.valueHandle, value)
			}
		}
	}
	return errors.Errorf("gatt: no characteristic with uuid %s", u)
}

// writeUint16 appends v little-endian to buf.
func writeUint16(buf *bytes.Buffer, v uint16) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
}
