package gatt

import "encoding/binary"

// Typed accessors over raw ATT PDUs. Each type is a []byte carrying the
// wire form; accessors read and write fields in place, little-endian.
// Field offsets follow the Bluetooth Core Specification Vol 3, Part F, 3.4.

// errorResponse implements Error Response (0x01) [Vol 3, Part F, 3.4.1.1].
type errorResponse []byte

func (r errorResponse) AttributeOpcode() byte          { return r[0] }
func (r errorResponse) SetAttributeOpcode()            { r[0] = attOpError }
func (r errorResponse) RequestOpcodeInError() byte     { return r[1] }
func (r errorResponse) SetRequestOpcodeInError(v byte) { r[1] = v }
func (r errorResponse) AttributeInError() uint16       { return binary.LittleEndian.Uint16(r[2:]) }
func (r errorResponse) SetAttributeInError(v uint16)   { binary.LittleEndian.PutUint16(r[2:], v) }
func (r errorResponse) ErrorCode() byte                { return r[4] }
func (r errorResponse) SetErrorCode(v byte)            { r[4] = v }

// exchangeMTURequest implements Exchange MTU Request (0x02) [Vol 3, Part F, 3.4.2.1].
type exchangeMTURequest []byte

func (r exchangeMTURequest) AttributeOpcode() byte   { return r[0] }
func (r exchangeMTURequest) SetAttributeOpcode()     { r[0] = attOpMtuReq }
func (r exchangeMTURequest) ClientRxMTU() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r exchangeMTURequest) SetClientRxMTU(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }

// exchangeMTUResponse implements Exchange MTU Response (0x03) [Vol 3, Part F, 3.4.2.2].
type exchangeMTUResponse []byte

func (r exchangeMTUResponse) AttributeOpcode() byte   { return r[0] }
func (r exchangeMTUResponse) SetAttributeOpcode()     { r[0] = attOpMtuResp }
func (r exchangeMTUResponse) ServerRxMTU() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r exchangeMTUResponse) SetServerRxMTU(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }

// findInfoRequest implements Find Information Request (0x04) [Vol 3, Part F, 3.4.3.1].
type findInfoRequest []byte

func (r findInfoRequest) AttributeOpcode() byte      { return r[0] }
func (r findInfoRequest) SetAttributeOpcode()        { r[0] = attOpFindInfoReq }
func (r findInfoRequest) StartingHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r findInfoRequest) SetStartingHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r findInfoRequest) EndingHandle() uint16       { return binary.LittleEndian.Uint16(r[3:]) }
func (r findInfoRequest) SetEndingHandle(v uint16)   { binary.LittleEndian.PutUint16(r[3:], v) }

// findInfoResponse implements Find Information Response (0x05) [Vol 3, Part F, 3.4.3.2].
type findInfoResponse []byte

const (
	findInfoFormat16  = 0x01
	findInfoFormat128 = 0x02
)

func (r findInfoResponse) AttributeOpcode() byte   { return r[0] }
func (r findInfoResponse) SetAttributeOpcode()     { r[0] = attOpFindInfoResp }
func (r findInfoResponse) Format() byte            { return r[1] }
func (r findInfoResponse) SetFormat(v byte)        { r[1] = v }
func (r findInfoResponse) InformationData() []byte { return r[2:] }

// findByTypeValueRequest implements Find By Type Value Request (0x06) [Vol 3, Part F, 3.4.3.3].
type findByTypeValueRequest []byte

func (r findByTypeValueRequest) AttributeOpcode() byte      { return r[0] }
func (r findByTypeValueRequest) SetAttributeOpcode()        { r[0] = attOpFindByTypeReq }
func (r findByTypeValueRequest) StartingHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r findByTypeValueRequest) SetStartingHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r findByTypeValueRequest) EndingHandle() uint16       { return binary.LittleEndian.Uint16(r[3:]) }
func (r findByTypeValueRequest) SetEndingHandle(v uint16)   { binary.LittleEndian.PutUint16(r[3:], v) }
func (r findByTypeValueRequest) AttributeType() uint16      { return binary.LittleEndian.Uint16(r[5:]) }
func (r findByTypeValueRequest) SetAttributeType(v uint16)  { binary.LittleEndian.PutUint16(r[5:], v) }
func (r findByTypeValueRequest) AttributeValue() []byte     { return r[7:] }

// findByTypeValueResponse implements Find By Type Value Response (0x07) [Vol 3, Part F, 3.4.3.4].
type findByTypeValueResponse []byte

func (r findByTypeValueResponse) AttributeOpcode() byte         { return r[0] }
func (r findByTypeValueResponse) SetAttributeOpcode()           { r[0] = attOpFindByTypeResp }
func (r findByTypeValueResponse) HandleInformationList() []byte { return r[1:] }

// readByTypeRequest implements Read By Type Request (0x08) [Vol 3, Part F, 3.4.4.1].
type readByTypeRequest []byte

func (r readByTypeRequest) AttributeOpcode() byte      { return r[0] }
func (r readByTypeRequest) SetAttributeOpcode()        { r[0] = attOpReadByTypeReq }
func (r readByTypeRequest) StartingHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r readByTypeRequest) SetStartingHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r readByTypeRequest) EndingHandle() uint16       { return binary.LittleEndian.Uint16(r[3:]) }
func (r readByTypeRequest) SetEndingHandle(v uint16)   { binary.LittleEndian.PutUint16(r[3:], v) }
func (r readByTypeRequest) AttributeType() UUID        { return UUID(r[5:]) }

// readByTypeResponse implements Read By Type Response (0x09) [Vol 3, Part F, 3.4.4.2].
type readByTypeResponse []byte

func (r readByTypeResponse) AttributeOpcode() byte     { return r[0] }
func (r readByTypeResponse) SetAttributeOpcode()       { r[0] = attOpReadByTypeResp }
func (r readByTypeResponse) Length() byte              { return r[1] }
func (r readByTypeResponse) SetLength(v byte)          { r[1] = v }
func (r readByTypeResponse) AttributeDataList() []byte { return r[2:] }

// readRequest implements Read Request (0x0a) [Vol 3, Part F, 3.4.4.3].
type readRequest []byte

func (r readRequest) AttributeOpcode() byte       { return r[0] }
func (r readRequest) SetAttributeOpcode()         { r[0] = attOpReadReq }
func (r readRequest) AttributeHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r readRequest) SetAttributeHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }

// readResponse implements Read Response (0x0b) [Vol 3, Part F, 3.4.4.4].
type readResponse []byte

func (r readResponse) AttributeOpcode() byte  { return r[0] }
func (r readResponse) SetAttributeOpcode()    { r[0] = attOpReadResp }
func (r readResponse) AttributeValue() []byte { return r[1:] }

// readBlobRequest implements Read Blob Request (0x0c) [Vol 3, Part F, 3.4.4.5].
type readBlobRequest []byte

func (r readBlobRequest) AttributeOpcode() byte       { return r[0] }
func (r readBlobRequest) SetAttributeOpcode()         { r[0] = attOpReadBlobReq }
func (r readBlobRequest) AttributeHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r readBlobRequest) SetAttributeHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r readBlobRequest) ValueOffset() uint16         { return binary.LittleEndian.Uint16(r[3:]) }
func (r readBlobRequest) SetValueOffset(v uint16)     { binary.LittleEndian.PutUint16(r[3:], v) }

// readBlobResponse implements Read Blob Response (0x0d) [Vol 3, Part F, 3.4.4.6].
type readBlobResponse []byte

func (r readBlobResponse) AttributeOpcode() byte      { return r[0] }
func (r readBlobResponse) SetAttributeOpcode()        { r[0] = attOpReadBlobResp }
func (r readBlobResponse) PartAttributeValue() []byte { return r[1:] }

// readMultiRequest implements Read Multiple Request (0x0e) [Vol 3, Part F, 3.4.4.7].
type readMultiRequest []byte

func (r readMultiRequest) AttributeOpcode() byte { return r[0] }
func (r readMultiRequest) SetAttributeOpcode()   { r[0] = attOpReadMultiReq }

// Handles returns the set of handles in request order.
func (r readMultiRequest) Handles() []uint16 {
	hh := make([]uint16, 0, (len(r)-1)/2)
	for i := 1; i+1 < len(r); i += 2 {
		hh = append(hh, binary.LittleEndian.Uint16(r[i:]))
	}
	return hh
}

// readMultiResponse implements Read Multiple Response (0x0f) [Vol 3, Part F, 3.4.4.8].
type readMultiResponse []byte

func (r readMultiResponse) AttributeOpcode() byte { return r[0] }
func (r readMultiResponse) SetAttributeOpcode()   { r[0] = attOpReadMultiResp }
func (r readMultiResponse) SetOfValues() []byte   { return r[1:] }

// readByGroupRequest implements Read By Group Type Request (0x10) [Vol 3, Part F, 3.4.4.9].
type readByGroupRequest []byte

func (r readByGroupRequest) AttributeOpcode() byte      { return r[0] }
func (r readByGroupRequest) SetAttributeOpcode()        { r[0] = attOpReadByGroupReq }
func (r readByGroupRequest) StartingHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r readByGroupRequest) SetStartingHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r readByGroupRequest) EndingHandle() uint16       { return binary.LittleEndian.Uint16(r[3:]) }
func (r readByGroupRequest) SetEndingHandle(v uint16)   { binary.LittleEndian.PutUint16(r[3:], v) }
func (r readByGroupRequest) AttributeGroupType() UUID   { return UUID(r[5:]) }

// readByGroupResponse implements Read By Group Type Response (0x11) [Vol 3, Part F, 3.4.4.10].
type readByGroupResponse []byte

func (r readByGroupResponse) AttributeOpcode() byte     { return r[0] }
func (r readByGroupResponse) SetAttributeOpcode()       { r[0] = attOpReadByGroupResp }
func (r readByGroupResponse) Length() byte              { return r[1] }
func (r readByGroupResponse) SetLength(v byte)          { r[1] = v }
func (r readByGroupResponse) AttributeDataList() []byte { return r[2:] }

// writeRequest implements Write Request (0x12) and Write Command (0x52)
// [Vol 3, Part F, 3.4.5.1, 3.4.5.3]; the two share a layout.
type writeRequest []byte

func (r writeRequest) AttributeOpcode() byte       { return r[0] }
func (r writeRequest) SetAttributeOpcode()         { r[0] = attOpWriteReq }
func (r writeRequest) AttributeHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r writeRequest) SetAttributeHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r writeRequest) AttributeValue() []byte      { return r[3:] }

// prepareWriteRequest implements Prepare Write Request (0x16) [Vol 3, Part F, 3.4.6.1].
type prepareWriteRequest []byte

func (r prepareWriteRequest) AttributeOpcode() byte       { return r[0] }
func (r prepareWriteRequest) SetAttributeOpcode()         { r[0] = attOpPrepWriteReq }
func (r prepareWriteRequest) AttributeHandle() uint16     { return binary.LittleEndian.Uint16(r[1:]) }
func (r prepareWriteRequest) SetAttributeHandle(v uint16) { binary.LittleEndian.PutUint16(r[1:], v) }
func (r prepareWriteRequest) ValueOffset() uint16         { return binary.LittleEndian.Uint16(r[3:]) }
func (r prepareWriteRequest) SetValueOffset(v uint16)     { binary.LittleEndian.PutUint16(r[3:], v) }
func (r prepareWriteRequest) PartAttributeValue() []byte  { return r[5:] }

// prepareWriteResponse implements Prepare Write Response (0x17) [Vol 3, Part F, 3.4.6.2].
// The response echoes the request verbatim, so it reuses the request layout.
type prepareWriteResponse = prepareWriteRequest

// executeWriteRequest implements Execute Write Request (0x18) [Vol 3, Part F, 3.4.6.3].
type executeWriteRequest []byte

const (
	execWriteCancel = 0x00
	execWriteCommit = 0x01
)

func (r executeWriteRequest) AttributeOpcode() byte { return r[0] }
func (r executeWriteRequest) SetAttributeOpcode()   { r[0] = attOpExecWriteReq }
func (r executeWriteRequest) Flags() byte           { return r[1] }
func (r executeWriteRequest) SetFlags(v byte)       { r[1] = v }

// handleValueNotification implements Handle Value Notification (0x1b)
// and Handle Value Indication (0x1d) [Vol 3, Part F, 3.4.7.1, 3.4.7.2];
// the two share a layout and differ only in opcode.
type handleValueNotification []byte

func (r handleValueNotification) AttributeOpcode() byte      { return r[0] }
func (r handleValueNotification) SetAttributeOpcode(op byte) { r[0] = op }
func (r handleValueNotification) AttributeHandle() uint16    { return binary.LittleEndian.Uint16(r[1:]) }
func (r handleValueNotification) SetAttributeHandle(v uint16) {
	binary.LittleEndian.PutUint16(r[1:], v)
}
func (r handleValueNotification) AttributeValue() []byte { return r[3:] }
