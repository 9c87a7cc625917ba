package gatt

// ATT PDU opcodes, from the Bluetooth Core Specification Vol 3, Part F, 3.4.8.
const (
	attOpError           = 0x01
	attOpMtuReq          = 0x02
	attOpMtuResp         = 0x03
	attOpFindInfoReq     = 0x04
	attOpFindInfoResp    = 0x05
	attOpFindByTypeReq   = 0x06
	attOpFindByTypeResp  = 0x07
	attOpReadByTypeReq   = 0x08
	attOpReadByTypeResp  = 0x09
	attOpReadReq         = 0x0a
	attOpReadResp        = 0x0b
	attOpReadBlobReq     = 0x0c
	attOpReadBlobResp    = 0x0d
	attOpReadMultiReq    = 0x0e
	attOpReadMultiResp   = 0x0f
	attOpReadByGroupReq  = 0x10
	attOpReadByGroupResp = 0x11
	attOpWriteReq        = 0x12
	attOpWriteResp       = 0x13
	attOpPrepWriteReq    = 0x16
	attOpPrepWriteResp   = 0x17
	attOpExecWriteReq    = 0x18
	attOpExecWriteResp   = 0x19
	attOpHandleNotify    = 0x1b
	attOpHandleInd       = 0x1d
	attOpHandleCnf       = 0x1e
	attOpWriteCmd        = 0x52
	attOpSignedWriteCmd  = 0xd2
)

// attOpCommandFlag marks command opcodes; per the ATT spec,
// commands never produce a response, not even an error.
const attOpCommandFlag = 0x40

// An AttError is an ATT Error Response code. Values in the
// application range (0x80-0x9f) pass through the server unchanged
// when returned from a WillRead/WillWrite hook.
type AttError byte

const (
	AttSuccess           AttError = 0x00
	AttInvalidHandle     AttError = 0x01
	AttReadNotPerm       AttError = 0x02
	AttWriteNotPerm      AttError = 0x03
	AttInvalidPDU        AttError = 0x04
	AttAuthentication    AttError = 0x05
	AttReqNotSupp        AttError = 0x06
	AttInvalidOffset     AttError = 0x07
	AttAuthorization     AttError = 0x08
	AttPrepQueueFull     AttError = 0x09
	AttAttrNotFound      AttError = 0x0a
	AttAttrNotLong       AttError = 0x0b
	AttInsuffEncrKeySize AttError = 0x0c
	AttInvalAttrValueLen AttError = 0x0d
	AttUnlikely          AttError = 0x0e
	AttInsuffEnc         AttError = 0x0f
	AttUnsuppGrpType     AttError = 0x10
	AttInsuffResources   AttError = 0x11
)

var attErrName = map[AttError]string{
	AttSuccess:           "success",
	AttInvalidHandle:     "invalid handle",
	AttReadNotPerm:       "read not permitted",
	AttWriteNotPerm:      "write not permitted",
	AttInvalidPDU:        "invalid PDU",
	AttAuthentication:    "insufficient authentication",
	AttReqNotSupp:        "request not supported",
	AttInvalidOffset:     "invalid offset",
	AttAuthorization:     "insufficient authorization",
	AttPrepQueueFull:     "prepare queue full",
	AttAttrNotFound:      "attribute not found",
	AttAttrNotLong:       "attribute not long",
	AttInsuffEncrKeySize: "insufficient encryption key size",
	AttInvalAttrValueLen: "invalid attribute value length",
	AttUnlikely:          "unlikely error",
	AttInsuffEnc:         "insufficient encryption",
	AttUnsuppGrpType:     "unsupported group type",
	AttInsuffResources:   "insufficient resources",
}

func (e AttError) Error() string {
	if s, ok := attErrName[e]; ok {
		return s
	}
	if e >= 0x80 && e <= 0x9f {
		return "application error"
	}
	return "reserved error code"
}

// attErrorResp builds an Error Response PDU for request opcode op,
// the handle in error h, and error code e.
func attErrorResp(op byte, h uint16, e AttError) []byte {
	r := errorResponse(make([]byte, 5))
	r.SetAttributeOpcode()
	r.SetRequestOpcodeInError(op)
	r.SetAttributeInError(h)
	r.SetErrorCode(byte(e))
	return r
}
