package gatt

// This file includes constants from the BLE spec.

var (
	gattAttrPrimaryServiceUUID   = UUID16(0x2800)
	gattAttrSecondaryServiceUUID = UUID16(0x2801)
	gattAttrIncludeUUID          = UUID16(0x2802)
	gattAttrCharacteristicUUID   = UUID16(0x2803)

	gattAttrClientCharacteristicConfigUUID = UUID16(0x2902)
	gattAttrServerCharacteristicConfigUUID = UUID16(0x2903)
)

// Client Characteristic Configuration bits.
const (
	gattCCCNotifyFlag   = 0x0001
	gattCCCIndicateFlag = 0x0002
)

// ATT MTU bounds. A bearer starts at the default and may renegotiate
// up to the configured maximum via Exchange MTU.
const (
	DefaultMTU = 23
	MaxMTU     = 517
)
