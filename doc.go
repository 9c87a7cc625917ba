// Package gatt implements the server side of the Bluetooth Attribute
// Protocol (ATT) and the Generic Attribute Profile (GATT) built on it.
//
// The package is a pure protocol engine: it speaks ATT over any
// io.ReadWriteCloser that delivers one protocol data unit per Read and
// accepts one per Write, the framing an L2CAP channel in basic mode
// provides. It contains no HCI, radio, or operating system specific
// code; pair it with whatever transport produces such a channel.
//
// # USAGE
//
// A server is built from services and characteristics, compiled into
// an attribute table, and then bound to a connection:
//
//	srv := gatt.NewServer(gatt.MTU(185))
//
//	svc := srv.AddService(gatt.UUID16(0x180F))
//	svc.AddCharacteristic(gatt.UUID16(0x2A19)).
//	    SetProperties(gatt.CharRead | gatt.CharNotify).
//	    SetPermissions(gatt.AttrRead).
//	    SetValue([]byte{100})
//
//	log.Fatal(srv.Serve(conn))
//
// Serve handles MTU exchange, service and characteristic discovery,
// reads, writes, queued (prepared) writes, and client subscription
// state. Notifications and indications fire automatically when a
// subscribed characteristic's value changes, whether the change came
// from the client or from the owning application via WriteValue or
// WriteCharacteristicValue.
//
// Access control is expressed per attribute with Permission bits.
// Operations requiring authentication or encryption are refused with
// the corresponding ATT error until the transport reports a
// sufficient SecurityLevel.
//
// The WillRead, WillWrite, and DidWrite options hook application
// logic into the request pipeline: vetoing reads and writes with
// ATT application error codes, and observing committed writes.
package gatt
