package gatt

// Characteristic property flags, as they appear in the characteristic
// declaration attribute. Do not re-order; they are organized to match
// the BLE spec.
const (
	CharBroadcast   = 1 << iota // the characteristic may be broadcast
	CharRead                    // the characteristic may be read
	CharWriteNR                 // the characteristic may be written to, with no reply
	CharWrite                   // the characteristic may be written to, with a reply
	CharNotify                  // the characteristic supports notifications
	CharIndicate                // the characteristic supports indications
	CharSignedWrite             // the characteristic supports signed writes
	CharExtended                // the characteristic has extended properties
)

// A Service is a BLE service: a group of characteristics occupying a
// contiguous handle range. Calls to AddCharacteristic must occur
// before the service is compiled into an attribute table.
type Service struct {
	uuid      UUID
	secondary bool
	chars     []*Characteristic
}

// NewService creates a primary service.
func NewService(u UUID) *Service {
	return &Service{uuid: u}
}

// NewSecondaryService creates a secondary service.
func NewSecondaryService(u UUID) *Service {
	return &Service{uuid: u, secondary: true}
}

// UUID returns the service's UUID.
func (s *Service) UUID() UUID { return s.uuid }

// AddCharacteristic adds a characteristic to a service.
// AddCharacteristic panics if the service already contains
// another characteristic with the same UUID.
func (s *Service) AddCharacteristic(u UUID) *Characteristic {
	for _, char := range s.chars {
		if uuidEqual(char.uuid, u) {
			panic("service already contains a characteristic with uuid " + u.String())
		}
	}
	char := &Characteristic{service: s, uuid: u, perms: AttrRead}
	s.chars = append(s.chars, char)
	return char
}

// A Characteristic is a BLE characteristic.
type Characteristic struct {
	service *Service
	uuid    UUID
	props   uint
	perms   Permission
	value   []byte
	descs   []*Descriptor

	handle      uint16 // declaration handle, set when the table is generated
	valueHandle uint16
	cccdHandle  uint16 // 0 if the characteristic has no CCCD
}

// UUID returns the characteristic's UUID.
func (c *Characteristic) UUID() UUID { return c.uuid }

// SetProperties sets the characteristic's declared property flags
// (Char* constants).
func (c *Characteristic) SetProperties(props uint) *Characteristic {
	c.props = props
	return c
}

// SetPermissions sets the ATT access permissions of the
// characteristic's value attribute.
func (c *Characteristic) SetPermissions(perms Permission) *Characteristic {
	c.perms = perms
	return c
}

// SetValue sets the characteristic's initial value.
func (c *Characteristic) SetValue(v []byte) *Characteristic {
	c.value = append([]byte(nil), v...)
	return c
}

// AddDescriptor adds a descriptor to the characteristic.
// AddDescriptor panics on an attempt to add a Client Characteristic
// Configuration descriptor by hand; one is generated automatically
// for notifying or indicating characteristics.
func (c *Characteristic) AddDescriptor(u UUID) *Descriptor {
	if uuidEqual(u, gattAttrClientCharacteristicConfigUUID) {
		panic("the CCC descriptor is generated automatically")
	}
	d := &Descriptor{char: c, uuid: u, perms: AttrRead}
	c.descs = append(c.descs, d)
	return d
}

// A Descriptor is a BLE descriptor.
type Descriptor struct {
	char  *Characteristic
	uuid  UUID
	perms Permission
	value []byte
}

// UUID returns the descriptor's UUID.
func (d *Descriptor) UUID() UUID { return d.uuid }

// SetPermissions sets the descriptor's ATT access permissions.
func (d *Descriptor) SetPermissions(perms Permission) *Descriptor {
	d.perms = perms
	return d
}

// SetValue sets the descriptor's value.
func (d *Descriptor) SetValue(v []byte) *Descriptor {
	d.value = append([]byte(nil), v...)
	return d
}

// generateAttributes compiles services into an attribute table.
// BLE handles start at base (conventionally 1) and ascend without gaps.
func generateAttributes(svcs []*Service, base uint16) *attrRange {
	h := base
	var aa []attr
	for _, svc := range svcs {
		var sa []attr
		h, sa = svc.generateAttributes(h)
		aa = append(aa, sa...)
	}
	return &attrRange{aa: aa, base: base}
}

func (s *Service) generateAttributes(h uint16) (uint16, []attr) {
	typ := gattAttrPrimaryServiceUUID
	if s.secondary {
		typ = gattAttrSecondaryServiceUUID
	}
	decl := attr{
		h:     h,
		typ:   typ,
		perms: AttrRead,
		v:     append([]byte(nil), s.uuid...),
		// endh set below
	}
	aa := []attr{decl}
	h++

	for _, c := range s.chars {
		var ca []attr
		h, ca = c.generateAttributes(h)
		aa = append(aa, ca...)
	}

	aa[0].endh = h - 1
	return h, aa
}

func (c *Characteristic) generateAttributes(h uint16) (uint16, []attr) {
	vh := h + 1
	decl := attr{
		h:     h,
		typ:   gattAttrCharacteristicUUID,
		perms: AttrRead,
		v:     append([]byte{byte(c.props), byte(vh), byte(vh >> 8)}, c.uuid...),
	}
	val := attr{
		h:     vh,
		typ:   c.uuid,
		perms: c.perms,
		v:     append([]byte(nil), c.value...),
	}
	c.handle = h
	c.valueHandle = vh
	aa := []attr{decl, val}
	h += 2

	if c.props&(CharNotify|CharIndicate) != 0 {
		aa = append(aa, attr{
			h:     h,
			typ:   gattAttrClientCharacteristicConfigUUID,
			perms: AttrRead | AttrWrite,
			v:     []byte{0x00, 0x00},
		})
		c.cccdHandle = h
		h++
	}

	for _, d := range c.descs {
		aa = append(aa, attr{
			h:     h,
			typ:   d.uuid,
			perms: d.perms,
			v:     append([]byte(nil), d.value...),
		})
		h++
	}
	return h, aa
}
