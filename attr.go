package gatt

import "bytes"

// Permission bits control ATT access to a single attribute.
// Do not re-order; read/write pairs are checked together.
type Permission uint

const (
	AttrRead Permission = 1 << iota
	AttrWrite
	AttrReadAuthn    // reading requires an authenticated (high security) link
	AttrWriteAuthn   // writing requires an authenticated (high security) link
	AttrReadEncrypt  // reading requires an encrypted (medium security) link
	AttrWriteEncrypt // writing requires an encrypted (medium security) link
)

// attr is one entry in the attribute table. endh is nonzero only on
// service declaration attributes, where it marks the last handle of
// the group.
type attr struct {
	h     uint16
	endh  uint16
	typ   UUID
	perms Permission
	v     []byte
}

// A groupSpan is the handle range of one service group.
type groupSpan struct {
	start uint16
	end   uint16
}

// An attrRange is a contiguous range of attributes, base being the
// handle of the first. Handles are unique, ascending, and never 0.
type attrRange struct {
	aa   []attr
	base uint16
}

const (
	tooSmall = -1
	tooLarge = -2
)

// idx returns the index into aa corresponding to handle h.
// If h is too small, idx returns tooSmall (-1).
// If h is too large, idx returns tooLarge (-2).
func (r *attrRange) idx(h int) int {
	if h < int(r.base) {
		return tooSmall
	}
	if h >= int(r.base)+len(r.aa) {
		return tooLarge
	}
	return h - int(r.base)
}

// At returns the attribute with handle h.
func (r *attrRange) At(h uint16) (a attr, ok bool) {
	i := r.idx(int(h))
	if i < 0 {
		return attr{}, false
	}
	return r.aa[i], true
}

// Subrange returns attributes in range [start, end]; it may return an
// empty slice. Subrange does not panic for out-of-range start or end.
// A range ending at 0xFFFF is treated as half-open, [start, end), so
// that walking past the maximum 16-bit handle never wraps.
func (r *attrRange) Subrange(start, end uint16) []attr {
	startidx := r.idx(int(start))
	switch startidx {
	case tooSmall:
		startidx = 0
	case tooLarge:
		return []attr{}
	}

	e := int(end) + 1 // [start, end] includes its upper bound!
	if end == 0xFFFF {
		e = int(end)
	}
	endidx := r.idx(e)
	switch endidx {
	case tooSmall:
		return []attr{}
	case tooLarge:
		endidx = len(r.aa)
	}
	if startidx > endidx {
		return []attr{}
	}
	return r.aa[startidx:endidx]
}

// ReadByGroupType returns the service groups of type typ whose handle
// span is fully contained in [start, end], in ascending handle order.
func (r *attrRange) ReadByGroupType(start, end uint16, typ UUID) []attr {
	var groups []attr
	for _, a := range r.Subrange(start, end) {
		if a.endh == 0 || !uuidEqual(a.typ, typ) {
			continue
		}
		if a.endh > end {
			break
		}
		groups = append(groups, a)
	}
	return groups
}

// ReadByType returns the attributes of type typ in [start, end],
// in ascending handle order.
func (r *attrRange) ReadByType(start, end uint16, typ UUID) []attr {
	var found []attr
	for _, a := range r.Subrange(start, end) {
		if uuidEqual(a.typ, typ) {
			found = append(found, a)
		}
	}
	return found
}

// FindInformation returns every attribute in [start, end],
// in ascending handle order, irrespective of type.
func (r *attrRange) FindInformation(start, end uint16) []attr {
	return r.Subrange(start, end)
}

// FindByTypeValue returns the enclosing group span of every attribute
// in [start, end] whose 16-bit type is typ and whose value matches
// value byte for byte.
func (r *attrRange) FindByTypeValue(start, end uint16, typ uint16, value []byte) []groupSpan {
	t := UUID16(typ)
	var spans []groupSpan
	for _, a := range r.Subrange(start, end) {
		if !uuidEqual(a.typ, t) || !bytes.Equal(a.v, value) {
			continue
		}
		if g, _, ok := r.AttributeGroup(a.h); ok {
			spans = append(spans, groupSpan{start: g.h, end: g.endh})
		}
	}
	return spans
}

// AttributeGroup resolves handle h to its attribute and the service
// declaration attribute of its enclosing group. ok is false only if h
// is absent from the table; callers are expected to have validated
// existence already, so !ok is an invariant violation on their part.
func (r *attrRange) AttributeGroup(h uint16) (group, a attr, ok bool) {
	a, ok = r.At(h)
	if !ok {
		return attr{}, attr{}, false
	}
	for _, g := range r.aa {
		if g.endh == 0 {
			continue
		}
		if g.h <= h && h <= g.endh {
			return g, a, true
		}
	}
	return attr{}, attr{}, false
}

// Write replaces the value of the attribute with handle h in place.
// It performs no permission or bounds validation; that is the
// caller's responsibility.
func (r *attrRange) Write(h uint16, value []byte) bool {
	i := r.idx(int(h))
	if i < 0 {
		return false
	}
	r.aa[i].v = append([]byte(nil), value...)
	return true
}
