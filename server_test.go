package gatt

import (
	"encoding/hex"
	"io"
	"sync"
	"testing"
	"time"
)

// testShim is an in-memory ReadWriteCloser standing in for an L2CAP
// channel: one PDU per Read, one PDU per Write. It reports a
// test-controlled link security level.
type testShim struct {
	readc  chan []byte
	writec chan []byte
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	sec SecurityLevel
}

func newTestShim() *testShim {
	return &testShim{
		readc:  make(chan []byte),
		writec: make(chan []byte, 8),
		done:   make(chan struct{}),
	}
}

func (sh *testShim) Read(b []byte) (int, error) {
	select {
	case p := <-sh.readc:
		return copy(b, p), nil
	case <-sh.done:
		return 0, io.EOF
	}
}

func (sh *testShim) Write(b []byte) (int, error) {
	p := append([]byte(nil), b...)
	select {
	case sh.writec <- p:
		return len(b), nil
	case <-sh.done:
		return 0, io.ErrClosedPipe
	}
}

func (sh *testShim) Close() error {
	sh.once.Do(func() { close(sh.done) })
	return nil
}

func (sh *testShim) SecurityLevel() SecurityLevel {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.sec
}

func (sh *testShim) setSecurity(s SecurityLevel) {
	sh.mu.Lock()
	sh.sec = s
	sh.mu.Unlock()
}

// startServer serves svcs over a fresh shim on a background goroutine
// and tears everything down with the test.
func startServer(t *testing.T, svcs []*Service, opts ...option) (*Server, *testShim) {
	t.Helper()
	s := NewServer(opts...)
	if err := s.SetServices(svcs); err != nil {
		t.Fatal(err)
	}
	shim := newTestShim()
	served := make(chan error, 1)
	go func() { served <- s.Serve(shim) }()
	t.Cleanup(func() {
		shim.Close()
		select {
		case err := <-served:
			if err != nil {
				t.Errorf("Serve: %v", err)
			}
		case <-time.After(time.Second):
			t.Error("server did not stop")
		}
	})
	return s, shim
}

// An rxtx step sends one client PDU (hex) and checks the server's
// responses (hex, in order). A step may instead run do, for
// server-side pushes. Steps with no want entries expect silence.
type rxtx struct {
	name  string
	send  string
	do    func()
	want  []string
	after func()
}

func runRxtx(t *testing.T, shim *testShim, steps []rxtx) {
	t.Helper()
	for _, tt := range steps {
		if tt.do != nil {
			tt.do()
		}
		if tt.send != "" {
			pdu, err := hex.DecodeString(tt.send)
			if err != nil {
				t.Fatalf("%s: bad send %q: %v", tt.name, tt.send, err)
			}
			shim.readc <- pdu
		}
		for i, want := range tt.want {
			select {
			case rsp := <-shim.writec:
				if got := hex.EncodeToString(rsp); got != want {
					t.Errorf("%s: response %d: got %s want %s", tt.name, i, got, want)
				}
			case <-time.After(time.Second):
				t.Fatalf("%s: timed out waiting for response %s", tt.name, want)
			}
		}
		if tt.after != nil {
			tt.after()
		}
	}
}

func TestServing(t *testing.T) {
	_, shim := startServer(t, testServices())

	runRxtx(t, shim, []rxtx{
		{
			name: "set mtu to 135 -- server offers 517",
			send: "028700",
			want: []string{"030502"},
		},
		{
			name: "truncated mtu request -- invalid pdu",
			send: "02",
			want: []string{"0102000004"},
		},
		{
			name: "unknown request -- not supported",
			send: "14",
			want: []string{"0114000006"},
		},
		{
			name: "signed write command -- dropped silently",
			send: "d20800616263",
		},
		{
			name: "read by group [1,ffff] 0x2800 -- battery group [1,3]",
			send: "100100ffff0028",
			want: []string{"1106010003000f18"},
		},
		{
			name: "read by group [4,ffff] 0x2800 -- custom group [4,15]",
			send: "100400ffff0028",
			want: []string{"111404000f001bc5d5a502000499e31111c1c095fc09"},
		},
		{
			name: "read by group with 128-bit type -- unsupported group type",
			send: "10010003001bc5d5a502000499e31111c1c095fc09",
			want: []string{"0110010010"},
		},
		{
			name: "read by group starting at 0 -- invalid handle",
			send: "100000ffff0028",
			want: []string{"0110000001"},
		},
		{
			name: "find info [1,3] -- 1: 0x2800, 2: 0x2803, 3: 0x2a19",
			send: "0401000300",
			want: []string{"050101000028020003280300192a"},
		},
		{
			name: "find info [8,8] -- one 128-bit uuid",
			send: "0408000800",
			want: []string{"05020800669a0c200008338ae31116c1507b921c"},
		},
		{
			name: "find info [3,8] -- stops at first 128-bit uuid",
			send: "0403000800",
			want: []string{"05010300192a0400002805000328"},
		},
		{
			name: "find info [16,20] -- nothing there",
			send: "0410001400",
			want: []string{"010410000a"},
		},
		{
			name: "find by type value battery service -- span [1,3]",
			send: "060100ffff00280f18",
			want: []string{"0701000300"},
		},
		{
			name: "find by type value wrong value -- not found",
			send: "060100ffff0028ff18",
			want: []string{"010601000a"},
		},
		{
			name: "read by type 0x2803 -- first declaration only, lengths differ",
			send: "080100ffff0328",
			want: []string{"09070200020300192a"},
		},
		{
			name: "read battery level -- 100",
			send: "0a0300",
			want: []string{"0b64"},
		},
		{
			name: "read absent handle -- invalid handle",
			send: "0a6300",
			want: []string{"010a630001"},
		},
		{
			name: "read write-only value -- read not permitted",
			send: "0a0600",
			want: []string{"010a060002"},
		},
		{
			name: "read authenticated value on open link -- authentication",
			send: "0a0b00",
			want: []string{"010a0b0005"},
		},
		{
			name: "write 'hey' -- ok",
			send: "120800686579",
			want: []string{"13"},
		},
		{
			name: "read back -- 'hey'",
			send: "0a0800",
			want: []string{"0b686579"},
		},
		{
			name: "write command 'world' -- no response",
			send: "520800776f726c64",
		},
		{
			name: "read back -- 'world'",
			send: "0a0800",
			want: []string{"0b776f726c64"},
		},
		{
			name: "one-byte cccd write -- invalid value length",
			send: "1209000d",
			want: []string{"011209000d"},
		},
		{
			name: "write read-only value -- write not permitted",
			send: "12030001",
			want: []string{"0112030003"},
		},
		{
			name: "read multiple 3, 8 -- concatenated",
			send: "0e03000800",
			want: []string{"0f64776f726c64"},
		},
		{
			name: "read multiple with absent handle -- invalid handle",
			send: "0e03006300",
			want: []string{"010e630001"},
		},
		{
			name: "truncated read multiple -- invalid pdu",
			send: "0e0300",
			want: []string{"010e000004"},
		},
		{
			name: "renegotiate mtu to 23 -- server still offers 517",
			send: "021700",
			want: []string{"030502"},
		},
		{
			name: "read 23-byte value at mtu 23 -- truncated to 22",
			send: "0a0d00",
			want: []string{"0b" + hex.EncodeToString(counting(22))},
		},
	})
}

func TestMTUOption(t *testing.T) {
	_, shim := startServer(t, testServices(), MTU(185))

	runRxtx(t, shim, []rxtx{
		{
			name: "client offers 256 -- server offers 185",
			send: "020001",
			want: []string{"03b900"},
		},
	})
}

func TestReadBlob(t *testing.T) {
	_, shim := startServer(t, testServices())

	long := counting(23)
	runRxtx(t, shim, []rxtx{
		{
			name: "blob of 22-byte value at mtu 23 -- not long",
			send: "0c0f000000",
			want: []string{"010c0f000b"},
		},
		{
			name: "blob of 23-byte value, offset 0 -- first 22 bytes",
			send: "0c0d000000",
			want: []string{"0d" + hex.EncodeToString(long[:22])},
		},
		{
			name: "offset 22 -- the last byte",
			send: "0c0d001600",
			want: []string{"0d16"},
		},
		{
			name: "offset 23 at the end -- empty part",
			send: "0c0d001700",
			want: []string{"0d"},
		},
		{
			name: "offset 24 past the end -- invalid offset",
			send: "0c0d001800",
			want: []string{"010c0d0007"},
		},
		{
			name: "blob of absent handle -- invalid handle",
			send: "0c63000000",
			want: []string{"010c630001"},
		},
		{
			name: "blob of write-only value -- read not permitted",
			send: "0c06000000",
			want: []string{"010c060002"},
		},
	})
}

func TestPreparedWrites(t *testing.T) {
	_, shim := startServer(t, testServices())

	runRxtx(t, shim, []rxtx{
		{
			name: "prepare 'he' at offset 0 -- echoed",
			send: "16080000006865",
			want: []string{"17080000006865"},
		},
		{
			name: "prepare 'y' at offset 2 -- echoed",
			send: "160800020079",
			want: []string{"170800020079"},
		},
		{
			name: "commit -- ok",
			send: "1801",
			want: []string{"19"},
		},
		{
			name: "read back -- 'hey'",
			send: "0a0800",
			want: []string{"0b686579"},
		},
		{
			name: "prepare 'x' -- echoed",
			send: "160800000078",
			want: []string{"170800000078"},
		},
		{
			name: "cancel -- ok",
			send: "1800",
			want: []string{"19"},
		},
		{
			name: "read back -- still 'hey'",
			send: "0a0800",
			want: []string{"0b686579"},
		},
		{
			name: "prepare at offset 5 with nothing before it -- echoed",
			send: "160800050061",
			want: []string{"170800050061"},
		},
		{
			name: "commit -- invalid offset at handle 8",
			send: "1801",
			want: []string{"0118080007"},
		},
		{
			name: "commit again -- queue was drained, trivially ok",
			send: "1801",
			want: []string{"19"},
		},
		{
			name: "prepare on non-writable value -- write not permitted now",
			send: "160b00000001",
			want: []string{"01160b0003"},
		},
		{
			name: "prepare on absent handle -- invalid handle",
			send: "166300000001",
			want: []string{"0116630001"},
		},
		{
			name: "execute with unknown flags -- invalid pdu",
			send: "1802",
			want: []string{"0118000004"},
		},
		{
			name: "truncated execute -- invalid pdu",
			send: "18",
			want: []string{"0118000004"},
		},
	})
}

func TestPreparedWriteQueueFull(t *testing.T) {
	_, shim := startServer(t, testServices(), MaxPreparedWrites(2))

	runRxtx(t, shim, []rxtx{
		{
			name: "first prepare -- ok",
			send: "160800000061",
			want: []string{"170800000061"},
		},
		{
			name: "second prepare -- ok",
			send: "160800010062",
			want: []string{"170800010062"},
		},
		{
			name: "third prepare -- queue full",
			send: "160800020063",
			want: []string{"0116080009"},
		},
		{
			name: "cancel -- ok",
			send: "1800",
			want: []string{"19"},
		},
	})
}

func TestNotifyIndicate(t *testing.T) {
	s, shim := startServer(t, testServices())

	runRxtx(t, shim, []rxtx{
		{
			name: "enable notifications -- ok",
			send: "1209000100",
			want: []string{"13"},
		},
		{
			name: "client write 'hey' -- notified, then acknowledged",
			send: "120800686579",
			want: []string{"1b0800686579", "13"},
		},
		{
			name: "server push 'hi' by handle -- notified",
			do: func() {
				if err := s.WriteValue(8, []byte("hi")); err != nil {
					t.Errorf("WriteValue: %v", err)
				}
			},
			want: []string{"1b08006869"},
		},
		{
			name: "server push 'yo' by uuid -- notified",
			do: func() {
				u := MustParseUUID("1c927b50-c116-11e3-8a33-0800200c9a66")
				if err := s.WriteCharacteristicValue(u, []byte("yo")); err != nil {
					t.Errorf("WriteCharacteristicValue: %v", err)
				}
			},
			want: []string{"1b0800796f"},
		},
		{
			name: "write 25 bytes at mtu 23 -- notification carries 20",
			send: "120800" + hex.EncodeToString(counting(25)),
			want: []string{"1b0800" + hex.EncodeToString(counting(20)), "13"},
		},
		{
			name: "switch to indications -- ok",
			send: "1209000200",
			want: []string{"13"},
		},
		{
			name: "write 'ab' -- indicated",
			send: "1208006162",
			want: []string{"1d08006162", "13"},
		},
		{
			name: "write 'cd' before confirming -- indication dropped",
			send: "1208006364",
			want: []string{"13"},
		},
		{
			name: "confirm the outstanding indication",
			send: "1e",
		},
		{
			name: "write 'ef' -- indicated again",
			send: "1208006566",
			want: []string{"1d08006566", "13"},
		},
		{
			name: "confirm",
			send: "1e",
		},
		{
			name: "enable both -- ok",
			send: "1209000300",
			want: []string{"13"},
		},
		{
			name: "write 'zz' -- notified, indicated, acknowledged",
			send: "1208007a7a",
			want: []string{"1b08007a7a", "1d08007a7a", "13"},
		},
		{
			name: "confirm",
			send: "1e",
		},
		{
			name: "disable -- ok",
			send: "1209000000",
			want: []string{"13"},
		},
		{
			name: "write 'q' -- acknowledgment only",
			send: "12080071",
			want: []string{"13"},
		},
	})
}

func TestHooks(t *testing.T) {
	var (
		mu         sync.Mutex
		offsets    []int
		wroteH     uint16
		wroteV     []byte
		vetoWrite8 bool
	)
	_, shim := startServer(t, testServices(),
		WillRead(func(u UUID, h uint16, value []byte, offset int) AttError {
			if h == 3 {
				return AttError(0x80)
			}
			if h == 13 {
				mu.Lock()
				offsets = append(offsets, offset)
				mu.Unlock()
			}
			return AttSuccess
		}),
		WillWrite(func(u UUID, h uint16, value, newValue []byte) AttError {
			if h == 8 && vetoWrite8 {
				return AttError(0x85)
			}
			return AttSuccess
		}),
		DidWrite(func(u UUID, h uint16, newValue []byte) {
			mu.Lock()
			wroteH = h
			wroteV = append([]byte(nil), newValue...)
			mu.Unlock()
		}),
	)

	long := counting(23)
	runRxtx(t, shim, []rxtx{
		{
			name: "read vetoed by WillRead -- application error",
			send: "0a0300",
			want: []string{"010a030080"},
		},
		{
			name: "blob at offset 5 -- WillRead sees the offset",
			send: "0c0d000500",
			want: []string{"0d" + hex.EncodeToString(long[5:])},
			after: func() {
				mu.Lock()
				defer mu.Unlock()
				if len(offsets) == 0 || offsets[len(offsets)-1] != 5 {
					t.Errorf("WillRead offsets: got %v, want last 5", offsets)
				}
			},
		},
		{
			name: "write 'abc' -- observed by DidWrite",
			send: "120600616263",
			want: []string{"13"},
			after: func() {
				mu.Lock()
				defer mu.Unlock()
				if wroteH != 6 || string(wroteV) != "abc" {
					t.Errorf("DidWrite: got (%d, %q) want (6, %q)", wroteH, wroteV, "abc")
				}
			},
		},
		{
			name: "write vetoed by WillWrite -- application error",
			do:   func() { vetoWrite8 = true },
			send: "1208006868",
			want: []string{"0112080085"},
		},
		{
			name: "prepare on vetoed handle -- accepted, checked at commit",
			send: "160800000061",
			want: []string{"170800000061"},
		},
		{
			name: "commit -- rejected by WillWrite",
			send: "1801",
			want: []string{"0118080085"},
		},
	})
}

func TestSecurity(t *testing.T) {
	svc := NewService(UUID16(0x1815))
	svc.AddCharacteristic(UUID16(0x2A56)).
		SetProperties(CharRead).
		SetPermissions(AttrRead | AttrReadEncrypt).
		SetValue([]byte{7})
	svc.AddCharacteristic(UUID16(0x2A57)).
		SetProperties(CharWrite).
		SetPermissions(AttrWrite | AttrWriteAuthn)

	_, shim := startServer(t, []*Service{svc})

	runRxtx(t, shim, []rxtx{
		{
			name: "read encrypted value on open link -- insufficient encryption",
			send: "0a0300",
			want: []string{"010a03000f"},
		},
		{
			name: "write authenticated value on open link -- authentication",
			send: "12050001",
			want: []string{"0112050005"},
		},
		{
			name: "read encrypted value on encrypted link -- ok",
			do:   func() { shim.setSecurity(SecurityMedium) },
			send: "0a0300",
			want: []string{"0b07"},
		},
		{
			name: "write authenticated value on encrypted link -- still authentication",
			send: "12050001",
			want: []string{"0112050005"},
		},
		{
			name: "write authenticated value on authenticated link -- ok",
			do:   func() { shim.setSecurity(SecurityHigh) },
			send: "12050001",
			want: []string{"13"},
		},
	})
}

func TestCheckPermissions(t *testing.T) {
	cases := []struct {
		name  string
		req   Permission
		perms Permission
		sec   SecurityLevel
		want  AttError
	}{
		{"plain read", permsRead, AttrRead, SecurityNone, AttSuccess},
		{"read of write-only", permsRead, AttrWrite, SecurityNone, AttReadNotPerm},
		{"write of read-only", permsWrite, AttrRead, SecurityNone, AttWriteNotPerm},
		{"authn read, medium link", permsRead, AttrRead | AttrReadAuthn, SecurityMedium, AttAuthentication},
		{"authn read, high link", permsRead, AttrRead | AttrReadAuthn, SecurityHigh, AttSuccess},
		{"encrypted read, low link", permsRead, AttrRead | AttrReadEncrypt, SecurityLow, AttInsuffEnc},
		{"encrypted read, medium link", permsRead, AttrRead | AttrReadEncrypt, SecurityMedium, AttSuccess},
		{"authn beats encryption", permsWrite, AttrWrite | AttrWriteAuthn | AttrWriteEncrypt, SecurityMedium, AttAuthentication},
		{"both satisfied", permsWrite, AttrWrite | AttrWriteAuthn | AttrWriteEncrypt, SecurityHigh, AttSuccess},
		{"write authn does not gate reads", permsRead, AttrRead | AttrWriteAuthn, SecurityNone, AttSuccess},
	}

	for _, tt := range cases {
		a := attr{h: 1, perms: tt.perms}
		if got := checkPermissions(tt.req, a, tt.sec); got != tt.want {
			t.Errorf("%s: got %v want %v", tt.name, got, tt.want)
		}
	}
}

func TestOptionRestore(t *testing.T) {
	s := NewServer(MTU(185))
	prev := s.Option(MTU(48))
	if s.mtu != 48 {
		t.Fatalf("mtu: got %d want 48", s.mtu)
	}
	s.Option(prev)
	if s.mtu != 185 {
		t.Fatalf("restored mtu: got %d want 185", s.mtu)
	}
}
