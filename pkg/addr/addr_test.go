package addr

import "testing"

func TestNewProducesDistinctLocallyAdministeredAddresses(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if a == b {
		t.Fatal("two calls to New produced identical addresses")
	}
	if a[0]&0x02 == 0 {
		t.Error("locally-administered bit not set")
	}
	if a[0]&0x01 != 0 {
		t.Error("multicast bit set on a unicast address")
	}
	if a.IsBroadcast() || a.IsMulticast() || a.IsZero() {
		t.Error("fresh address misclassified")
	}
}

func TestStringRoundTrip(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	parsed, err := FromString(a.String())
	if err != nil {
		t.Fatalf("FromString(%q): %v", a.String(), err)
	}
	if parsed != a {
		t.Errorf("round trip mismatch: got %s, want %s", parsed, a)
	}
}

func TestFromStringRejectsBadLength(t *testing.T) {
	if _, err := FromString("02:1a:2b"); err == nil {
		t.Error("expected error for short address")
	}
}

func TestFromStringAcceptsHyphenated(t *testing.T) {
	a, err := FromString("02-1a-2b-3c-4d-5e")
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	want := Address{0x02, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e}
	if a != want {
		t.Errorf("got %v, want %v", a, want)
	}
}

func TestBroadcastAndZero(t *testing.T) {
	if !Broadcast.IsBroadcast() {
		t.Error("Broadcast.IsBroadcast() == false")
	}
	if !Zero.IsZero() {
		t.Error("Zero.IsZero() == false")
	}
	if Broadcast.IsMulticast() {
		t.Error("broadcast address should not also classify as multicast")
	}
}

func TestClassify(t *testing.T) {
	self, _ := New()
	other, _ := New()
	multicast := Address{0x01, 0x00, 0x5e, 0x00, 0x00, 0x01}

	cases := []struct {
		name string
		dst  Address
		want PacketType
	}{
		{"host", self, PacketHost},
		{"broadcast", Broadcast, PacketBroadcast},
		{"multicast", multicast, PacketMulticast},
		{"other host", other, PacketOtherHost},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Classify(c.dst, self); got != c.want {
				t.Errorf("Classify(%s, self) = %s, want %s", c.name, got, c.want)
			}
		})
	}
}
