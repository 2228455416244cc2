package tablet

import "testing"

func TestLookupKnownModels(t *testing.T) {
	for _, model := range Models() {
		id := Identity{Vendor: VendorID, Product: model.Product}
		cap, ok := Lookup(id)
		if !ok {
			t.Errorf("%s: expected a catalog entry", id)
			continue
		}
		if cap.Name == "" {
			t.Errorf("%s: missing display name", id)
		}
		if cap.MaxX <= 0 || cap.MaxY <= 0 {
			t.Errorf("%s: non-positive axis maxima %d,%d", id, cap.MaxX, cap.MaxY)
		}
		if cap.MaxPressure <= 0 {
			t.Errorf("%s: non-positive pressure maximum %d", id, cap.MaxPressure)
		}
		if cap.MaxTiltX <= 0 || cap.MaxTiltY <= 0 {
			t.Errorf("%s: non-positive tilt maxima %d,%d", id, cap.MaxTiltX, cap.MaxTiltY)
		}
		if len(cap.LeftButtons)+len(cap.RightButtons)+len(cap.PadButtons) == 0 {
			t.Errorf("%s: no button slots", id)
		}
		if !Supported(id) {
			t.Errorf("%s: Supported disagrees with Lookup", id)
		}
	}
}

func TestLookupUnknownIdentity(t *testing.T) {
	tests := []Identity{
		{Vendor: VendorID, Product: 0xffff},
		{Vendor: 0x1234, Product: 0x8528},
		{},
	}
	for _, id := range tests {
		if _, ok := Lookup(id); ok {
			t.Errorf("%s: unexpected catalog entry", id)
		}
		if Supported(id) {
			t.Errorf("%s: unexpectedly supported", id)
		}
	}
}

func TestDualBankModels(t *testing.T) {
	for _, product := range []uint16{0x8505, 0x8501} {
		cap, ok := Lookup(Identity{Vendor: VendorID, Product: product})
		if !ok {
			t.Fatalf("%04x: missing catalog entry", product)
		}
		if len(cap.RightButtons) != 4 {
			t.Errorf("%04x: expected 4 right bank buttons, got %d", product, len(cap.RightButtons))
		}
	}
}
