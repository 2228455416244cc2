package tablet

import "fmt"

// VendorID is the USB vendor identifier shared by the whole tablet family.
const VendorID uint16 = 0x0b57

// PacketLen is the fixed interrupt report length for every supported model.
const PacketLen = 10

// Identity is the vendor/product pair read from the device descriptor.
type Identity struct {
	Vendor  uint16
	Product uint16
}

func (i Identity) String() string {
	return fmt.Sprintf("%04x:%04x", i.Vendor, i.Product)
}

// Capability describes everything model-specific the decoder and the sink
// need. Entries are looked up from the static catalog and never mutated;
// supporting a new model is a table edit, not a code change.
type Capability struct {
	Product uint16
	Name    string

	MaxX        int32
	MaxY        int32
	MaxPressure int32
	MaxTiltX    int32
	MaxTiltY    int32

	// LittleEndianCoords flips the byte order of the X/Y fields in the pen
	// message. TODO: confirm on APPIV0906 hardware; the flag defaults to
	// big-endian there pending validation.
	LittleEndianCoords bool

	// SupportsWheel enables the slider area of the general button message.
	SupportsWheel bool

	// LeftButtons and RightButtons are the bank layouts of the general
	// button message (markers 0x55 and 0xaa). Slot 0 of a bank is never
	// reported by that message; slots 1..3 map to status bits 0x02/0x04/0x08.
	LeftButtons  []Button
	RightButtons []Button

	// PadButtons is the layout of the compact 0x0c button message. Slot i
	// maps to status bit 1<<i. Empty when the model never sends 0x0c.
	PadButtons []Button
}

// Default axis ranges for the AM/GP family. Tilt maxima mirror the reference
// driver; signedness of the tilt bytes is unvalidated and they are passed
// through unscaled.
const (
	defaultMaxX     = 0x27de
	defaultMaxY     = 0x1cfe
	defaultMaxTiltX = 0x3f
	defaultMaxTiltY = 0x7f
	maxPressure     = 0x400

	appivMaxX = 0x5750
	appivMaxY = 0x3692
)

var (
	fourLeftButtons  = []Button{Button0, Button1, Button2, Button3}
	fourRightButtons = []Button{Button4, Button5, Button6, Button7}
)

var catalog = []Capability{
	{Product: 0x8528, Name: "Hanvon Art Master III", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons},
	{Product: 0x8502, Name: "Hanvon ArtMaster AM0806", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons},
	{Product: 0x8503, Name: "Hanvon ArtMaster AM0605", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons},
	{Product: 0x8505, Name: "Hanvon ArtMaster AM1107", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons, RightButtons: fourRightButtons},
	{Product: 0x8501, Name: "Hanvon ArtMaster AM1209", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons, RightButtons: fourRightButtons},
	{Product: 0x851f, Name: "Hanvon Rollick 0604", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons},
	{Product: 0x851d, Name: "Hanvon Rollick 0504", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons},
	{Product: 0x8039, Name: "Hanvon Graphicpal 0806", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons},
	{Product: 0x8511, Name: "Hanvon Graphicpal 0806B", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons},
	{Product: 0x8512, Name: "Hanvon Graphicpal 0605", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons},
	{Product: 0x803a, Name: "Hanvon Graphicpal 0605A", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons},
	{Product: 0x8037, Name: "Hanvon Graphicpal 0504", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons},
	{Product: 0x8030, Name: "Hanvon Nilox NXS1513", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons},
	{Product: 0x8521, Name: "Hanvon Graphicpal 0906", MaxX: defaultMaxX, MaxY: defaultMaxY, SupportsWheel: true, LeftButtons: fourLeftButtons,
		PadButtons: []Button{Button0, Button1, Button2, Button3}},
	{Product: 0x8532, Name: "Hanvon Art Painter Pro APPIV0906", MaxX: appivMaxX, MaxY: appivMaxY,
		PadButtons: []Button{Button1, Button2, Button3, Button4, Button5, Button6, Button7}},
}

var catalogByProduct = func() map[uint16]Capability {
	m := make(map[uint16]Capability, len(catalog))
	for i := range catalog {
		cap := catalog[i]
		cap.MaxPressure = maxPressure
		cap.MaxTiltX = defaultMaxTiltX
		cap.MaxTiltY = defaultMaxTiltY
		m[cap.Product] = cap
	}
	return m
}()

// Lookup resolves an identity against the model catalog.
func Lookup(id Identity) (Capability, bool) {
	if id.Vendor != VendorID {
		return Capability{}, false
	}
	cap, ok := catalogByProduct[id.Product]
	return cap, ok
}

// Supported reports whether the identity is a known tablet model.
func Supported(id Identity) bool {
	_, ok := Lookup(id)
	return ok
}

// Models returns the catalog entries in declaration order.
func Models() []Capability {
	models := make([]Capability, 0, len(catalog))
	for _, cap := range catalog {
		full, _ := Lookup(Identity{Vendor: VendorID, Product: cap.Product})
		models = append(models, full)
	}
	return models
}
