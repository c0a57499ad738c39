package ui

// iconBytes is a 16x16 RGBA PNG of a clapperboard.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x2b, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x78, 0xf6, 0xec, 0xd9,
	0x7f, 0x18, 0xd6, 0xd0, 0xd0, 0x80, 0x63, 0x62, 0xc5, 0x19, 0x86, 0x81,
	0x01, 0x20, 0x80, 0xac, 0x80, 0x14, 0xcc, 0x00, 0x03, 0xa3, 0x06, 0x8c,
	0x1a, 0x30, 0x38, 0x0c, 0xa0, 0x04, 0x00, 0x00, 0x70, 0x94, 0x8f, 0x8e,
	0x91, 0xa6, 0x4f, 0xff, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44,
	0xae, 0x42, 0x60, 0x82,
}
