// Package billy provides a storage device backed by an image file on a
// go-billy filesystem.
//
// The image is created on first use and sized to the requested capacity.
// Bytes past the previous end of the file start erased (0xFF). Use osfs for
// images on disk and memfs for tests:
//
//	dev, err := billy.Open(osfs.New(dir), "flash.img", 1<<20, port)
//	iface := storage.InterfaceOf(dev)
//
// The device does not synchronize access; one filesystem instance owns it.
package billy
