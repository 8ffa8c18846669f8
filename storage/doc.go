// Package storage defines the block storage contract flashfs is built on.
//
// A filesystem never touches a device directly. It reaches storage through an
// Interface: five callbacks plus a Dataport, a fixed-capacity buffer shared
// with the device driver. Data written to storage is first copied into the
// dataport and then committed with Write; data read from storage is fetched
// with Read and then copied out of the dataport. No single transfer can
// exceed the dataport capacity.
//
// Device drivers implement Device and are turned into an Interface with
// InterfaceOf:
//
//	port := storage.NewDataport(4096)
//	dev := storage.NewMemory(1<<20, port)
//	iface := storage.InterfaceOf(dev)
//
// This package ships an in-memory NOR-style device. Image files, object
// storage and instrumentation live in the billy, minio and metrics
// subpackages.
package storage
