// Package metrics instruments storage devices with Prometheus counters.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmgilman/go/flashfs/storage"
)

const (
	labelDevice = "device"
	labelOp     = "op"
)

// Collectors holds the counters shared by every instrumented device.
type Collectors struct {
	ops    *prometheus.CounterVec
	bytes  *prometheus.CounterVec
	errors *prometheus.CounterVec
}

// NewCollectors creates the storage counters and registers them with reg.
// Counters already registered with reg are reused.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashfs_storage_ops_total",
				Help: "storage operations issued",
			},
			[]string{labelDevice, labelOp},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashfs_storage_bytes_total",
				Help: "bytes read, written or erased",
			},
			[]string{labelDevice, labelOp},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashfs_storage_errors_total",
				Help: "failed storage operations",
			},
			[]string{labelDevice, labelOp},
		),
	}

	var err error
	if c.ops, err = register(reg, c.ops); err != nil {
		return nil, err
	}
	if c.bytes, err = register(reg, c.bytes); err != nil {
		return nil, err
	}
	if c.errors, err = register(reg, c.errors); err != nil {
		return nil, err
	}
	return c, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := reg.Register(c)
	are := prometheus.AlreadyRegisteredError{}
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Device wraps a storage device and counts every call made through it.
type Device struct {
	storage.Device
	name string
	c    *Collectors
}

// Wrap instruments dev under the device label name.
func Wrap(dev storage.Device, name string, c *Collectors) *Device {
	return &Device{Device: dev, name: name, c: c}
}

func (d *Device) Read(addr, length int64) (int64, error) {
	n, err := d.Device.Read(addr, length)
	d.observe("read", n, err)
	return n, err
}

func (d *Device) Write(addr, length int64) (int64, error) {
	n, err := d.Device.Write(addr, length)
	d.observe("write", n, err)
	return n, err
}

func (d *Device) Erase(addr, length int64) (int64, error) {
	n, err := d.Device.Erase(addr, length)
	d.observe("erase", n, err)
	return n, err
}

func (d *Device) observe(op string, n int64, err error) {
	d.c.ops.WithLabelValues(d.name, op).Inc()
	if n > 0 {
		d.c.bytes.WithLabelValues(d.name, op).Add(float64(n))
	}
	if err != nil {
		d.c.errors.WithLabelValues(d.name, op).Inc()
	}
}

var _ storage.Device = (*Device)(nil)
