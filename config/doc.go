// Package config loads filesystem configuration documents.
//
// A document is CUE, JSON or YAML. It is unified with the embedded #Config
// schema, validated and decoded into a Spec:
//
//	type: "littlefs"
//	size: "512KiB"
//	littlefs:
//	  blockSize: 4096
//	device:
//	  kind: image
//	  path: flash.img
//	  capacity: 1MiB
//
// Sizes are byte counts or human readable strings such as "1MiB" or "64 kB".
// Every failure is reported with errors.CodeInvalidConfig.
package config
