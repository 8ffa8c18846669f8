// Package billyfs exposes a mounted flashfs instance as a go-billy Basic
// filesystem so billy tooling (util.ReadFile, util.WriteFile, io.Copy on
// files) works on flash images.
//
// Files keep their own offset and track their size across writes. Missing
// files are reported as os.ErrNotExist inside an *os.PathError; every other
// failure carries the flashfs error.
package billyfs
