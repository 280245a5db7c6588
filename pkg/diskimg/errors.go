// file: pkg/diskimg/errors.go

package diskimg

import "errors"

var (
	ErrNoDisk         = errors.New("no disk image loaded")
	ErrWriteProtected = errors.New("disk image is not writable")
	ErrRead           = errors.New("disk image read failed")
	ErrWrite          = errors.New("disk image write failed")
	ErrSizeCode       = errors.New("invalid logical size code")
	ErrLogicalRange   = errors.New("logical sector out of range")
	ErrGeometry       = errors.New("image size does not match any drive model")
)
