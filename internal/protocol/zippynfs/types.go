package zippynfs

import (
	"io"
	"time"

	"github.com/chimney-labs/zippynfs/internal/fsengine"
)

// Attr is the wire form of fsengine.Attr (spec §3/§6).
type Attr struct {
	FID       uint64
	Type      uint32
	Mode      uint32
	UID       uint32
	GID       uint32
	Size      uint64
	BlockSize uint32
	Blocks    uint64
	Rdev      uint64
	Nlink     uint32
	Fsid      uint64
	Atime     int64
	Mtime     int64
	Ctime     int64
}

func fromEngineType(t fsengine.FileType) uint32 {
	switch t {
	case fsengine.TypeRegular:
		return FTypeRegular
	case fsengine.TypeDirectory:
		return FTypeDirectory
	case fsengine.TypeBlock:
		return FTypeBlock
	case fsengine.TypeChar:
		return FTypeChar
	case fsengine.TypeSymlink:
		return FTypeSymlink
	default:
		return FTypeNone
	}
}

func toEngineType(t uint32) fsengine.FileType {
	switch t {
	case FTypeRegular:
		return fsengine.TypeRegular
	case FTypeDirectory:
		return fsengine.TypeDirectory
	case FTypeBlock:
		return fsengine.TypeBlock
	case FTypeChar:
		return fsengine.TypeChar
	case FTypeSymlink:
		return fsengine.TypeSymlink
	default:
		return fsengine.TypeNone
	}
}

// AttrFromEngine converts the engine's internal attribute record to
// its wire form.
func AttrFromEngine(a fsengine.Attr) Attr {
	return Attr{
		FID:       a.FID,
		Type:      fromEngineType(a.Type),
		Mode:      a.Mode,
		UID:       a.UID,
		GID:       a.GID,
		Size:      a.Size,
		BlockSize: a.BlockSize,
		Blocks:    a.Blocks,
		Rdev:      a.Rdev,
		Nlink:     a.Nlink,
		Fsid:      a.Fsid,
		Atime:     a.Atime.UnixNano(),
		Mtime:     a.Mtime.UnixNano(),
		Ctime:     a.Ctime.UnixNano(),
	}
}

func (a Attr) encode(w io.Writer) error {
	if err := writeUint64(w, a.FID); err != nil {
		return err
	}
	for _, v := range []uint32{a.Type, a.Mode, a.UID, a.GID} {
		if err := writeUint32(w, v); err != nil {
			return err
		}
	}
	if err := writeUint64(w, a.Size); err != nil {
		return err
	}
	if err := writeUint32(w, a.BlockSize); err != nil {
		return err
	}
	for _, v := range []uint64{a.Blocks, a.Rdev, a.Fsid} {
		if err := writeUint64(w, v); err != nil {
			return err
		}
	}
	if err := writeUint32(w, a.Nlink); err != nil {
		return err
	}
	for _, v := range []int64{a.Atime, a.Mtime, a.Ctime} {
		if err := writeUint64(w, uint64(v)); err != nil {
			return err
		}
	}
	return nil
}

func decodeAttr(r io.Reader) (Attr, error) {
	var a Attr
	var err error
	if a.FID, err = readUint64(r); err != nil {
		return Attr{}, err
	}
	if a.Type, err = readUint32(r); err != nil {
		return Attr{}, err
	}
	if a.Mode, err = readUint32(r); err != nil {
		return Attr{}, err
	}
	if a.UID, err = readUint32(r); err != nil {
		return Attr{}, err
	}
	if a.GID, err = readUint32(r); err != nil {
		return Attr{}, err
	}
	if a.Size, err = readUint64(r); err != nil {
		return Attr{}, err
	}
	if a.BlockSize, err = readUint32(r); err != nil {
		return Attr{}, err
	}
	if a.Blocks, err = readUint64(r); err != nil {
		return Attr{}, err
	}
	if a.Rdev, err = readUint64(r); err != nil {
		return Attr{}, err
	}
	if a.Fsid, err = readUint64(r); err != nil {
		return Attr{}, err
	}
	if a.Nlink, err = readUint32(r); err != nil {
		return Attr{}, err
	}
	var at, mt, ct uint64
	if at, err = readUint64(r); err != nil {
		return Attr{}, err
	}
	if mt, err = readUint64(r); err != nil {
		return Attr{}, err
	}
	if ct, err = readUint64(r); err != nil {
		return Attr{}, err
	}
	a.Atime, a.Mtime, a.Ctime = int64(at), int64(mt), int64(ct)
	return a, nil
}

// Sattr is the wire form of a settable-attribute set: a discriminated
// union per field, the same DONT_CHANGE/SET_TO_CLIENT_TIME shape the
// original NFSv3 sattr3 uses, simplified to a single
// present flag since this system has no server-time variant.
type Sattr struct {
	HasMode bool
	Mode    uint32
	HasUID  bool
	UID     uint32
	HasGID  bool
	GID     uint32
	HasSize bool
	Size    uint64
	HasAtime bool
	Atime   int64
	HasMtime bool
	Mtime   int64
}

func (s Sattr) encode(w io.Writer) error {
	write := func(has bool, v uint64, wide bool) error {
		if err := writeBool(w, has); err != nil {
			return err
		}
		if !has {
			return nil
		}
		if wide {
			return writeUint64(w, v)
		}
		return writeUint32(w, uint32(v))
	}
	if err := write(s.HasMode, uint64(s.Mode), false); err != nil {
		return err
	}
	if err := write(s.HasUID, uint64(s.UID), false); err != nil {
		return err
	}
	if err := write(s.HasGID, uint64(s.GID), false); err != nil {
		return err
	}
	if err := write(s.HasSize, s.Size, true); err != nil {
		return err
	}
	if err := write(s.HasAtime, uint64(s.Atime), true); err != nil {
		return err
	}
	return write(s.HasMtime, uint64(s.Mtime), true)
}

func decodeSattr(r io.Reader) (Sattr, error) {
	var s Sattr
	var err error

	if s.HasMode, err = readBool(r); err != nil {
		return Sattr{}, err
	}
	if s.HasMode {
		var v uint32
		if v, err = readUint32(r); err != nil {
			return Sattr{}, err
		}
		s.Mode = v
	}
	if s.HasUID, err = readBool(r); err != nil {
		return Sattr{}, err
	}
	if s.HasUID {
		if s.UID, err = readUint32(r); err != nil {
			return Sattr{}, err
		}
	}
	if s.HasGID, err = readBool(r); err != nil {
		return Sattr{}, err
	}
	if s.HasGID {
		if s.GID, err = readUint32(r); err != nil {
			return Sattr{}, err
		}
	}
	if s.HasSize, err = readBool(r); err != nil {
		return Sattr{}, err
	}
	if s.HasSize {
		if s.Size, err = readUint64(r); err != nil {
			return Sattr{}, err
		}
	}
	if s.HasAtime, err = readBool(r); err != nil {
		return Sattr{}, err
	}
	if s.HasAtime {
		var v uint64
		if v, err = readUint64(r); err != nil {
			return Sattr{}, err
		}
		s.Atime = int64(v)
	}
	if s.HasMtime, err = readBool(r); err != nil {
		return Sattr{}, err
	}
	if s.HasMtime {
		var v uint64
		if v, err = readUint64(r); err != nil {
			return Sattr{}, err
		}
		s.Mtime = int64(v)
	}
	return s, nil
}

// ToEngine converts a wire Sattr to the engine's pointer-based form.
func (s Sattr) ToEngine() fsengine.Sattr {
	var out fsengine.Sattr
	if s.HasMode {
		v := s.Mode
		out.Mode = &v
	}
	if s.HasUID {
		v := s.UID
		out.UID = &v
	}
	if s.HasGID {
		v := s.GID
		out.GID = &v
	}
	if s.HasSize {
		v := s.Size
		out.Size = &v
	}
	if s.HasAtime {
		v := time.Unix(0, s.Atime)
		out.Atime = &v
	}
	if s.HasMtime {
		v := time.Unix(0, s.Mtime)
		out.Mtime = &v
	}
	return out
}

func engineCodeToStatus(code fsengine.Code) uint32 {
	switch code {
	case fsengine.NoEnt:
		return StatusNoEnt
	case fsengine.Exist:
		return StatusExist
	case fsengine.NotDir:
		return StatusNotDir
	case fsengine.IsDir:
		return StatusIsDir
	case fsengine.NotEmpty:
		return StatusNotEmpty
	case fsengine.Stale:
		return StatusStale
	default:
		return StatusInternal
	}
}
