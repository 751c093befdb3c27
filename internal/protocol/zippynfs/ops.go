package zippynfs

import (
	"bytes"
)

// ---- NULL ----

type NullArgs struct{}
type NullResult struct{}

func decodeNullArgs([]byte) (NullArgs, error) { return NullArgs{}, nil }

func (NullResult) Encode() ([]byte, error) { return nil, nil }

// ---- GETATTR ----

type GetAttrArgs struct {
	FID uint64
}

type GetAttrResult struct {
	Status uint32
	Attr   Attr
}

func decodeGetAttrArgs(data []byte) (GetAttrArgs, error) {
	fid, err := readUint64(bytes.NewReader(data))
	return GetAttrArgs{FID: fid}, err
}

func (res GetAttrResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, res.Status); err != nil {
		return nil, err
	}
	if res.Status == StatusOK {
		if err := res.Attr.encode(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ---- SETATTR ----

type SetAttrArgs struct {
	FID   uint64
	Sattr Sattr
}

type SetAttrResult struct {
	Status uint32
	Attr   Attr
}

func decodeSetAttrArgs(data []byte) (SetAttrArgs, error) {
	r := bytes.NewReader(data)
	fid, err := readUint64(r)
	if err != nil {
		return SetAttrArgs{}, err
	}
	sattr, err := decodeSattr(r)
	if err != nil {
		return SetAttrArgs{}, err
	}
	return SetAttrArgs{FID: fid, Sattr: sattr}, nil
}

func (res SetAttrResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, res.Status); err != nil {
		return nil, err
	}
	if res.Status == StatusOK {
		if err := res.Attr.encode(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ---- LOOKUP ----

type LookupArgs struct {
	DirFID uint64
	Name   string
}

type LookupResult struct {
	Status uint32
	FID    uint64
}

func decodeLookupArgs(data []byte) (LookupArgs, error) {
	r := bytes.NewReader(data)
	dirFID, err := readUint64(r)
	if err != nil {
		return LookupArgs{}, err
	}
	name, err := readString(r)
	if err != nil {
		return LookupArgs{}, err
	}
	return LookupArgs{DirFID: dirFID, Name: name}, nil
}

func (res LookupResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, res.Status); err != nil {
		return nil, err
	}
	if res.Status == StatusOK {
		if err := writeUint64(&buf, res.FID); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ---- READ ----

type ReadArgs struct {
	FID    uint64
	Offset uint64
	Length uint32
}

type ReadResult struct {
	Status uint32
	Data   []byte
}

func decodeReadArgs(data []byte) (ReadArgs, error) {
	r := bytes.NewReader(data)
	fid, err := readUint64(r)
	if err != nil {
		return ReadArgs{}, err
	}
	offset, err := readUint64(r)
	if err != nil {
		return ReadArgs{}, err
	}
	length, err := readUint32(r)
	if err != nil {
		return ReadArgs{}, err
	}
	return ReadArgs{FID: fid, Offset: offset, Length: length}, nil
}

func (res ReadResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, res.Status); err != nil {
		return nil, err
	}
	if res.Status == StatusOK {
		if err := writeOpaque(&buf, res.Data); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ---- WRITE ----

type WriteArgs struct {
	FID       uint64
	Offset    uint64
	Data      []byte
	Stability uint32
}

type WriteResult struct {
	Status uint32
	Size   uint64
	Epoch  uint64
}

func decodeWriteArgs(data []byte) (WriteArgs, error) {
	r := bytes.NewReader(data)
	fid, err := readUint64(r)
	if err != nil {
		return WriteArgs{}, err
	}
	offset, err := readUint64(r)
	if err != nil {
		return WriteArgs{}, err
	}
	stability, err := readUint32(r)
	if err != nil {
		return WriteArgs{}, err
	}
	payload, err := readOpaque(r)
	if err != nil {
		return WriteArgs{}, err
	}
	return WriteArgs{FID: fid, Offset: offset, Stability: stability, Data: payload}, nil
}

func (res WriteResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, res.Status); err != nil {
		return nil, err
	}
	if res.Status == StatusOK {
		if err := writeUint64(&buf, res.Size); err != nil {
			return nil, err
		}
		if err := writeUint64(&buf, res.Epoch); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ---- CREATE / MKDIR (shared shape) ----

type CreateArgs struct {
	DirFID uint64
	Name   string
	Sattr  Sattr
}

type CreateResult struct {
	Status uint32
	FID    uint64
	Attr   Attr
}

func decodeCreateArgs(data []byte) (CreateArgs, error) {
	r := bytes.NewReader(data)
	dirFID, err := readUint64(r)
	if err != nil {
		return CreateArgs{}, err
	}
	name, err := readString(r)
	if err != nil {
		return CreateArgs{}, err
	}
	sattr, err := decodeSattr(r)
	if err != nil {
		return CreateArgs{}, err
	}
	return CreateArgs{DirFID: dirFID, Name: name, Sattr: sattr}, nil
}

func (res CreateResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, res.Status); err != nil {
		return nil, err
	}
	if res.Status == StatusOK {
		if err := writeUint64(&buf, res.FID); err != nil {
			return nil, err
		}
		if err := res.Attr.encode(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ---- REMOVE / RMDIR (shared shape) ----

type RemoveArgs struct {
	DirFID uint64
	Name   string
}

type RemoveResult struct {
	Status uint32
}

func decodeRemoveArgs(data []byte) (RemoveArgs, error) {
	r := bytes.NewReader(data)
	dirFID, err := readUint64(r)
	if err != nil {
		return RemoveArgs{}, err
	}
	name, err := readString(r)
	if err != nil {
		return RemoveArgs{}, err
	}
	return RemoveArgs{DirFID: dirFID, Name: name}, nil
}

func (res RemoveResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	err := writeUint32(&buf, res.Status)
	return buf.Bytes(), err
}

// ---- RENAME ----

type RenameArgs struct {
	SrcDirFID uint64
	SrcName   string
	DstDirFID uint64
	DstName   string
}

type RenameResult struct {
	Status uint32
}

func decodeRenameArgs(data []byte) (RenameArgs, error) {
	r := bytes.NewReader(data)
	srcDirFID, err := readUint64(r)
	if err != nil {
		return RenameArgs{}, err
	}
	srcName, err := readString(r)
	if err != nil {
		return RenameArgs{}, err
	}
	dstDirFID, err := readUint64(r)
	if err != nil {
		return RenameArgs{}, err
	}
	dstName, err := readString(r)
	if err != nil {
		return RenameArgs{}, err
	}
	return RenameArgs{SrcDirFID: srcDirFID, SrcName: srcName, DstDirFID: dstDirFID, DstName: dstName}, nil
}

func (res RenameResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	err := writeUint32(&buf, res.Status)
	return buf.Bytes(), err
}

// ---- READDIR ----

type ReaddirArgs struct {
	DirFID uint64
}

type ReaddirEntry struct {
	Name string
	FID  uint64
}

type ReaddirResult struct {
	Status  uint32
	Entries []ReaddirEntry
}

func decodeReaddirArgs(data []byte) (ReaddirArgs, error) {
	fid, err := readUint64(bytes.NewReader(data))
	return ReaddirArgs{DirFID: fid}, err
}

func (res ReaddirResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, res.Status); err != nil {
		return nil, err
	}
	if res.Status != StatusOK {
		return buf.Bytes(), nil
	}
	if err := writeUint32(&buf, uint32(len(res.Entries))); err != nil {
		return nil, err
	}
	for _, e := range res.Entries {
		if err := writeString(&buf, e.Name); err != nil {
			return nil, err
		}
		if err := writeUint64(&buf, e.FID); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ---- STATFS ----

type StatFSArgs struct{}

type StatFSResult struct {
	Status     uint32
	TotalBytes uint64
	FreeBytes  uint64
	AvailBytes uint64
	TotalFiles uint64
	FreeFiles  uint64
	BlockSize  uint32
}

func decodeStatFSArgs([]byte) (StatFSArgs, error) { return StatFSArgs{}, nil }

func (res StatFSResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, res.Status); err != nil {
		return nil, err
	}
	if res.Status != StatusOK {
		return buf.Bytes(), nil
	}
	for _, v := range []uint64{res.TotalBytes, res.FreeBytes, res.AvailBytes, res.TotalFiles, res.FreeFiles} {
		if err := writeUint64(&buf, v); err != nil {
			return nil, err
		}
	}
	if err := writeUint32(&buf, res.BlockSize); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ---- COMMIT ----

type CommitArgs struct {
	FID uint64
}

type CommitResult struct {
	Status uint32
	Size   uint64
	Epoch  uint64
}

func decodeCommitArgs(data []byte) (CommitArgs, error) {
	fid, err := readUint64(bytes.NewReader(data))
	return CommitArgs{FID: fid}, err
}

func (res CommitResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, res.Status); err != nil {
		return nil, err
	}
	if res.Status == StatusOK {
		if err := writeUint64(&buf, res.Size); err != nil {
			return nil, err
		}
		if err := writeUint64(&buf, res.Epoch); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
