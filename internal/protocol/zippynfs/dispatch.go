package zippynfs

import (
	"fmt"

	"github.com/chimney-labs/zippynfs/internal/fsengine"
	"github.com/chimney-labs/zippynfs/internal/logger"
)

// Encodable is any op result, able to serialize itself to the bytes
// that follow the RPC reply header.
type Encodable interface {
	Encode() ([]byte, error)
}

// Dispatch decodes data as the arguments of procedure, runs it against
// engine, and returns the XDR-encoded result (spec §6's operation
// table). Procedures outside the known set return an error so the
// caller can reply PROC_UNAVAIL.
func Dispatch(procedure uint32, data []byte, engine *fsengine.Engine) ([]byte, error) {
	name := procName(procedure)

	switch procedure {
	case ProcNull:
		return dispatched(name, func() (Encodable, error) {
			_, err := decodeNullArgs(data)
			return NullResult{}, err
		})
	case ProcGetAttr:
		return dispatched(name, func() (Encodable, error) { return handleGetAttr(data, engine) })
	case ProcSetAttr:
		return dispatched(name, func() (Encodable, error) { return handleSetAttr(data, engine) })
	case ProcLookup:
		return dispatched(name, func() (Encodable, error) { return handleLookup(data, engine) })
	case ProcRead:
		return dispatched(name, func() (Encodable, error) { return handleRead(data, engine) })
	case ProcWrite:
		return dispatched(name, func() (Encodable, error) { return handleWrite(data, engine) })
	case ProcCreate:
		return dispatched(name, func() (Encodable, error) { return handleCreate(data, engine) })
	case ProcMkdir:
		return dispatched(name, func() (Encodable, error) { return handleMkdir(data, engine) })
	case ProcRemove:
		return dispatched(name, func() (Encodable, error) { return handleRemove(data, engine) })
	case ProcRmdir:
		return dispatched(name, func() (Encodable, error) { return handleRmdir(data, engine) })
	case ProcRename:
		return dispatched(name, func() (Encodable, error) { return handleRename(data, engine) })
	case ProcReaddir:
		return dispatched(name, func() (Encodable, error) { return handleReaddir(data, engine) })
	case ProcStatFS:
		return dispatched(name, func() (Encodable, error) { return handleStatFS(data, engine) })
	case ProcCommit:
		return dispatched(name, func() (Encodable, error) { return handleCommit(data, engine) })
	default:
		return nil, fmt.Errorf("unknown procedure %d", procedure)
	}
}

func dispatched(name string, fn func() (Encodable, error)) ([]byte, error) {
	result, err := fn()
	if err != nil {
		logger.Warn("%s: malformed request: %v", name, err)
		return nil, err
	}
	encoded, err := result.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", name, err)
	}
	return encoded, nil
}

func handleGetAttr(data []byte, e *fsengine.Engine) (Encodable, error) {
	args, err := decodeGetAttrArgs(data)
	if err != nil {
		return nil, err
	}
	attr, err := e.GetAttr(args.FID)
	if err != nil {
		return GetAttrResult{Status: statusOf(err)}, nil
	}
	return GetAttrResult{Status: StatusOK, Attr: AttrFromEngine(attr)}, nil
}

func handleSetAttr(data []byte, e *fsengine.Engine) (Encodable, error) {
	args, err := decodeSetAttrArgs(data)
	if err != nil {
		return nil, err
	}
	attr, err := e.SetAttr(args.FID, args.Sattr.ToEngine())
	if err != nil {
		return SetAttrResult{Status: statusOf(err)}, nil
	}
	return SetAttrResult{Status: StatusOK, Attr: AttrFromEngine(attr)}, nil
}

func handleLookup(data []byte, e *fsengine.Engine) (Encodable, error) {
	args, err := decodeLookupArgs(data)
	if err != nil {
		return nil, err
	}
	fid, err := e.Lookup(args.DirFID, args.Name)
	if err != nil {
		return LookupResult{Status: statusOf(err)}, nil
	}
	return LookupResult{Status: StatusOK, FID: fid}, nil
}

func handleRead(data []byte, e *fsengine.Engine) (Encodable, error) {
	args, err := decodeReadArgs(data)
	if err != nil {
		return nil, err
	}
	out, err := e.Read(args.FID, args.Offset, int(args.Length))
	if err != nil {
		return ReadResult{Status: statusOf(err)}, nil
	}
	return ReadResult{Status: StatusOK, Data: out}, nil
}

func handleWrite(data []byte, e *fsengine.Engine) (Encodable, error) {
	args, err := decodeWriteArgs(data)
	if err != nil {
		return nil, err
	}
	size, epoch, err := e.Write(args.FID, args.Offset, args.Data, toEngineStability(args.Stability))
	if err != nil {
		return WriteResult{Status: statusOf(err)}, nil
	}
	return WriteResult{Status: StatusOK, Size: size, Epoch: epoch}, nil
}

func toEngineStability(v uint32) fsengine.Stability {
	switch v {
	case WriteDataSync:
		return fsengine.DataSync
	case WriteFileSync:
		return fsengine.FileSync
	default:
		return fsengine.Unstable
	}
}

func handleCreate(data []byte, e *fsengine.Engine) (Encodable, error) {
	args, err := decodeCreateArgs(data)
	if err != nil {
		return nil, err
	}
	fid, attr, err := e.Create(args.DirFID, args.Name, args.Sattr.ToEngine())
	if err != nil {
		return CreateResult{Status: statusOf(err)}, nil
	}
	return CreateResult{Status: StatusOK, FID: fid, Attr: AttrFromEngine(attr)}, nil
}

func handleMkdir(data []byte, e *fsengine.Engine) (Encodable, error) {
	args, err := decodeCreateArgs(data)
	if err != nil {
		return nil, err
	}
	fid, attr, err := e.Mkdir(args.DirFID, args.Name, args.Sattr.ToEngine())
	if err != nil {
		return CreateResult{Status: statusOf(err)}, nil
	}
	return CreateResult{Status: StatusOK, FID: fid, Attr: AttrFromEngine(attr)}, nil
}

func handleRemove(data []byte, e *fsengine.Engine) (Encodable, error) {
	args, err := decodeRemoveArgs(data)
	if err != nil {
		return nil, err
	}
	if err := e.Remove(args.DirFID, args.Name); err != nil {
		return RemoveResult{Status: statusOf(err)}, nil
	}
	return RemoveResult{Status: StatusOK}, nil
}

func handleRmdir(data []byte, e *fsengine.Engine) (Encodable, error) {
	args, err := decodeRemoveArgs(data)
	if err != nil {
		return nil, err
	}
	if err := e.Rmdir(args.DirFID, args.Name); err != nil {
		return RemoveResult{Status: statusOf(err)}, nil
	}
	return RemoveResult{Status: StatusOK}, nil
}

func handleRename(data []byte, e *fsengine.Engine) (Encodable, error) {
	args, err := decodeRenameArgs(data)
	if err != nil {
		return nil, err
	}
	if err := e.Rename(args.SrcDirFID, args.SrcName, args.DstDirFID, args.DstName); err != nil {
		return RenameResult{Status: statusOf(err)}, nil
	}
	return RenameResult{Status: StatusOK}, nil
}

func handleReaddir(data []byte, e *fsengine.Engine) (Encodable, error) {
	args, err := decodeReaddirArgs(data)
	if err != nil {
		return nil, err
	}
	entries, err := e.Readdir(args.DirFID)
	if err != nil {
		return ReaddirResult{Status: statusOf(err)}, nil
	}
	out := make([]ReaddirEntry, len(entries))
	for i, ent := range entries {
		out[i] = ReaddirEntry{Name: ent.Name, FID: ent.FID}
	}
	return ReaddirResult{Status: StatusOK, Entries: out}, nil
}

func handleStatFS(data []byte, e *fsengine.Engine) (Encodable, error) {
	if _, err := decodeStatFSArgs(data); err != nil {
		return nil, err
	}
	stat, err := e.StatFS()
	if err != nil {
		return StatFSResult{Status: statusOf(err)}, nil
	}
	return StatFSResult{
		Status:     StatusOK,
		TotalBytes: stat.TotalBytes,
		FreeBytes:  stat.FreeBytes,
		AvailBytes: stat.AvailBytes,
		TotalFiles: stat.TotalFiles,
		FreeFiles:  stat.FreeFiles,
		BlockSize:  stat.BlockSize,
	}, nil
}

func handleCommit(data []byte, e *fsengine.Engine) (Encodable, error) {
	args, err := decodeCommitArgs(data)
	if err != nil {
		return nil, err
	}
	size, epoch, err := e.Commit(args.FID)
	if err != nil {
		return CommitResult{Status: statusOf(err)}, nil
	}
	return CommitResult{Status: StatusOK, Size: size, Epoch: epoch}, nil
}

func statusOf(err error) uint32 {
	code := fsengine.CodeOf(err)
	if code == fsengine.Internal {
		logger.Error("%v", err)
	} else {
		logger.Warn("%v", err)
	}
	return engineCodeToStatus(code)
}
