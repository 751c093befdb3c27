package zippynfs

// Program and version identify this server's ONC RPC program, carried
// in the RPC call header.
const (
	Program uint32 = 400113
	Version uint32 = 1
)

// Procedure numbers, one per operation in the storage engine's
// surface (spec §6).
const (
	ProcNull uint32 = iota
	ProcGetAttr
	ProcSetAttr
	ProcLookup
	ProcRead
	ProcWrite
	ProcCreate
	ProcRemove
	ProcRename
	ProcMkdir
	ProcRmdir
	ProcReaddir
	ProcStatFS
	ProcCommit
)

var procNames = map[uint32]string{
	ProcNull:    "NULL",
	ProcGetAttr: "GETATTR",
	ProcSetAttr: "SETATTR",
	ProcLookup:  "LOOKUP",
	ProcRead:    "READ",
	ProcWrite:   "WRITE",
	ProcCreate:  "CREATE",
	ProcRemove:  "REMOVE",
	ProcRename:  "RENAME",
	ProcMkdir:   "MKDIR",
	ProcRmdir:   "RMDIR",
	ProcReaddir: "READDIR",
	ProcStatFS:  "STATFS",
	ProcCommit:  "COMMIT",
}

func procName(proc uint32) string {
	if name, ok := procNames[proc]; ok {
		return name
	}
	return "UNKNOWN"
}

// Status codes mirror the engine's error taxonomy (spec §7) plus OK.
const (
	StatusOK uint32 = iota
	StatusNoEnt
	StatusExist
	StatusNotDir
	StatusIsDir
	StatusNotEmpty
	StatusStale
	StatusInternal
)

// FileType is the wire encoding of fsengine.FileType.
const (
	FTypeNone uint32 = iota
	FTypeRegular
	FTypeDirectory
	FTypeBlock
	FTypeChar
	FTypeSymlink
)

// WriteStability mirrors fsengine.Stability on the wire.
const (
	WriteUnstable uint32 = iota
	WriteDataSync
	WriteFileSync
)
