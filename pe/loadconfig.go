package pe

import (
	"bytes"
	"encoding/binary"

	"github.com/appsworld/go-binparse/bstream"
)

// LoadConfigVersion tags which on-disk shape of IMAGE_LOAD_CONFIG_DIRECTORY
// a decoded record matched, selected purely from its declared Size field.
type LoadConfigVersion int

const (
	LoadConfigBase LoadConfigVersion = iota // declared size smaller than every known version
	LoadConfigV0
	LoadConfigV1
	LoadConfigV2
	LoadConfigV3
	LoadConfigV4
	LoadConfigV5
	LoadConfigV6
	LoadConfigV7
)

// loadConfigSizes maps each version to the on-disk struct size Microsoft
// has shipped for it, in increasing order. A decoded record's version is
// the largest entry whose size is <= the directory's declared Size.
var loadConfigSizes = [...]struct {
	version LoadConfigVersion
	size32  uint32
	size64  uint32
}{
	{LoadConfigV0, 0x40, 0x48},  // pre-Vista: just the SEH table
	{LoadConfigV1, 0x5c, 0x70},  // adds GS cookie + SafeSEH count
	{LoadConfigV2, 0x68, 0x90},  // adds guard CF function table (Win8.1)
	{LoadConfigV3, 0x70, 0x98},  // adds guard flags
	{LoadConfigV4, 0x78, 0xa8},  // adds code integrity info
	{LoadConfigV5, 0x80, 0xd8},  // adds guard address-taken IAT table
	{LoadConfigV6, 0x90, 0xf8},  // adds long jump target table
	{LoadConfigV7, 0x98, 0x118}, // adds EH continuation table (Win11)
}

// loadConfig is the widened, format-neutral record this package exposes.
// Every field beyond what the declared Size covers decodes as zero, which
// is indistinguishable from (and as good as) "not present".
type loadConfig struct {
	Size                          uint32
	TimeDateStamp                 uint32
	MajorVersion                  uint16
	MinorVersion                  uint16
	GlobalFlagsClear              uint32
	GlobalFlagsSet                uint32
	CriticalSectionDefaultTimeout uint32
	DeCommitFreeBlockThreshold    uint64
	DeCommitTotalFreeThreshold    uint64
	LockPrefixTable               uint64
	MaximumAllocationSize         uint64
	VirtualMemoryThreshold        uint64
	ProcessAffinityMask           uint64
	ProcessHeapFlags              uint32
	CSDVersion                    uint16
	DependentLoadFlags            uint16
	EditList                      uint64
	SecurityCookie                uint64
	SEHandlerTable                uint64
	SEHandlerCount                uint64
	GuardCFCheckFunctionPointer   uint64
	GuardCFDispatchFunctionPointer uint64
	GuardCFFunctionTable          uint64
	GuardCFFunctionCount          uint64
	GuardFlags                    uint32
}

// LoadConfig is the decoded load-configuration directory plus the version
// tag selected for it.
type LoadConfig struct {
	Version LoadConfigVersion
	Record  loadConfig
}

func classifyLoadConfigSize(declared uint32, is64 bool) LoadConfigVersion {
	best := LoadConfigBase
	for _, e := range loadConfigSizes {
		sz := e.size32
		if is64 {
			sz = e.size64
		}
		if sz <= declared {
			best = e.version
		} else {
			break
		}
	}
	return best
}

func (f *File) parseLoadConfig() (*LoadConfig, error) {
	off, ok := RVAToOffset(f.Sections, f.directories[DirLoadConfig].RVA)
	if !ok {
		return nil, &CorruptedInput{Reason: "load config directory RVA has no backing section"}
	}

	declared, err := bstream.Peek[uint32](f.stream, int64(off))
	if err != nil {
		return nil, err
	}

	fullSize := binary.Size(loadConfig{})
	n := int(declared)
	if n > fullSize {
		n = fullSize
	}
	if n < 0 {
		n = 0
	}
	buf := make([]byte, fullSize)
	if err := f.stream.PeekData(buf, int64(off), n); err != nil {
		return nil, err
	}

	var rec loadConfig
	_ = binary.Read(bytes.NewReader(buf), binary.LittleEndian, &rec)
	rec.Size = declared

	return &LoadConfig{
		Version: classifyLoadConfigSize(declared, f.Variant == PE32Plus),
		Record:  rec,
	}, nil
}
