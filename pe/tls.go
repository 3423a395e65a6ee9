package pe

import (
	"log/slog"

	"github.com/appsworld/go-binparse/bstream"
)

// MaxTLSTemplateSize bounds how large a single TLS raw-data template copy
// this package will make, defending against a crafted RawDataStartVA/EndVA
// pair that spans most of the address space.
const MaxTLSTemplateSize = 100 * 1024 * 1024 // 100MB

// MaxTLSCallbacks bounds how many entries the callback-pointer walk will
// read, defending against a callback array with no zero terminator.
const MaxTLSCallbacks = 4096

type tlsDirectory32 struct {
	StartAddressOfRawData uint32
	EndAddressOfRawData   uint32
	AddressOfIndex        uint32
	AddressOfCallBacks    uint32
	SizeOfZeroFill        uint32
	Characteristics       uint32
}

type tlsDirectory64 struct {
	StartAddressOfRawData uint64
	EndAddressOfRawData   uint64
	AddressOfIndex        uint64
	AddressOfCallBacks    uint64
	SizeOfZeroFill        uint32
	Characteristics       uint32
}

// TLS is the decoded Thread Local Storage directory.
type TLS struct {
	Template  []byte
	Callbacks []uint32
}

func (f *File) parseTLS(log *slog.Logger) (*TLS, error) {
	off, ok := RVAToOffset(f.Sections, f.directories[DirTLS].RVA)
	if !ok {
		return nil, &CorruptedInput{Reason: "TLS directory RVA has no backing section"}
	}

	var startVA, endVA, callbacksVA uint64
	if f.Variant == PE32Plus {
		d, err := bstream.Peek[tlsDirectory64](f.stream, int64(off))
		if err != nil {
			return nil, err
		}
		startVA, endVA, callbacksVA = d.StartAddressOfRawData, d.EndAddressOfRawData, d.AddressOfCallBacks
	} else {
		d, err := bstream.Peek[tlsDirectory32](f.stream, int64(off))
		if err != nil {
			return nil, err
		}
		startVA, endVA, callbacksVA = uint64(d.StartAddressOfRawData), uint64(d.EndAddressOfRawData), uint64(d.AddressOfCallBacks)
	}

	tls := &TLS{}

	if startVA >= f.OptionalHeader.ImageBase && endVA > startVA {
		startOff, startOK := RVAToOffset(f.Sections, uint32(startVA-f.OptionalHeader.ImageBase))
		endOff, endOK := RVAToOffset(f.Sections, uint32(endVA-f.OptionalHeader.ImageBase))
		if startOK && endOK && endOff > startOff {
			size := endOff - startOff
			if size > MaxTLSTemplateSize {
				log.Debug("skipping oversize TLS template", "size", size)
			} else {
				buf := make([]byte, size)
				if err := f.stream.PeekData(buf, int64(startOff), int(size)); err == nil {
					tls.Template = buf
				}
			}
		}
	}

	if callbacksVA > f.OptionalHeader.ImageBase {
		off, ok := RVAToOffset(f.Sections, uint32(callbacksVA-f.OptionalHeader.ImageBase))
		if ok {
			pointerWidth := 4
			if f.Variant == PE32Plus {
				pointerWidth = 8
			}
			cursor := int64(off)
			for i := 0; i < MaxTLSCallbacks; i++ {
				v, err := readThunk(f.stream, cursor, pointerWidth)
				if err != nil || v == 0 {
					break
				}
				tls.Callbacks = append(tls.Callbacks, uint32(v))
				cursor += int64(pointerWidth)
			}
		}
	}

	return tls, nil
}
