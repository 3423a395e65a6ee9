package pe

import "github.com/appsworld/go-binparse/bstream"

// CertificateType is the wCertificateType field of WIN_CERTIFICATE.
type CertificateType uint16

const (
	CertTypeX509             CertificateType = 0x0001
	CertTypePKCS7SignedData  CertificateType = 0x0002
	CertTypeReserved1        CertificateType = 0x0003
	CertTypePKCS1Sign        CertificateType = 0x0009
)

type winCertificateHeader struct {
	Length          uint32
	Revision        uint16
	CertificateType uint16
}

// Certificate is one entry of the attribute certificate table. Raw holds
// the certificate payload verbatim; this package never parses or
// verifies its contents, only locates and extracts it.
type Certificate struct {
	Revision uint16
	Type     CertificateType
	Raw      []byte
}

// certificateTableAlignment is the padding every WIN_CERTIFICATE entry is
// rounded up to.
const certificateTableAlignment = 8

// parseSignature walks the attribute certificate table. Unlike every
// other directory, DirCertificate's RVA field is a plain file offset, not
// an RVA: the table lives in the overlay, which has no section backing
// it to translate through.
func (f *File) parseSignature() ([]Certificate, error) {
	dir := f.directories[DirCertificate]
	if dir.RVA == 0 || dir.Size == 0 {
		return nil, ErrNotFound
	}

	end := int64(dir.RVA) + int64(dir.Size)
	var certs []Certificate
	cursor := int64(dir.RVA)
	for cursor < end {
		h, err := bstream.Peek[winCertificateHeader](f.stream, cursor)
		if err != nil {
			return certs, err
		}
		if h.Length < 8 {
			return certs, &CorruptedInput{Reason: "certificate entry length smaller than its header"}
		}

		payloadLen := int(h.Length) - 8
		raw := make([]byte, payloadLen)
		if err := f.stream.PeekData(raw, cursor+8, payloadLen); err != nil {
			return certs, err
		}

		certs = append(certs, Certificate{
			Revision: h.Revision,
			Type:     CertificateType(h.CertificateType),
			Raw:      raw,
		})

		advance := int64(h.Length)
		if rem := advance % certificateTableAlignment; rem != 0 {
			advance += certificateTableAlignment - rem
		}
		cursor += advance
	}
	return certs, nil
}
