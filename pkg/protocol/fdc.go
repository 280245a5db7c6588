// file: pkg/protocol/fdc.go

package protocol

import "fmt"

// FDC-mode command letters.
const (
	FDCSetMode       byte = 'M'
	FDCCondition     byte = 'D'
	FDCFormat        byte = 'F'
	FDCFormatNV      byte = 'G'
	FDCReadID        byte = 'A'
	FDCReadSector    byte = 'R'
	FDCSearchID      byte = 'S'
	FDCWriteID       byte = 'B'
	FDCWriteIDNV     byte = 'C'
	FDCWriteSector   byte = 'W'
	FDCWriteSectorNV byte = 'X'
)

// FDCCommands lists every valid FDC-mode command byte.
const FDCCommands = "MDFGARSBCWX"

// FDCTerm terminates an FDC-mode command line.
const FDCTerm byte = 0x0D

// FDC-mode error codes.
const (
	FDCErrOK           byte = 0x00
	FDCErrLSNLow       byte = 0x11
	FDCErrLSNHigh      byte = 0x12
	FDCErrPSNHigh      byte = 0x13
	FDCErrParam        byte = 0x21
	FDCErrLSCLow       byte = 0x32
	FDCErrLSCHigh      byte = 0x33
	FDCErrIDNotFound   byte = 0x60
	FDCErrNotFormatted byte = 0xA0
	FDCErrRead         byte = 0xA1
	FDCErrWriteProtect byte = 0xB0
	FDCErrCommand      byte = 0xC1
	FDCErrNoDisk       byte = 0xD1
)

// FDCResponse renders the fixed 8-byte FDC-mode status block: two hex
// digit pairs for error and data, four for length or address.
func FDCResponse(errCode, dat byte, length uint16) []byte {
	return []byte(fmt.Sprintf("%02X%02X%04X", errCode, dat, length))
}

// ParseFDCParams parses the parameter region of an FDC-mode command
// line. Fields are comma-separated decimal integers; empty fields are
// skipped, and missing fields default to physical sector 0 and
// logical sector 1 as on a real drive.
func ParseFDCParams(line []byte) (p, l int) {
	p, l = 0, 1
	toks := splitFields(line)
	if len(toks) > 0 {
		p = fdcAtoi(toks[0])
	}
	if len(toks) > 1 {
		l = fdcAtoi(toks[1])
	}
	return p, l
}

// splitFields splits on commas, dropping empty fields.
func splitFields(b []byte) [][]byte {
	var toks [][]byte
	start := -1
	for i := 0; i <= len(b); i++ {
		if i == len(b) || b[i] == ',' {
			if start >= 0 {
				toks = append(toks, b[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	return toks
}

// fdcAtoi converts a decimal field with an optional sign, stopping at
// the first non-digit. A field with no leading digits is zero.
func fdcAtoi(b []byte) int {
	n, i, neg := 0, 0, false
	if i < len(b) && (b[i] == '-' || b[i] == '+') {
		neg = b[i] == '-'
		i++
	}
	for ; i < len(b) && b[i] >= '0' && b[i] <= '9'; i++ {
		n = n*10 + int(b[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}
