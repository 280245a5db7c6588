// file: pkg/protocol/protocol.go

// Package protocol defines the TPDD wire protocol: the operation-mode
// frame format, request and return opcodes, status codes, and the
// FDC-mode command set with its ASCII status block.
package protocol

// Sync is the request preamble byte. Every operation-mode request
// starts with two of them; responses carry none.
const Sync byte = 0x5A

// Field limits.
const (
	DataMax     = 0x80 // payload bytes in one frame
	FilenameLen = 24   // dirent name field width
	MemReadMax  = 0xFC // TPDD-2 memory-read payload limit
)

// Operation-mode request opcodes. On a TPDD-2 drive bit 6 of the
// opcode selects the bank and is stripped before dispatch.
const (
	ReqDirent    byte = 0x00
	ReqOpen      byte = 0x01
	ReqClose     byte = 0x02
	ReqRead      byte = 0x03
	ReqWrite     byte = 0x04
	ReqDelete    byte = 0x05
	ReqFormat    byte = 0x06
	ReqStatus    byte = 0x07
	ReqFDC       byte = 0x08
	ReqCondition byte = 0x0C
	ReqRename    byte = 0x0D
	ReqVersion   byte = 0x23
	ReqCache     byte = 0x30
	ReqMemWrite  byte = 0x31
	ReqMemRead   byte = 0x32
	ReqSysinfo   byte = 0x33
	ReqExec      byte = 0x34
)

// Return opcodes.
const (
	RetRead      byte = 0x10
	RetDirent    byte = 0x11
	RetStd       byte = 0x12
	RetVersion   byte = 0x14
	RetCondition byte = 0x15
	RetCache     byte = 0x38 // also acknowledges memory writes
	RetMemRead   byte = 0x39
	RetSysinfo   byte = 0x3A
	RetExec      byte = 0x3B
)

// Directory request actions, payload byte 27 of ReqDirent.
const (
	DirentSetName byte = iota
	DirentGetFirst
	DirentGetNext
	DirentGetPrev
	DirentClose
)

// File open modes, payload byte 0 of ReqOpen.
const (
	OpenWrite  byte = 0x01
	OpenAppend byte = 0x02
	OpenRead   byte = 0x03
)

// Cache actions, payload byte 0 of ReqCache.
const (
	CacheLoad         byte = 0x00
	CacheCommit       byte = 0x01
	CacheCommitVerify byte = 0x02
)

// Memory access areas for ReqMemWrite / ReqMemRead.
const (
	AreaCache byte = 0x00 // sector cache contents
	AreaCPU   byte = 0x01 // drive CPU address space
)

// Operation-mode status codes, returned in the RetStd payload.
const (
	StatusOK           byte = 0x00
	StatusNoFile       byte = 0x10
	StatusFileExists   byte = 0x11
	StatusNoFilename   byte = 0x30
	StatusDirSearch    byte = 0x31
	StatusBank         byte = 0x35
	StatusParam        byte = 0x36
	StatusFmtMismatch  byte = 0x37
	StatusEOF          byte = 0x3F
	StatusNoStart      byte = 0x40
	StatusIDCRC        byte = 0x41
	StatusSectorLen    byte = 0x42
	StatusFmtVerify    byte = 0x44
	StatusNotFormatted byte = 0x45
	StatusFmtInterrupt byte = 0x46
	StatusEraseOffset  byte = 0x47
	StatusDataCRC      byte = 0x49
	StatusSectorNum    byte = 0x4A
	StatusReadTimeout  byte = 0x4B
	StatusSectorNum2   byte = 0x4D // second sector number error of the software manual
	StatusWriteProtect byte = 0x50
	StatusNotInit      byte = 0x5E
	StatusDirFull      byte = 0x60
	StatusDiskFull     byte = 0x61
	StatusFileTooLong  byte = 0x6E
	StatusNoDisk       byte = 0x70
	StatusDiskChanged  byte = 0x71
	StatusDefective    byte = 0x83
)

// TPDD-2 condition bits, returned by ReqCondition.
const (
	CondChanged  byte = 0x08
	CondNoDisk   byte = 0x04
	CondWProtect byte = 0x02
	CondLowPower byte = 0x01
)

// TPDD-1 condition bits, returned by the FDC-mode D command.
const (
	FDCCondNoDisk   byte = 0x80
	FDCCondChanged  byte = 0x40
	FDCCondWProtect byte = 0x20
)

// Version and sysinfo reply payloads, as produced by a real 26-3814.
var (
	VersionPayload = []byte{
		0x41, 0x10, 0x01, 0x00, 0x50, 0x05, 0x00, 0x02,
		0x00, 0x28, 0x00, 0xE1, 0x00, 0x00, 0x00,
	}
	SysinfoPayload = []byte{0x80, 0x13, 0x05, 0x00, 0x10, 0xE1}
)

// Normalize maps a raw request opcode to its canonical form. For a
// TPDD-2 drive bit 6 selects the bank. TS-DOS sends 0x0E..0x12 for the
// cache and memory requests; those fold onto 0x30..0x34.
func Normalize(opcode byte, tpdd2 bool) (code byte, bank int) {
	code = opcode
	if tpdd2 {
		bank = int(code>>6) & 1
		code &^= 0x40
	}
	if code >= 0x0E && code <= 0x12 {
		code += 0x22
	}
	return code, bank
}
