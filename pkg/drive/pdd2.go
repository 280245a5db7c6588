// file: pkg/drive/pdd2.go

package drive

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/gorlik/dlplus/pkg/diskimg"
	"github.com/gorlik/dlplus/pkg/protocol"
)

// The 2KB RAM image keeps the layout a real TPDD2 uses: a transfer
// descriptor at the front, the sector header at 0x04, sector data at
// 0x13. Clients read the cache back through the memory commands at
// these offsets.
const (
	cacheHeaderOff = 0x04
	cacheDataOff   = 0x13
)

// Drive CPU address map, for the memory access commands.
const (
	ioportAddr = 0x0000
	cpuramAddr = 0x0080
	gaAddr     = 0x4000
	ramAddr    = 0x8000
	romAddr    = 0xF000
)

// retCache acknowledges a cache or memory-write request.
func (s *Session) retCache(status byte) error {
	return s.respond(protocol.RetCache, []byte{status})
}

// reqCache moves one sector between the image file and the RAM cache.
// Committing does not clear the cache. Only the banked models answer.
func (s *Session) reqCache(payload []byte) error {
	if s.cfg.Model != 2 {
		return nil
	}
	if len(payload) < 5 {
		return s.retCache(protocol.StatusParam)
	}
	action := payload[0]
	track := int(payload[2])
	sector := int(payload[4])
	geom := s.cfg.Image.Geom
	if track >= geom.Tracks || sector >= geom.SectorsPerTrack {
		return s.retCache(protocol.StatusParam)
	}
	rn := geom.RecordNumber(track, sector)

	switch action {
	case protocol.CacheLoad:
		log.WithFields(log.Fields{"track": track, "sector": sector}).Debug("cache load")
		h, err := s.cfg.Image.Open(rn, diskimg.OpenRead)
		if err != nil {
			return s.retCache(oprCode(err))
		}
		clear(s.ram[:])
		s.ram[0] = 0x05 // transfer length 0x0513, msb
		s.ram[1] = 0x13
		s.ram[2] = byte(rn)
		err = h.Read(s.ram[cacheHeaderOff : cacheHeaderOff+geom.HeaderLen])
		if err == nil {
			err = h.Read(s.ram[cacheDataOff : cacheDataOff+geom.DataLen])
		}
		h.Close()
		if err != nil {
			return s.retCache(protocol.StatusDefective)
		}
		return s.retCache(protocol.StatusOK)

	case protocol.CacheCommit, protocol.CacheCommitVerify:
		log.WithFields(log.Fields{"track": track, "sector": sector}).Debug("cache commit")
		h, err := s.cfg.Image.Open(rn, diskimg.OpenWrite)
		if err != nil {
			return s.retCache(oprCode(err))
		}
		err = h.Write(s.ram[cacheHeaderOff : cacheHeaderOff+geom.HeaderLen])
		if err == nil {
			err = h.Write(s.ram[cacheDataOff : cacheDataOff+geom.DataLen])
		}
		h.Close()
		if err != nil {
			return s.retCache(protocol.StatusDefective)
		}
		return s.retCache(protocol.StatusOK)
	}
	return s.retCache(protocol.StatusParam)
}

// memRegion resolves a CPU address range to its backing memory.
// Access that leaves its region, lands between regions, or writes to
// rom resolves to nothing.
func (s *Session) memRegion(addr, n int, write bool) []byte {
	var region []byte
	var base int
	switch {
	case addr >= ioportAddr && addr < ioportAddr+len(s.ioport):
		region, base = s.ioport[:], ioportAddr
	case addr >= cpuramAddr && addr < cpuramAddr+len(s.cpuram):
		region, base = s.cpuram[:], cpuramAddr
	case addr >= gaAddr && addr < gaAddr+len(s.ga):
		region, base = s.ga[:], gaAddr
	case addr >= ramAddr && addr < ramAddr+len(s.ram):
		region, base = s.ram[:], ramAddr
	case addr >= romAddr && addr < romAddr+len(s.rom):
		if write {
			return nil
		}
		region, base = s.rom[:], romAddr
	default:
		return nil
	}
	off := addr - base
	if off+n > len(region) {
		return nil
	}
	return region[off : off+n]
}

// reqMemRead reads from the sector cache or the drive CPU's address
// space. The response echoes area and offset ahead of the data.
func (s *Session) reqMemRead(payload []byte) error {
	if s.cfg.Model != 2 {
		return nil
	}
	if len(payload) < 4 {
		return s.retCache(protocol.StatusParam)
	}
	area := payload[0]
	off := int(payload[1])<<8 | int(payload[2])
	n := int(payload[3])
	if n > protocol.MemReadMax {
		return s.retCache(protocol.StatusParam)
	}
	log.WithFields(log.Fields{
		"area": area, "off": off, "len": n,
	}).Debug("mem read")

	var src []byte
	switch area {
	case protocol.AreaCache:
		if off+n > s.cfg.Image.Geom.DataLen {
			return s.retCache(protocol.StatusParam)
		}
		src = s.ram[cacheDataOff+off : cacheDataOff+off+n]
	case protocol.AreaCPU:
		src = s.memRegion(off, n, false)
	default:
		return s.retCache(protocol.StatusParam)
	}
	if src == nil {
		return s.retCache(protocol.StatusParam)
	}

	resp := make([]byte, 3+n)
	copy(resp, payload[:3])
	copy(resp[3:], src)
	return s.respond(protocol.RetMemRead, resp)
}

// reqMemWrite writes into the sector cache or the drive CPU's address
// space; clients use the CPU region to reset drive status.
func (s *Session) reqMemWrite(payload []byte) error {
	if s.cfg.Model != 2 {
		return nil
	}
	if len(payload) < 3 {
		return s.retCache(protocol.StatusParam)
	}
	area := payload[0]
	off := int(payload[1])<<8 | int(payload[2])
	data := payload[3:]
	log.WithFields(log.Fields{
		"area": area, "off": off, "len": len(data),
	}).Debug("mem write")

	var dst []byte
	switch area {
	case protocol.AreaCache:
		if off+len(data) > s.cfg.Image.Geom.DataLen {
			return s.retCache(protocol.StatusParam)
		}
		dst = s.ram[cacheDataOff+off : cacheDataOff+off+len(data)]
	case protocol.AreaCPU:
		dst = s.memRegion(off, len(data), true)
	default:
		return s.retCache(protocol.StatusParam)
	}
	if dst == nil {
		return s.retCache(protocol.StatusParam)
	}
	copy(dst, data)
	return s.retCache(protocol.StatusOK)
}

// reqVersion answers the canned version block captured from a real
// 26-3814. Some TS-DOS versions match it byte for byte to decide the
// drive has banks, so it must not vary.
func (s *Session) reqVersion() error {
	if s.cfg.Model != 2 {
		return nil
	}
	return s.respond(protocol.RetVersion, protocol.VersionPayload)
}

// reqSysinfo answers the canned system block. Real drives give the
// same answer for the undocumented request 0x11, which arrives here
// through opcode normalization.
func (s *Session) reqSysinfo() error {
	if s.cfg.Model != 2 {
		return nil
	}
	return s.respond(protocol.RetSysinfo, protocol.SysinfoPayload)
}

// reqExec would load the drive CPU's A and X registers and jump.
// Without a 6301 core there is nothing to run, so the registers echo
// back unchanged.
func (s *Session) reqExec(payload []byte) error {
	if s.cfg.Model != 2 {
		return nil
	}
	if len(payload) < 5 {
		return s.retStd(protocol.StatusParam)
	}
	addr := int(payload[0])<<8 | int(payload[1])
	log.WithField("addr", fmt.Sprintf("%04X", addr)).Debug("exec stub")
	return s.respond(protocol.RetExec, []byte{payload[2], payload[3], payload[4]})
}
