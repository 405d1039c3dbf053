// Package protocol implements the Kinetic secure AUX-ISP protocol used to
// reflash Jaguar/Mustang DisplayPort devices over vendor DPCD registers.
//
// This package is pure: it defines the register map, the command set, status
// codes, the chunk CRC and the reply codecs. It performs no I/O; see package
// isp for the session that drives a dpcd.Transport.
//
// # Protocol Overview
//
// Commands are exchanged through a single mailbox register:
//
//	host writes   CMD_STATUS = cmd | 0x80   (confirmation bit set)
//	sink answers  CMD_STATUS = cmd          (processed)
//	          or  CMD_STATUS = status       (failure, low 7 bits)
//
// Parameters travel through PARAM (0x50E) and the 12-byte reply data
// register (0x514 ~ 0x51F) whose valid length sits in 0x513. Bulk data is
// written into the 32 KiB AUX window at 0x80000 in transactions of at most
// 16 bytes; each chunk is closed by posting its CRC-16 and issuing
// CHUNK_DATA_PROCESSED.
//
// # Commands
//
// Each Command knows how the sink acknowledges it:
//
//	protocol.CmdChunkDataProcessed.Completion() // CompletionEcho
//	protocol.CmdExecuteRAMCode.Completion()     // CompletionCleared
//	protocol.CmdResetSystem.Completion()        // CompletionNone
//
// Evaluate interprets a CMD_STATUS read for a given command:
//
//	outcome, status := protocol.Evaluate(protocol.CmdInstallImages, reg)
//	if outcome == protocol.OutcomeFailed {
//	    return &protocol.ProtocolError{Operation: "install images", Status: status}
//	}
//
// # Chunk CRC
//
// The chunk CRC is CRC-16 with polynomial 0x1021 and seed 0x1021, MSB-first,
// no final XOR:
//
//	crc := protocol.NewCRC16()
//	crc.Update(chunk)
//	post := crc.PostBytes() // 4 bytes, little-endian, upper half zero
//
// # Error Handling
//
// Failure statuses are reported as *ProtocolError. CRC and image failures can
// be matched with errors.Is:
//
//	if errors.Is(err, protocol.ErrCRCFailure) {
//	    // terminal for the session
//	}
package protocol
