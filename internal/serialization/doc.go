// Package serialization provides the .born checkpoint format used to save
// and restore trained networks.
//
//	Format Structure (v2):
//	  [0x00: Magic "BORN"]
//	  [0x04: Version (uint32 LE)]
//	  [0x08: Flags (uint32 LE)]
//	  [0x10: Header Size (uint64 LE)]
//	  [0x18: Data Size (uint64 LE)]
//	  [0x20: SHA-256 of the data section]
//	  [0x40: Header: JSON metadata]
//	  [Tensor data: little-endian float64, 64-byte aligned]
//
// Example usage:
//
//	writer, err := serialization.NewBornWriter("model.born")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = writer.WriteStateDict(net.StateDict(), "PINN", map[string]string{"problem": "Burgers"})
//	writer.Close()
//
//	reader, err := serialization.NewBornReader("model.born")
//	stateDict, err := reader.ReadStateDict(backend)
//	net.LoadStateDict(stateDict)
//	reader.Close()
package serialization
