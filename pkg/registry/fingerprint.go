package registry

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/spaolacci/murmur3"

	"github.com/cyclus/dbtypes/pkg/types"
)

// fingerprint hashes records in canonical order with 128-bit murmur3.
func fingerprint(recs []types.TypeRecord) string {
	h := murmur3.New128()
	var buf [8]byte
	writeInt := func(n int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	writeString := func(s string) {
		writeInt(len(s))
		h.Write([]byte(s))
	}

	for _, r := range recs {
		writeInt(r.ID)
		writeString(r.Name)
		writeString(r.NativeRepr)
		writeInt(r.ShapeRank)
		writeString(string(r.Backend))
		writeInt(r.Version.Major)
		writeInt(r.Version.Minor)
		if r.Supported {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
