package image

import (
	"bufio"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rvsim/rvenv/rvenv/env"
	"github.com/rvsim/rvenv/rvenv/riscv"
)

// Region is the signature region as laid out in the image, before execution.
type Region struct {
	Begin  uint64        `json:"begin"`
	End    uint64        `json:"end"`
	Data   hexutil.Bytes `json:"data"`
	Digest common.Hash   `json:"digest"`
}

// Signature reads the signature region of f. The symbols are checked first.
func Signature(f *elf.File, cfg *env.Config) (*Region, error) {
	report, err := CheckSymbols(f, cfg)
	if err != nil {
		return nil, err
	}
	segments, err := LoadSegments(f)
	if err != nil {
		return nil, err
	}
	data, err := segments.ReadRange(report.Begin, report.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read signature region: %w", err)
	}
	return &Region{
		Begin:  report.Begin,
		End:    report.End,
		Data:   data,
		Digest: crypto.Keccak256Hash(data),
	}, nil
}

// Words returns the region as little endian 32 bit words.
func (r *Region) Words() []uint32 {
	out := make([]uint32, len(r.Data)/riscv.MinSignatureAlign)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(r.Data[i*4:])
	}
	return out
}

// WriteWords writes one word per line as 8 hex digits, the layout signature
// comparison tools read.
func (r *Region) WriteWords(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, word := range r.Words() {
		if _, err := fmt.Fprintf(bw, "%08x\n", word); err != nil {
			return err
		}
	}
	return bw.Flush()
}
