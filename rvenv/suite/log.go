package suite

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
)

// LoggingWriter logs compiler output one line per record.
// A trailing partial line is held back until Flush.
type LoggingWriter struct {
	Name string
	Log  log.Logger

	pending []byte
}

func printable(b []byte) bool {
	for _, c := range b {
		if (c < 0x20 || c >= 0x7F) && c != '\t' {
			return false
		}
	}
	return true
}

func (lw *LoggingWriter) Write(b []byte) (int, error) {
	lw.pending = append(lw.pending, b...)
	for {
		i := bytes.IndexByte(lw.pending, '\n')
		if i < 0 {
			break
		}
		lw.emit(lw.pending[:i])
		lw.pending = lw.pending[i+1:]
	}
	return len(b), nil
}

// Flush logs any output not terminated by a newline.
func (lw *LoggingWriter) Flush() {
	if len(lw.pending) > 0 {
		lw.emit(lw.pending)
		lw.pending = nil
	}
}

func (lw *LoggingWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	if printable(line) {
		lw.Log.Debug("compiler output", "test", lw.Name, "text", string(line))
	} else {
		lw.Log.Debug("compiler output", "test", lw.Name, "data", hexutil.Bytes(line))
	}
}
