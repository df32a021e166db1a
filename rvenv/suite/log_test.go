package suite

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

func TestLoggingWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := &LoggingWriter{Name: "rv32ui/add", Log: log.NewLogger(log.LogfmtHandlerWithLevel(&buf, log.LevelDebug))}

	n, err := lw.Write([]byte("first\nsec"))
	require.NoError(t, err)
	require.Equal(t, 9, n)
	_, _ = lw.Write([]byte("ond\r\n\n"))
	require.Equal(t, 2, strings.Count(buf.String(), "compiler output"), "only complete non-empty lines are logged")
	require.Contains(t, buf.String(), "text=first")
	require.Contains(t, buf.String(), "text=second")

	_, _ = lw.Write([]byte{0x00, 0xff})
	require.NotContains(t, buf.String(), "data=")
	lw.Flush()
	require.Contains(t, buf.String(), "data=0x00ff")
	require.Equal(t, 3, strings.Count(buf.String(), "compiler output"))

	lw.Flush()
	require.Equal(t, 3, strings.Count(buf.String(), "compiler output"), "nothing left to flush")
}
