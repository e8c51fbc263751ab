package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

// stubSecrets makes GetSecret return the given values in order.
func stubSecrets(t *testing.T, values ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		if len(values) == 0 {
			return nil, errors.New("no more input")
		}
		v := values[0]
		values = values[1:]
		return []byte(v), nil
	}
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("  Main Card \n"), "Card name", &out)
	require.NoError(t, err)
	assert.Equal(t, "Main Card", got)
	assert.Contains(t, out.String(), "Card name")
}

func TestGetSimpleText_EOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "x", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "x", &out)
	require.Error(t, err)
}

func TestGetSecret(t *testing.T) {
	stubSecrets(t, "1234")
	var out bytes.Buffer
	got, err := GetSecret(&out, "PIN")
	require.NoError(t, err)
	assert.Equal(t, []byte("1234"), got)
	assert.NotContains(t, out.String(), "1234")
}

func TestGetSecret_Error(t *testing.T) {
	stubSecrets(t)
	var out bytes.Buffer
	_, err := GetSecret(&out, "PIN")
	require.Error(t, err)
}
