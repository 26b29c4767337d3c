package values_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sha256("test data")
const testDataSHA256 = "916f0027a575074ce72a331777c3478d6513f786a591bd892da1a577bf2335f9"

func TestParseDigest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"sha256", "sha256:" + testDataSHA256, false},
		{"upper case hex", "sha256:" + strings.ToUpper(testDataSHA256), false},
		{"sha512", "sha512:" + strings.Repeat("ab", 64), false},
		{"unsupported algorithm", "md5:" + strings.Repeat("ab", 16), true},
		{"missing algorithm", ":" + testDataSHA256, true},
		{"no separator", "sha256" + testDataSHA256, true},
		{"not hex", "sha256:" + strings.Repeat("zz", 32), true},
		{"wrong length", "sha256:abcd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := values.ParseDigest(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(tt.input), d.String())
			assert.False(t, d.IsZero())
		})
	}
}

func TestComputeDigest(t *testing.T) {
	t.Parallel()

	d, err := values.ComputeDigest("sha256", strings.NewReader("test data"))
	require.NoError(t, err)
	assert.Equal(t, "sha256", d.Algorithm())
	assert.Equal(t, testDataSHA256, d.Value())

	parsed, err := values.ParseDigest("sha256:" + testDataSHA256)
	require.NoError(t, err)
	assert.True(t, d.Equals(parsed))

	other, err := values.ComputeDigest("sha512", strings.NewReader("test data"))
	require.NoError(t, err)
	assert.False(t, d.Equals(other))

	_, err = values.ComputeDigest("md5", strings.NewReader("test data"))
	require.Error(t, err)
}

func TestDigestPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "plugin.zip")
	require.NoError(t, os.WriteFile(file, []byte("test data"), 0o600))

	d, err := values.DigestPath(file)
	require.NoError(t, err)
	assert.Equal(t, "sha256:"+testDataSHA256, d.String())

	d, err = values.DigestPath(dir)
	require.NoError(t, err)
	assert.True(t, d.IsZero())
	assert.Empty(t, d.String())

	_, err = values.DigestPath(filepath.Join(dir, "missing.zip"))
	require.Error(t, err)
}
