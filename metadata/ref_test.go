package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRefAccepts(t *testing.T) {
	cases := map[string]Ref{
		"ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG": {Scheme: "ipfs", Location: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"},
		"ipfs://QmHash/A1.json":                                 {Scheme: "ipfs", Location: "QmHash/A1.json"},
		"ar://bNbA3TEQVL60xlgCcqdz4ZPHFZ711cZ3hmkpGttDt_U":      {Scheme: "ar", Location: "bNbA3TEQVL60xlgCcqdz4ZPHFZ711cZ3hmkpGttDt_U"},
		"https://gateway.pinata.cloud/ipfs/QmHash":              {Scheme: "https", Location: "gateway.pinata.cloud/ipfs/QmHash"},
		"HTTP://example.com/meta.json?v=2":                      {Scheme: "http", Location: "example.com/meta.json?v=2"},
		"ipfs:QmOpaque":                                         {Scheme: "ipfs", Location: "QmOpaque"},
	}
	for in, want := range cases {
		got, err := ParseRef(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseRefRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		" ipfs://QmHash",
		"QmHash",
		"ftp://example.com/a.json",
		"ipfs://",
		"ipfs:///",
		"https:///path-only",
		"://missing-scheme",
	} {
		_, err := ParseRef(in)
		assert.ErrorIs(t, err, ErrInvalidRef, "%q", in)
	}
}

func TestIPFSRef(t *testing.T) {
	ref := IPFSRef("QmHash")
	assert.Equal(t, "ipfs://QmHash", ref)

	parsed, err := ParseRef(ref)
	require.NoError(t, err)
	assert.Equal(t, ref, parsed.String())
}
