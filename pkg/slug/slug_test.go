package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Jumlah Penduduk!!":               "jumlah-penduduk",
		"  --DS-001 / Kemiskinan--  ":     "ds-001-kemiskinan",
		"Indeks Pembangunan Manusia 2023": "indeks-pembangunan-manusia-2023",
		"Ångström ünïcode":                "ngstr-m-n-code",
		"!!!":                             "",
		"":                                "",
	}
	for in, want := range cases {
		require.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestNormalizeTruncates(t *testing.T) {
	out := Normalize(strings.Repeat("ab ", 60))
	require.LessOrEqual(t, len(out), MaxBaseLength)
	require.True(t, Valid(out))
	require.False(t, strings.HasSuffix(out, "-"))
}

func TestValid(t *testing.T) {
	require.True(t, Valid("jumlah-penduduk-1"))
	require.False(t, Valid(""))
	require.False(t, Valid("Jumlah"))
	require.False(t, Valid("a b"))
}
