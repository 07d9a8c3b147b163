package policypacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ResolveKnownPack(t *testing.T) {
	r := NewRegistry(0)
	pack, err := r.Resolve("hipaa")
	require.NoError(t, err)
	assert.Equal(t, "healthcare", pack.Industry)
	assert.True(t, pack.Defaults.Logging.Redact)
}

func TestRegistry_ResolveIsCaseAndWhitespaceInsensitive(t *testing.T) {
	r := NewRegistry(0)
	pack, err := r.Resolve("  HIPAA  ")
	require.NoError(t, err)
	assert.Equal(t, "healthcare", pack.Industry)
}

func TestRegistry_ResolveAppliesAliases(t *testing.T) {
	r := NewRegistry(0)
	healthcare, err := r.Resolve("healthcare")
	require.NoError(t, err)
	hipaa, err := r.Resolve("hipaa")
	require.NoError(t, err)
	assert.Equal(t, hipaa.Industry, healthcare.Industry)

	banking, err := r.Resolve("banking")
	require.NoError(t, err)
	finance, err := r.Resolve("finance")
	require.NoError(t, err)
	assert.Equal(t, finance.Industry, banking.Industry)

	pciDSS, err := r.Resolve("pci_dss")
	require.NoError(t, err)
	assert.Equal(t, "payments", pciDSS.Industry)
}

func TestRegistry_ResolveUnknownPackErrors(t *testing.T) {
	r := NewRegistry(0)
	_, err := r.Resolve("does-not-exist")
	require.Error(t, err)
}

func TestRegistry_ResolveCachesConstructedPack(t *testing.T) {
	r := NewRegistry(0)
	first, err := r.Resolve("soc2")
	require.NoError(t, err)
	second, err := r.Resolve("soc2")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRegistry_NamesListsEveryBuiltinPack(t *testing.T) {
	r := NewRegistry(0)
	names := r.Names()
	assert.Contains(t, names, "hipaa")
	assert.Contains(t, names, "soc2")
	assert.Contains(t, names, "pci-dss")
	assert.Contains(t, names, "gdpr")
	assert.Contains(t, names, "finance")
}
