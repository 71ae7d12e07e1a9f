package pcie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBridgeBusNumbersOnEndpointIsHeaderKindError(t *testing.T) {
	desc := Descriptor{Header: HeaderCommon{Kind: HeaderKindEndpoint}}

	_, _, _, err := desc.BridgeBusNumbers()
	require.Error(t, err)

	var kindErr *HeaderKindError
	require.ErrorAs(t, err, &kindErr)
	require.Equal(t, HeaderKindEndpoint, kindErr.Kind)
	require.Equal(t, "pci-pci bridge", kindErr.Want)
}

func TestBridgeBusNumbersOnBridge(t *testing.T) {
	desc := Descriptor{
		Header:         HeaderCommon{Kind: HeaderKindPciPciBridge},
		PrimaryBus:     0,
		SecondaryBus:   1,
		SubordinateBus: 3,
	}

	primary, secondary, subordinate, err := desc.BridgeBusNumbers()
	require.NoError(t, err)
	require.Equal(t, uint8(0), primary)
	require.Equal(t, uint8(1), secondary)
	require.Equal(t, uint8(3), subordinate)
}
